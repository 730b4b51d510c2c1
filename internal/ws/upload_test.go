package ws

import (
	"strings"
	"testing"
)

func TestSanitizeUploadFileNameReplacesInvalidChars(t *testing.T) {
	out := sanitizeUploadFileName(` folder/..\bad:name?.txt `)
	if out != "folder_.._bad_name_.txt" {
		t.Fatalf("unexpected sanitized name: %q", out)
	}
}

func TestSanitizeUploadFileNameHandlesWindowsReservedNames(t *testing.T) {
	if !isWindowsReservedName("con") || !isWindowsReservedName("LPT1") {
		t.Fatal("expected con/LPT1 to be reserved")
	}
	if isWindowsReservedName("config") {
		t.Fatal("config must not be treated as reserved")
	}
	if out := sanitizeUploadFileName("con.txt"); out != "con.txt_file" {
		t.Fatalf("expected con.txt_file, got %q", out)
	}
}

func TestSanitizeUploadFileNameTruncatesWithoutUnicodePanic(t *testing.T) {
	input := strings.Repeat("你", 200)
	out := sanitizeUploadFileName(input)
	if out == "" {
		t.Fatal("expected non-empty output")
	}
	if len(out) > maxUploadFileNameBytes {
		t.Fatalf("output %q exceeds budget %d bytes (%d)", out, maxUploadFileNameBytes, len(out))
	}
}

func TestSanitizeUploadFileNamePreservesExtensionOnTruncate(t *testing.T) {
	input := strings.Repeat("a", 200) + ".png"
	out := sanitizeUploadFileName(input)
	if !strings.HasSuffix(out, ".png") {
		t.Fatalf("expected .png suffix, got %q", out)
	}
	if len(out) > maxUploadFileNameBytes {
		t.Fatalf("output exceeds budget: %q", out)
	}
}

func TestBuildUploadDestinationPathUsesExpectedFolderStructure(t *testing.T) {
	out := buildUploadDestinationPath("/tmp/project", "image.png")
	if !strings.Contains(out, "/.mobilecli/") && !strings.Contains(out, `\.mobilecli\`) {
		t.Fatalf("expected .mobilecli in path, got %q", out)
	}
	if !strings.Contains(out, "uploads") {
		t.Fatalf("expected uploads dir in path, got %q", out)
	}
	base := out[strings.LastIndexAny(out, "/\\")+1:]
	if !strings.HasSuffix(base, "-image.png") {
		t.Fatalf("expected suffix -image.png, got %q", base)
	}
}

func TestUnicodeUploadNameStaysWithinFilesystemLimits(t *testing.T) {
	fileName := sanitizeUploadFileName(strings.Repeat("你", 160) + ".txt")
	if len(fileName) > maxUploadFileNameBytes {
		t.Fatalf("sanitized name exceeds budget: %q", fileName)
	}
	path := buildUploadDestinationPath("/tmp/project", fileName)
	base := path[strings.LastIndexAny(path, "/\\")+1:]
	if len(base) > uploadComponentBudgetBytes+uploadDestPrefixBytes {
		t.Fatalf("destination component too long: %q", base)
	}
}
