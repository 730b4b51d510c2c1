package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/mobilecli/internal/protocol"
)

func newTestOperations(t *testing.T, root string) *FileOperations {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AllowedRoots = []string{root}
	cfg.MaxReadSize = 1 << 20
	cfg.MaxWriteSize = 1 << 20
	return NewFileOperations(NewValidator(cfg), cfg)
}

func TestWriteFileThenReadFileRoundTrips(t *testing.T) {
	root := t.TempDir()
	ops := newTestOperations(t, root)
	target := filepath.Join(root, "note.txt")

	if fsErr := ops.WriteFile(target, []byte("hello world"), false); fsErr != nil {
		t.Fatalf("write failed: %+v", fsErr)
	}

	content, fsErr := ops.ReadFile(target, nil, nil)
	if fsErr != nil {
		t.Fatalf("read failed: %+v", fsErr)
	}
	if content.Encoding != protocol.EncodingUtf8 || content.Data != "hello world" {
		t.Fatalf("unexpected content: %+v", content)
	}
}

func TestWriteFileRemovesBackupAfterSuccess(t *testing.T) {
	root := t.TempDir()
	ops := newTestOperations(t, root)
	target := filepath.Join(root, "note.txt")

	if fsErr := ops.WriteFile(target, []byte("version one"), false); fsErr != nil {
		t.Fatalf("first write failed: %+v", fsErr)
	}
	if fsErr := ops.WriteFile(target, []byte("version two"), false); fsErr != nil {
		t.Fatalf("second write failed: %+v", fsErr)
	}

	if _, err := os.Stat(target + ".bak"); !os.IsNotExist(err) {
		t.Fatalf("expected no .bak sibling after a successful write, got err=%v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(data) != "version two" {
		t.Fatalf("expected target to hold the new content, got %q", data)
	}
}

func TestWriteFileRejectsOversizedContent(t *testing.T) {
	root := t.TempDir()
	ops := newTestOperations(t, root)
	ops.cfg.MaxWriteSize = 4

	fsErr := ops.WriteFile(filepath.Join(root, "big.txt"), []byte("way too big"), false)
	if fsErr == nil || fsErr.Code != "file_too_large" {
		t.Fatalf("expected file_too_large, got %+v", fsErr)
	}
}

func TestDeletePathRequiresEmptyDirWithoutRecursive(t *testing.T) {
	root := t.TempDir()
	ops := newTestOperations(t, root)
	dir := filepath.Join(root, "sub")
	os.Mkdir(dir, 0755)
	os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0644)

	fsErr := ops.DeletePath(dir, false)
	if fsErr == nil || fsErr.Code != "not_empty" {
		t.Fatalf("expected not_empty, got %+v", fsErr)
	}

	if fsErr := ops.DeletePath(dir, true); fsErr != nil {
		t.Fatalf("recursive delete failed: %+v", fsErr)
	}
}

func TestListDirectorySortsByNameCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	ops := newTestOperations(t, root)
	for _, name := range []string{"Banana.txt", "apple.txt", "cherry.txt"} {
		os.WriteFile(filepath.Join(root, name), []byte("x"), 0644)
	}

	listing, fsErr := ops.ListDirectory(root, true, protocol.SortByName, protocol.SortAsc)
	if fsErr != nil {
		t.Fatalf("list failed: %+v", fsErr)
	}
	if len(listing.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(listing.Entries))
	}
	if listing.Entries[0].Name != "apple.txt" || listing.Entries[2].Name != "cherry.txt" {
		t.Fatalf("unexpected sort order: %+v", listing.Entries)
	}
}

func TestListDirectoryHidesDotfilesByDefault(t *testing.T) {
	root := t.TempDir()
	ops := newTestOperations(t, root)
	os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(root, "visible.txt"), []byte("x"), 0644)

	listing, fsErr := ops.ListDirectory(root, false, protocol.SortByName, protocol.SortAsc)
	if fsErr != nil {
		t.Fatalf("list failed: %+v", fsErr)
	}
	if len(listing.Entries) != 1 || listing.Entries[0].Name != "visible.txt" {
		t.Fatalf("expected only visible.txt, got %+v", listing.Entries)
	}
}

func TestRenamePathRejectsExistingDestination(t *testing.T) {
	root := t.TempDir()
	ops := newTestOperations(t, root)
	src := filepath.Join(root, "a.txt")
	dst := filepath.Join(root, "b.txt")
	os.WriteFile(src, []byte("x"), 0644)
	os.WriteFile(dst, []byte("y"), 0644)

	fsErr := ops.RenamePath(src, dst)
	if fsErr == nil || fsErr.Code != "already_exists" {
		t.Fatalf("expected already_exists, got %+v", fsErr)
	}
}

func TestReadFileChunkReportsLastChunk(t *testing.T) {
	root := t.TempDir()
	ops := newTestOperations(t, root)
	target := filepath.Join(root, "data.bin")
	os.WriteFile(target, make([]byte, 10), 0644)

	chunk, fsErr := ops.ReadFileChunk(target, 4, 2)
	if fsErr != nil {
		t.Fatalf("chunk read failed: %+v", fsErr)
	}
	if !chunk.IsLast || chunk.TotalChunks != 3 {
		t.Fatalf("unexpected chunk metadata: %+v", chunk)
	}
}
