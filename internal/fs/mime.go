package fs

import (
	"net/http"
	"path/filepath"
	"strings"
)

// extensionMime mirrors guess_mime_from_extension in
// original_source/cli/src/filesystem/mime.rs.
var extensionMime = map[string]string{
	"rs": "text/x-rust", "py": "text/x-python", "js": "application/javascript",
	"ts": "text/typescript", "tsx": "text/typescript-jsx", "jsx": "text/javascript-jsx",
	"go": "text/x-go", "java": "text/x-java", "c": "text/x-c", "h": "text/x-c",
	"cpp": "text/x-c++", "cc": "text/x-c++", "cxx": "text/x-c++", "hpp": "text/x-c++",
	"rb": "text/x-ruby", "php": "text/x-php", "swift": "text/x-swift",
	"kt": "text/x-kotlin", "kts": "text/x-kotlin", "scala": "text/x-scala",
	"sh": "text/x-shellscript", "bash": "text/x-shellscript", "zsh": "text/x-shellscript",
	"ps1": "text/x-powershell", "html": "text/html", "htm": "text/html",
	"css": "text/css", "scss": "text/x-scss", "sass": "text/x-scss", "less": "text/x-less",
	"xml": "application/xml", "json": "application/json", "yaml": "text/x-yaml",
	"yml": "text/x-yaml", "toml": "text/x-toml", "md": "text/markdown",
	"markdown": "text/markdown", "rst": "text/x-rst", "tex": "text/x-tex",
	"ini": "text/x-ini", "cfg": "text/x-ini", "conf": "text/x-ini", "env": "text/x-env",
	"dockerfile": "text/x-dockerfile", "makefile": "text/x-makefile",
	"gitignore": "text/plain", "gitattributes": "text/plain", "gitmodules": "text/plain",
	"npmrc": "text/plain", "yarnrc": "text/plain", "editorconfig": "text/plain",
	"eslintrc": "text/plain", "eslintignore": "text/plain",
	"prettierrc": "text/plain", "prettierignore": "text/plain",
	"txt": "text/plain", "log": "text/x-log", "csv": "text/csv",
	"svg": "image/svg+xml", "png": "image/png", "jpg": "image/jpeg", "jpeg": "image/jpeg",
	"gif": "image/gif", "webp": "image/webp", "bmp": "image/bmp", "pdf": "application/pdf",
}

var extensionlessMime = map[string]string{
	"dockerfile": "text/x-dockerfile",
	"makefile":   "text/x-makefile",
	"license":    "text/plain",
	"licence":    "text/plain",
	"copying":    "text/plain",
	".ds_store":  "application/octet-stream",
	".gitignore": "text/plain", ".gitattributes": "text/plain", ".gitmodules": "text/plain",
	".npmrc": "text/plain", ".yarnrc": "text/plain", ".editorconfig": "text/plain",
	".prettierrc": "text/plain", ".prettierignore": "text/plain",
	".eslintrc": "text/plain", ".eslintignore": "text/plain",
	".bashrc": "text/x-shellscript", ".bash_profile": "text/x-shellscript",
	".bash_aliases": "text/x-shellscript", ".profile": "text/x-shellscript",
	".zshrc": "text/x-shellscript", ".zshenv": "text/x-shellscript", ".zprofile": "text/x-shellscript",
	".env": "text/x-env",
}

// GuessMimeFromExtension mirrors the original's filename/extension
// heuristic table exactly, including its dotfile special cases.
func GuessMimeFromExtension(filename string) string {
	lower := strings.ToLower(filename)

	if mime, ok := extensionlessMime[lower]; ok {
		return mime
	}
	if strings.HasPrefix(lower, ".env") {
		return "text/x-env"
	}

	ext := strings.TrimPrefix(filepath.Ext(lower), ".")
	if mime, ok := extensionMime[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// DetectMimeType sniffs buffer's content via the standard library's
// content-type table, falling back to the extension guess, and finally
// to "text/plain" when the extension is unknown but the buffer looks
// like text. No pack example or ecosystem library in the corpus does
// content-sniffing MIME detection (the original used the `infer` crate);
// net/http.DetectContentType is the stdlib's direct equivalent and is
// used here instead of introducing an unrelated third-party sniffer.
func DetectMimeType(buffer []byte, filename string) string {
	if len(buffer) > 0 {
		sniffed := http.DetectContentType(buffer)
		if base, _, ok := strings.Cut(sniffed, ";"); ok {
			sniffed = strings.TrimSpace(base)
		}
		if sniffed != "application/octet-stream" && sniffed != "text/plain" {
			return sniffed
		}
	}

	guessed := GuessMimeFromExtension(filename)
	if guessed == "application/octet-stream" && IsProbablyText(buffer) {
		return "text/plain"
	}
	return guessed
}

// IsProbablyText is a best-effort heuristic for treating unknown-
// extension files (dotfiles, extensionless configs) as text rather than
// binary.
func IsProbablyText(buffer []byte) bool {
	if len(buffer) == 0 {
		return true
	}
	for _, b := range buffer {
		if b == 0 {
			return false
		}
	}
	if len(buffer) >= 2 && ((buffer[0] == 0xFF && buffer[1] == 0xFE) || (buffer[0] == 0xFE && buffer[1] == 0xFF)) {
		return true
	}
	if !isValidUTF8(buffer) {
		return false
	}

	control := 0
	for _, b := range buffer {
		if b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		if b < 0x20 {
			control++
		}
	}
	return control*10 <= len(buffer)
}

func isValidUTF8(b []byte) bool {
	return strings.ToValidUTF8(string(b), "�") == string(b)
}

// IsTextMime reports whether a MIME type should be treated as text for
// read_file's UTF-8 vs base64 encoding decision.
func IsTextMime(mime string) bool {
	return strings.HasPrefix(mime, "text/") ||
		mime == "application/json" ||
		mime == "application/javascript" ||
		mime == "application/xml" ||
		strings.HasSuffix(mime, "+xml") ||
		strings.HasSuffix(mime, "+json")
}
