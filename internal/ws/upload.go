package ws

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Upload filename budget, grounded on original_source/cli/src/daemon.rs's
// UPLOAD_COMPONENT_BUDGET_BYTES/UPLOAD_DEST_PREFIX_BYTES/UPLOAD_TEMP_SUFFIX_BYTES:
// the sanitized name must leave room for the "YYYYMMDD-HHMMSS-XXXXXXXX-"
// destination prefix and a ".tmp-<uuid-v4>" rename suffix within a 90-byte
// total component budget.
const (
	uploadComponentBudgetBytes = 90
	uploadDestPrefixBytes      = 25
	uploadTempSuffixBytes      = 41
	maxUploadFileNameBytes     = uploadComponentBudgetBytes - uploadDestPrefixBytes - uploadTempSuffixBytes
)

var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// sanitizeUploadFileName replaces path separators, reserved punctuation
// and control characters in a client-supplied upload filename with '_',
// appends "_file" to Windows reserved names, and truncates the result to
// fit maxUploadFileNameBytes while preserving its extension where
// possible. Grounded on daemon.rs's sanitize_upload_file_name.
func sanitizeUploadFileName(fileName string) string {
	trimmed := strings.TrimSpace(fileName)
	candidate := trimmed
	if candidate == "" {
		candidate = "attachment.bin"
	}

	var b strings.Builder
	for _, ch := range candidate {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, ch):
			b.WriteRune('_')
		case ch < 0x20 || ch == 0x7f:
			b.WriteRune('_')
		default:
			b.WriteRune(ch)
		}
	}
	sanitized := strings.Join(strings.Fields(b.String()), "_")
	sanitized = strings.Trim(sanitized, ".")
	sanitized = strings.TrimSpace(sanitized)
	if sanitized == "" {
		return "attachment.bin"
	}

	stem, _, _ := strings.Cut(sanitized, ".")
	if isWindowsReservedName(stem) {
		sanitized += "_file"
	}

	if len(sanitized) > maxUploadFileNameBytes {
		sanitized = truncateFileNamePreservingExtension(sanitized, maxUploadFileNameBytes)
		sanitized = strings.TrimSpace(strings.Trim(sanitized, "."))
		if sanitized == "" {
			return "attachment.bin"
		}
	}
	return sanitized
}

func isWindowsReservedName(name string) bool {
	return windowsReservedNames[strings.ToUpper(strings.TrimSpace(name))]
}

func truncateFileNamePreservingExtension(input string, maxBytes int) string {
	if len(input) <= maxBytes {
		return input
	}

	idx := strings.LastIndex(input, ".")
	if idx <= 0 || idx == len(input)-1 {
		return truncateUTF8ToMaxBytes(input, maxBytes)
	}
	stem, ext := input[:idx], input[idx+1:]

	extWithDot := "." + ext
	if len(extWithDot) >= maxBytes {
		return truncateUTF8ToMaxBytes(input, maxBytes)
	}

	stemBudget := maxBytes - len(extWithDot)
	stemTruncated := truncateUTF8ToMaxBytes(stem, stemBudget)
	stemTruncated = strings.TrimRight(strings.Trim(stemTruncated, "."), " ")
	if stemTruncated == "" {
		return truncateUTF8ToMaxBytes(input, maxBytes)
	}
	return stemTruncated + extWithDot
}

func truncateUTF8ToMaxBytes(input string, maxBytes int) string {
	var b strings.Builder
	for _, ch := range input {
		if b.Len()+len(string(ch)) > maxBytes {
			break
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// buildUploadDestinationPath mirrors daemon.rs's
// build_upload_destination_path: uploads land under
// <project_path>/.mobilecli/uploads/<timestamp>-<uuid8>-<sanitized name>.
func buildUploadDestinationPath(projectPath, fileName string) string {
	stamp := time.Now().UTC().Format("20060102-150405")
	shortSuffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := fmt.Sprintf("%s-%s-%s", stamp, shortSuffix, sanitizeUploadFileName(fileName))
	return filepath.Join(projectPath, ".mobilecli", "uploads", name)
}
