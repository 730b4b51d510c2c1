//go:build windows

package fs

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// IsHidden reports whether name carries the FILE_ATTRIBUTE_HIDDEN bit
// (falling back to a leading dot), mirroring platform.rs's windows
// is_hidden arm.
func IsHidden(name string) bool {
	pointer, err := syscall.UTF16PtrFromString(name)
	if err == nil {
		attrs, attrErr := syscall.GetFileAttributes(pointer)
		if attrErr == nil && attrs&syscall.FILE_ATTRIBUTE_HIDDEN != 0 {
			return true
		}
	}
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// FormatPermissions renders a coarse rw-/r-- string from the read-only
// attribute, mirroring platform.rs's windows format_permissions arm
// (there is no POSIX mode bit to report).
func FormatPermissions(info os.FileInfo) string {
	if info.Mode().Perm()&0200 == 0 {
		return "r--r--r--"
	}
	return "rw-rw-rw-"
}
