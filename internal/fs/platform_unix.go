//go:build !windows

package fs

import (
	"os"
	"path/filepath"
	"strings"
)

// IsHidden reports whether name should be treated as hidden, mirroring
// original_source/cli/src/filesystem/platform.rs's unix is_hidden: any
// dotfile other than "." and "..".
func IsHidden(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// FormatPermissions renders a POSIX permission string ("rwxr-xr-x"),
// grounded on platform.rs's format_permissions/format_rwx for the unix
// cfg arm.
func FormatPermissions(info os.FileInfo) string {
	mode := info.Mode().Perm()
	return formatRWX(uint32(mode>>6)&7) + formatRWX(uint32(mode>>3)&7) + formatRWX(uint32(mode)&7)
}

func formatRWX(bits uint32) string {
	r, w, x := byte('-'), byte('-'), byte('-')
	if bits&4 != 0 {
		r = 'r'
	}
	if bits&2 != 0 {
		w = 'w'
	}
	if bits&1 != 0 {
		x = 'x'
	}
	return string([]byte{r, w, x})
}
