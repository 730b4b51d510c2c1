package fs

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/artpar/mobilecli/internal/protocol"
)

// Validator enforces containment within allow-listed roots, deny-glob
// rejection, read-only-glob writability, and symlink rejection. Grounded
// on original_source/cli/src/filesystem/security.rs's PathValidator,
// reimplemented without a jail crate: Go's filepath.Abs/EvalSymlinks plus
// a lexical-prefix containment check covers the same invariant.
type Validator struct {
	cfg Config

	symlinkMu    sync.Mutex
	symlinkCache map[string]bool
}

// NewValidator creates a Validator bound to cfg.
func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg, symlinkCache: make(map[string]bool)}
}

// ValidateExisting validates a path that must already exist on disk,
// returning its canonical form.
func (v *Validator) ValidateExisting(path string) (string, *protocol.FileSystemError) {
	if !filepath.IsAbs(path) || containsParentDir(path) {
		return "", protocol.PathTraversal(path)
	}

	canonical, err := resolveSymlinks(path)
	if err != nil {
		return "", protocol.IOError(err.Error())
	}

	if fsErr := v.ensureAllowed(canonical); fsErr != nil {
		return "", fsErr
	}
	if fsErr := v.ensureNotDenied(canonical); fsErr != nil {
		return "", fsErr
	}
	if !v.cfg.FollowSymlinks && v.containsSymlink(filepath.Clean(path)) {
		return "", protocol.PermissionDenied("symlinked paths are not allowed")
	}

	return canonical, nil
}

// ResolveNewPath resolves a path that may not exist yet (create/rename
// targets): it canonicalizes the nearest existing ancestor, verifies no
// ancestor component is a regular file standing in for a directory, then
// rejoins the remaining relative portion.
func (v *Validator) ResolveNewPath(path string, allowMissingParents bool) (string, *protocol.FileSystemError) {
	if !filepath.IsAbs(path) || containsParentDir(path) {
		return "", protocol.PathTraversal(path)
	}

	parent := filepath.Dir(path)
	if fsErr := v.ensureNoFileAncestor(parent); fsErr != nil {
		return "", fsErr
	}

	if !allowMissingParents && !exists(parent) {
		return "", protocol.NotFound()
	}

	ancestor, rel := findExistingAncestor(path)
	if ancestor == "" {
		return "", protocol.NotFound()
	}

	canonicalAncestor, err := resolveSymlinks(ancestor)
	if err != nil {
		return "", protocol.IOError(err.Error())
	}

	if fsErr := v.ensureAllowed(canonicalAncestor); fsErr != nil {
		return "", fsErr
	}
	if fsErr := v.ensureNotDenied(canonicalAncestor); fsErr != nil {
		return "", fsErr
	}
	if !v.cfg.FollowSymlinks && v.containsSymlink(ancestor) {
		return "", protocol.PermissionDenied("symlinked paths are not allowed")
	}

	resolved := filepath.Join(canonicalAncestor, rel)
	if fsErr := v.ensureNotDenied(resolved); fsErr != nil {
		return "", fsErr
	}
	return resolved, nil
}

// IsWritable reports whether path does not match any read-only glob.
func (v *Validator) IsWritable(path string) bool {
	normalized := normalizeForMatch(path)
	for _, pattern := range v.cfg.ReadOnlyGlobs {
		if GlobMatch(pattern, normalized) {
			return false
		}
	}
	return true
}

// IsDenied reports whether path matches any deny glob.
func (v *Validator) IsDenied(path string) bool {
	normalized := normalizeForMatch(path)
	for _, pattern := range v.cfg.DeniedGlobs {
		if GlobMatch(pattern, normalized) {
			return true
		}
	}
	return false
}

func (v *Validator) ensureAllowed(path string) *protocol.FileSystemError {
	normalized := normalizeForMatch(path)
	for _, root := range v.cfg.AllowedRoots {
		rootNorm := normalizeForMatch(root)
		if normalized == rootNorm || strings.HasPrefix(normalized, rootNorm+"/") {
			return nil
		}
	}
	return protocol.PermissionDenied("path is outside allowed directories")
}

func (v *Validator) ensureNotDenied(path string) *protocol.FileSystemError {
	if v.IsDenied(path) {
		return protocol.PermissionDenied("path matches a denied pattern")
	}
	return nil
}

func (v *Validator) ensureNoFileAncestor(parent string) *protocol.FileSystemError {
	var current string
	for _, part := range strings.Split(filepath.ToSlash(parent), "/") {
		if part == "" {
			current = "/"
			continue
		}
		current = filepath.Join(current, part)
		if isRegularFile(current) {
			return protocol.NotADirectory()
		}
	}
	return nil
}

func (v *Validator) containsSymlink(path string) bool {
	var current string
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" {
			current = "/"
			continue
		}
		current = filepath.Join(current, part)

		v.symlinkMu.Lock()
		cached, ok := v.symlinkCache[current]
		v.symlinkMu.Unlock()
		if ok {
			if cached {
				return true
			}
			continue
		}

		isLink := isSymlink(current)
		v.symlinkMu.Lock()
		v.symlinkCache[current] = isLink
		v.symlinkMu.Unlock()
		if isLink {
			return true
		}
	}
	return false
}

func containsParentDir(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

func normalizeForMatch(path string) string {
	return filepath.ToSlash(path)
}
