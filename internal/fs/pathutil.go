package fs

import (
	"os"
	"path/filepath"
)

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// resolveSymlinks canonicalizes path the way Rust's Path::canonicalize
// does: absolute, symlinks resolved, cleaned.
func resolveSymlinks(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(resolved), nil
}

// findExistingAncestor walks up from path until it finds a component
// that exists on disk, returning that ancestor and the remaining
// relative suffix.
func findExistingAncestor(path string) (ancestor string, rel string) {
	current := filepath.Clean(path)
	var components []string // deepest-first
	for {
		if exists(current) {
			for i, j := 0, len(components)-1; i < j; i, j = i+1, j-1 {
				components[i], components[j] = components[j], components[i]
			}
			return current, filepath.Join(components...)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", ""
		}
		components = append(components, filepath.Base(current))
		current = parent
	}
}
