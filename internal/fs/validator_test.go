package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestValidator(t *testing.T, root string) *Validator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AllowedRoots = []string{root}
	cfg.DeniedGlobs = []string{"**/.ssh/*"}
	return NewValidator(cfg)
}

func TestValidateExistingRejectsParentDirComponent(t *testing.T) {
	root := t.TempDir()
	v := newTestValidator(t, root)

	// Built by concatenation: filepath.Join would clean the ".." away.
	_, fsErr := v.ValidateExisting(root + "/../etc/passwd")
	if fsErr == nil || fsErr.Code != "path_traversal" {
		t.Fatalf("expected path_traversal, got %+v", fsErr)
	}
}

func TestValidateExistingRejectsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	v := newTestValidator(t, root)

	outside := t.TempDir()
	target := filepath.Join(outside, "f.txt")
	os.WriteFile(target, []byte("x"), 0644)

	_, fsErr := v.ValidateExisting(target)
	if fsErr == nil || fsErr.Code != "permission_denied" {
		t.Fatalf("expected permission_denied, got %+v", fsErr)
	}
}

func TestValidateExistingAcceptsContainedPath(t *testing.T) {
	root := t.TempDir()
	v := newTestValidator(t, root)

	target := filepath.Join(root, "sub", "f.txt")
	os.MkdirAll(filepath.Dir(target), 0755)
	os.WriteFile(target, []byte("x"), 0644)

	canonical, fsErr := v.ValidateExisting(target)
	if fsErr != nil {
		t.Fatalf("unexpected error: %+v", fsErr)
	}
	if canonical == "" {
		t.Fatal("expected a canonical path")
	}
}

func TestValidateExistingRejectsSymlinkWhenNotFollowing(t *testing.T) {
	root := t.TempDir()
	v := newTestValidator(t, root)

	real := filepath.Join(root, "real.txt")
	os.WriteFile(real, []byte("x"), 0644)
	link := filepath.Join(root, "link.txt")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, fsErr := v.ValidateExisting(link)
	if fsErr == nil || fsErr.Code != "permission_denied" {
		t.Fatalf("expected permission_denied for symlink, got %+v", fsErr)
	}
}

func TestResolveNewPathRejectsFileAncestor(t *testing.T) {
	root := t.TempDir()
	v := newTestValidator(t, root)

	filePath := filepath.Join(root, "notadir")
	os.WriteFile(filePath, []byte("x"), 0644)

	_, fsErr := v.ResolveNewPath(filepath.Join(filePath, "child.txt"), true)
	if fsErr == nil || fsErr.Code != "not_a_directory" {
		t.Fatalf("expected not_a_directory, got %+v", fsErr)
	}
}

func TestIsWritableHonorsReadOnlyGlobs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReadOnlyGlobs = []string{"/etc/**"}
	v := NewValidator(cfg)

	if v.IsWritable("/etc/hosts") {
		t.Fatal("expected /etc/hosts to be read-only")
	}
	if !v.IsWritable("/home/user/f.txt") {
		t.Fatal("expected /home/user/f.txt to be writable")
	}
}
