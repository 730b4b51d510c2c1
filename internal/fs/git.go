package fs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// GitStatus is the simplified per-path status classification attached to
// FileEntry.GitStatus, grounded on
// original_source/cli/src/filesystem/git.rs's GitStatus enum.
type GitStatus string

const (
	GitUntracked GitStatus = "untracked"
	GitModified  GitStatus = "modified"
	GitAdded     GitStatus = "added"
	GitDeleted   GitStatus = "deleted"
	GitIgnored   GitStatus = "ignored"
)

const gitStatusTimeout = 3 * time.Second

// StatusMapForPath returns a path->GitStatus map for every changed entry
// in the repository enclosing dir, or nil if dir is not inside a git
// repository, the git binary is unavailable, or the command fails — in
// every case the caller simply omits git_status, never an error.
func StatusMapForPath(dir string) map[string]GitStatus {
	root := findRepoRoot(dir)
	if root == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gitStatusTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "git", "-C", root, "status",
		"--porcelain", "--ignored", "--untracked-files=normal").Output()
	if err != nil {
		return nil
	}

	result := make(map[string]GitStatus)
	for _, line := range strings.Split(string(out), "\n") {
		if len(line) < 3 {
			continue
		}
		status, ok := parseStatusLine(line)
		if !ok {
			continue
		}
		rel := parsePathFromStatus(line)
		if rel == "" {
			continue
		}
		result[filepath.Join(root, rel)] = status
	}
	return result
}

// StatusForPath returns the git status for a single path, or the zero
// value and false if unavailable.
func StatusForPath(path string) (GitStatus, bool) {
	dir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}
	root := findRepoRoot(dir)
	if root == "" {
		return "", false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), gitStatusTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "git", "-C", root, "status",
		"--porcelain", "--ignored", "--untracked-files=normal", "--", rel).Output()
	if err != nil {
		return "", false
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return "", false
	}
	return parseStatusLine(lines[0])
}

func findRepoRoot(dir string) string {
	current := dir
	for {
		if info, err := os.Stat(filepath.Join(current, ".git")); err == nil && info != nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

func parseStatusLine(line string) (GitStatus, bool) {
	if len(line) < 2 {
		return "", false
	}
	status := line[0:2]
	switch {
	case status == "??":
		return GitUntracked, true
	case status == "!!":
		return GitIgnored, true
	case strings.ContainsRune(status, 'D'):
		return GitDeleted, true
	case strings.ContainsRune(status, 'A'):
		return GitAdded, true
	case strings.ContainsRune(status, 'M'), strings.ContainsRune(status, 'R'), strings.ContainsRune(status, 'C'):
		return GitModified, true
	default:
		return GitModified, true
	}
}

func parsePathFromStatus(line string) string {
	if len(line) < 3 {
		return ""
	}
	raw := strings.TrimSpace(line[3:])
	if idx := strings.Index(raw, " -> "); idx != -1 {
		raw = raw[idx+len(" -> "):]
	}
	return strings.Trim(strings.TrimSpace(raw), `"`)
}
