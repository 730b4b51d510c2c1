package fs

import "os"

// Config mirrors FileSystemConfig from spec.md §3, grounded on
// original_source/cli/src/filesystem/config.rs's Default impl.
type Config struct {
	AllowedRoots    []string
	DeniedGlobs     []string
	ReadOnlyGlobs   []string
	MaxReadSize     int64
	MaxWriteSize    int64
	FollowSymlinks  bool
	MaxListEntries  int
	MaxSearchResult int
}

// DefaultConfig returns the same defaults as the original Rust
// implementation: the caller's home directory as the sole allowed root,
// a deny-list of common secret file patterns, 50MB read/write caps, and
// symlink-following disabled.
func DefaultConfig() Config {
	root := ""
	if home, err := os.UserHomeDir(); err == nil {
		root = home
	} else if cwd, err := os.Getwd(); err == nil {
		root = cwd
	}

	roots := []string{}
	if root != "" {
		roots = append(roots, root)
	}

	return Config{
		AllowedRoots: roots,
		DeniedGlobs: []string{
			"**/.ssh/*",
			"**/*.pem",
			"**/*.key",
			"**/id_rsa*",
			"**/.gnupg/*",
			"**/.aws/credentials",
			"**/.env",
			"**/.env.*",
			"**/secrets.*",
			"**/*.secret",
			"**/token*",
			"**/.npmrc",
			"**/.pypirc",
		},
		MaxReadSize:    50 * 1024 * 1024,
		MaxWriteSize:   50 * 1024 * 1024,
		FollowSymlinks: false,
		ReadOnlyGlobs: []string{
			"/etc/**",
			"/usr/**",
			"/bin/**",
			"/sbin/**",
			"/System/**",
			"/Library/**",
			"C:\\Windows\\**",
		},
		MaxListEntries:  10_000,
		MaxSearchResult: 1_000,
	}
}
