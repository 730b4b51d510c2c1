package fs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/artpar/mobilecli/internal/protocol"
)

const maxContentMatchesPerFile = 20

// FileSearch walks a directory tree looking for name-pattern and
// optional content-pattern matches. Grounded structurally on
// original_source/cli/src/filesystem/search.rs, which builds on Rust's
// `ignore` crate for a parallel gitignore-aware walk; no pack example
// imports an equivalent Go walker or gitignore library, so the walk
// itself uses filepath.WalkDir from the standard library, fanned out
// across a bounded worker pool, with candidate names matched against
// GlobMatch (internal/fs/glob.go).
type FileSearch struct {
	validator *Validator
	workers   int
}

func NewFileSearch(validator *Validator) *FileSearch {
	return &FileSearch{validator: validator, workers: 8}
}

type searchCandidate struct {
	path string
	info fs.FileInfo
}

// Search walks root looking for entries whose base name matches
// pattern. maxResults bounds the result count; truncated is true iff
// strictly more than maxResults matches were discovered — decided via
// an atomic reservation counter so that under concurrent workers no
// more than maxResults entries are ever built past the cutoff, rather
// than over-producing and trimming after the fact.
func (fsrch *FileSearch) Search(root, pattern string, contentPattern *string, maxDepth *int, maxResults int) (string, []protocol.SearchMatch, bool, *protocol.FileSystemError) {
	canonicalRoot, fsErr := fsrch.validator.ValidateExisting(root)
	if fsErr != nil {
		return "", nil, false, fsErr
	}
	if maxResults <= 0 {
		maxResults = 1000
	}

	candidates := make(chan searchCandidate, fsrch.workers*2)
	var walkErr error

	go func() {
		defer close(candidates)
		walkErr = filepath.WalkDir(canonicalRoot, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if p != canonicalRoot && maxDepth != nil {
				depth := strings.Count(strings.TrimPrefix(p, canonicalRoot), string(filepath.Separator))
				if depth > *maxDepth {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
			}
			if d.IsDir() && d.Name() == ".git" {
				return filepath.SkipDir
			}
			if fsrch.validator.IsDenied(p) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !GlobMatch(pattern, d.Name()) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			candidates <- searchCandidate{path: p, info: info}
			return nil
		})
	}()

	var reserved atomic.Int64
	var mu sync.Mutex
	var matches []protocol.SearchMatch
	var overflow atomic.Bool

	var wg sync.WaitGroup
	for i := 0; i < fsrch.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range candidates {
				for {
					cur := reserved.Load()
					if cur >= int64(maxResults) {
						overflow.Store(true)
						break
					}
					if reserved.CompareAndSwap(cur, cur+1) {
						match := buildSearchMatch(cand.path, cand.info, contentPattern)
						mu.Lock()
						matches = append(matches, match)
						mu.Unlock()
						break
					}
				}
			}
		}()
	}
	wg.Wait()
	_ = walkErr

	sortSearchMatches(matches)
	return canonicalRoot, matches, overflow.Load(), nil
}

func sortSearchMatches(matches []protocol.SearchMatch) {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Path < matches[j-1].Path; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
}

func buildSearchMatch(path string, info fs.FileInfo, contentPattern *string) protocol.SearchMatch {
	name := filepath.Base(path)
	entry := protocol.FileEntry{
		Name:        name,
		Path:        path,
		IsDirectory: info.IsDir(),
		IsSymlink:   info.Mode()&os.ModeSymlink != 0,
		IsHidden:    IsHidden(name),
		Size:        info.Size(),
		Modified:    info.ModTime().Unix(),
	}
	if !entry.IsDirectory {
		mime := GuessMimeFromExtension(name)
		entry.MimeType = &mime
	}
	perm := FormatPermissions(info)
	entry.Permissions = &perm

	var contentMatches []protocol.ContentMatch
	if contentPattern != nil && !entry.IsDirectory {
		contentMatches = searchFileContent(path, *contentPattern)
	}

	return protocol.SearchMatch{
		Path:           path,
		Entry:          entry,
		ContentMatches: contentMatches,
	}
}

func searchFileContent(path, pattern string) []protocol.ContentMatch {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	if !IsProbablyText(data) {
		return nil
	}

	var matches []protocol.ContentMatch
	for lineNo, line := range strings.Split(string(data), "\n") {
		if len(matches) >= maxContentMatchesPerFile {
			break
		}
		if idx := strings.Index(line, pattern); idx >= 0 {
			matches = append(matches, protocol.ContentMatch{
				LineNumber:  lineNo + 1,
				LineContent: line,
				MatchStart:  idx,
				MatchEnd:    idx + len(pattern),
			})
		}
	}
	return matches
}
