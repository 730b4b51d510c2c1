package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestSearch(t *testing.T, root string) *FileSearch {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AllowedRoots = []string{root}
	return NewFileSearch(NewValidator(cfg))
}

func TestSearchFindsNamePatternMatches(t *testing.T) {
	root := t.TempDir()
	search := newTestSearch(t, root)

	os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0644)
	os.WriteFile(filepath.Join(root, "main_test.go"), []byte("package main"), 0644)
	os.WriteFile(filepath.Join(root, "readme.md"), []byte("hi"), 0644)

	_, matches, truncated, fsErr := search.Search(root, "*.go", nil, nil, 10)
	if fsErr != nil {
		t.Fatalf("search failed: %+v", fsErr)
	}
	if truncated {
		t.Fatal("did not expect truncation")
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(matches), matches)
	}
}

func TestSearchTruncatesAtMaxResults(t *testing.T) {
	root := t.TempDir()
	search := newTestSearch(t, root)

	for i := 0; i < 20; i++ {
		os.WriteFile(filepath.Join(root, "file"+string(rune('a'+i))+".txt"), []byte("x"), 0644)
	}

	_, matches, truncated, fsErr := search.Search(root, "*.txt", nil, nil, 5)
	if fsErr != nil {
		t.Fatalf("search failed: %+v", fsErr)
	}
	if !truncated {
		t.Fatal("expected truncation")
	}
	if len(matches) != 5 {
		t.Fatalf("expected exactly 5 matches, got %d", len(matches))
	}
}

func TestSearchContentPatternReturnsLineMatches(t *testing.T) {
	root := t.TempDir()
	search := newTestSearch(t, root)
	os.WriteFile(filepath.Join(root, "data.txt"), []byte("alpha\nneedle here\nbeta"), 0644)

	contentPattern := "needle"
	_, matches, _, fsErr := search.Search(root, "*.txt", &contentPattern, nil, 10)
	if fsErr != nil {
		t.Fatalf("search failed: %+v", fsErr)
	}
	if len(matches) != 1 || len(matches[0].ContentMatches) != 1 {
		t.Fatalf("expected one content match, got %+v", matches)
	}
	if matches[0].ContentMatches[0].LineNumber != 2 {
		t.Fatalf("expected line 2, got %d", matches[0].ContentMatches[0].LineNumber)
	}
}
