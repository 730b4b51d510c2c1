package fs

import "strings"

// GlobMatch reports whether name matches pattern, supporting '*' (any
// run of characters within one path segment), '?' (any single
// character within one segment), and '**' (any run of whole segments,
// including zero). No pack example or ecosystem dependency in the
// corpus implements this exact glob-with-doublestar grammar (the
// original used the `glob-match` crate, which has no direct Go
// equivalent among the examples' dependencies), so it is hand-rolled
// here and kept deliberately small: segment-split plus per-segment
// wildcard matching, mirroring how doublestar-style matchers are
// structured.
func GlobMatch(pattern, name string) bool {
	name = strings.ReplaceAll(name, "\\", "/")
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	return matchSegments(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

func matchSegments(pat, name []string) bool {
	if len(pat) == 0 {
		return len(name) == 0
	}

	if pat[0] == "**" {
		if matchSegments(pat[1:], name) {
			return true
		}
		for i := 0; i < len(name); i++ {
			if matchSegments(pat[1:], name[i+1:]) {
				return true
			}
		}
		return false
	}

	if len(name) == 0 {
		return false
	}
	if !matchSegment(pat[0], name[0]) {
		return false
	}
	return matchSegments(pat[1:], name[1:])
}

// matchSegment matches a single path segment against a pattern
// containing '*' and '?' wildcards, via the standard two-pointer
// wildcard algorithm with a remembered star position for backtracking.
func matchSegment(pattern, s string) bool {
	p := []rune(pattern)
	n := []rune(s)
	pi, si := 0, 0
	starIdx, starSi := -1, -1

	for si < len(n) {
		if pi < len(p) && (p[pi] == '?' || p[pi] == n[si]) {
			pi++
			si++
			continue
		}
		if pi < len(p) && p[pi] == '*' {
			starIdx = pi
			starSi = si
			pi++
			continue
		}
		if starIdx != -1 {
			pi = starIdx + 1
			starSi++
			si = starSi
			continue
		}
		return false
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
