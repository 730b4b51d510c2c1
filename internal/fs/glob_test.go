package fs

import "testing"

func TestGlobMatchDoubleStarCrossesSegments(t *testing.T) {
	cases := []struct {
		pattern, name string
		want          bool
	}{
		{"**/.ssh/*", "/home/user/.ssh/id_rsa", true},
		{"**/.ssh/*", "/home/user/.ssh/keys/id_rsa", false},
		{"**/*.pem", "/a/b/c/cert.pem", true},
		{"/etc/**", "/etc/passwd", true},
		{"/etc/**", "/etc/ssl/certs/ca.pem", true},
		{"/etc/**", "/usr/local/bin", false},
		{"**/token*", "/home/u/token.json", true},
		{"**/token*", "/home/u/tokens/a", false},
	}

	for _, c := range cases {
		if got := GlobMatch(c.pattern, c.name); got != c.want {
			t.Errorf("GlobMatch(%q, %q) = %v, want %v", c.pattern, c.name, got, c.want)
		}
	}
}

func TestMatchSegmentWildcards(t *testing.T) {
	if !matchSegment("*.pem", "cert.pem") {
		t.Error("expected *.pem to match cert.pem")
	}
	if matchSegment("*.pem", "cert.key") {
		t.Error("expected *.pem to not match cert.key")
	}
	if !matchSegment("id_rsa?", "id_rsa1") {
		t.Error("expected id_rsa? to match id_rsa1")
	}
}
