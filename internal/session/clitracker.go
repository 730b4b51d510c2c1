package session

import "strings"

// CliKind identifies which interactive CLI a PTY session is believed to be
// running, used to pick a default approval_model when a WaitingState has
// none recorded explicitly.
type CliKind string

const (
	CliClaude   CliKind = "claude"
	CliCodex    CliKind = "codex"
	CliGemini   CliKind = "gemini"
	CliOpenCode CliKind = "opencode"
	CliUnknown  CliKind = "unknown"
)

// knownBinaries maps a substring that may appear in a launch command to
// the CLI kind it identifies. Order matters only in that the first match
// wins; the set is small enough that overlap is not a concern in practice.
var knownBinaries = []struct {
	substr string
	kind   CliKind
}{
	{"claude", CliClaude},
	{"codex", CliCodex},
	{"gemini", CliGemini},
	{"opencode", CliOpenCode},
}

// CliTracker tracks the currently detected CLI kind for a session plus the
// hash of its last observed prompt, seeded from the launch command and
// re-evaluated as output banners are observed.
type CliTracker struct {
	Kind           CliKind
	LastPromptHash uint64
}

// NewCliTracker seeds a tracker from the command used to launch the
// session, matching known binary names as a substring of the full
// command line.
func NewCliTracker(command string) *CliTracker {
	return &CliTracker{Kind: detectKind(command)}
}

// Observe re-evaluates the tracked kind against a fresh chunk of
// normalized output, in case the launch command was a generic shell that
// later exec'd a recognizable CLI.
func (c *CliTracker) Observe(normalized string) {
	if c.Kind != CliUnknown {
		return
	}
	c.Kind = detectKind(normalized)
}

func detectKind(text string) CliKind {
	lower := strings.ToLower(text)
	for _, kb := range knownBinaries {
		if strings.Contains(lower, kb.substr) {
			return kb.kind
		}
	}
	return CliUnknown
}

// DefaultApprovalModel returns the fallback keystroke grammar for a
// session with no WaitingState.approval_model recorded explicitly.
func (c *CliTracker) DefaultApprovalModel() ApprovalModel {
	switch c.Kind {
	case CliClaude:
		return ApprovalNumbered
	case CliCodex, CliGemini:
		return ApprovalArrow
	default:
		return ApprovalNone
	}
}
