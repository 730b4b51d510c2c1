package session

import (
	"hash/fnv"
	"regexp"
	"strings"
	"time"
)

// WaitType classifies what a session is blocked on.
type WaitType string

const (
	WaitToolApproval       WaitType = "tool_approval"
	WaitPlanApproval       WaitType = "plan_approval"
	WaitClarifyingQuestion WaitType = "clarifying_question"
	WaitAwaitingResponse   WaitType = "awaiting_response"
)

// ApprovalModel is the keystroke grammar the CLI expects for a response.
type ApprovalModel string

const (
	ApprovalNumbered ApprovalModel = "numbered"
	ApprovalYesNo    ApprovalModel = "yes_no"
	ApprovalArrow    ApprovalModel = "arrow"
	ApprovalNone     ApprovalModel = "none"
)

// WaitEvent is what the detector returns when the pattern buffer matches
// a recognizable blocking prompt.
type WaitEvent struct {
	WaitType      WaitType
	Prompt        string
	ApprovalModel ApprovalModel
	PromptHash    uint64
}

// WaitingState is the session-level record of the current wait event,
// including when it was recorded. At most one exists per session.
type WaitingState struct {
	WaitType      WaitType
	PromptContent string
	Timestamp     time.Time
	ApprovalModel ApprovalModel
	PromptHash    uint64
}

var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;?]*[a-zA-Z]")

// StripANSI removes CSI escape sequences from terminal output.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeOutput strips ANSI sequences and collapses whitespace runs,
// the exact transform applied before bytes are appended to a session's
// pattern buffer.
func NormalizeOutput(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(StripANSI(s), " "))
}

// CountNonWhitespace returns the number of non-whitespace runes in s,
// used to decide whether a chunk is "substantive output" for clearing.
func CountNonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if !strings.ContainsRune(" \t\r\n", r) {
			n++
		}
	}
	return n
}

var numberedChoiceLine = regexp.MustCompile(`(?m)(❯\s*\d+\.|^\s*\d+\.\s+\S)`)
var yesNoPrompt = regexp.MustCompile(`(?i)\(y/n\)|\[y/N\]`)
var planBanner = regexp.MustCompile(`Would you like to proceed with this plan\?`)
var arrowSelectorLine = regexp.MustCompile(`(?m)^\s*❯\s*\S`)
var barePromptSuffix = regexp.MustCompile(`(>|\$)\s*$`)

// Detect classifies the current pattern buffer into a WaitEvent, or
// returns nil if no recognizable blocking prompt is present. The CliKind
// argument is not consulted: the patterns themselves are CLI-agnostic.
func Detect(buffer string, _ CliKind) *WaitEvent {
	switch {
	case planBanner.MatchString(buffer):
		model := ApprovalYesNo
		if numberedChoiceLine.MatchString(buffer) {
			model = ApprovalNumbered
		}
		return makeEvent(WaitPlanApproval, buffer, model)

	case numberedChoiceLine.MatchString(buffer):
		return makeEvent(WaitToolApproval, buffer, ApprovalNumbered)

	case yesNoPrompt.MatchString(buffer):
		return makeEvent(WaitToolApproval, buffer, ApprovalYesNo)

	case arrowSelectorLine.MatchString(buffer):
		return makeEvent(WaitClarifyingQuestion, buffer, ApprovalArrow)

	case barePromptSuffix.MatchString(buffer):
		return makeEvent(WaitAwaitingResponse, buffer, ApprovalNone)

	default:
		return nil
	}
}

func makeEvent(wt WaitType, buffer string, model ApprovalModel) *WaitEvent {
	prompt := promptTail(buffer)
	return &WaitEvent{
		WaitType:      wt,
		Prompt:        prompt,
		ApprovalModel: model,
		PromptHash:    PromptHash(prompt),
	}
}

// promptTail returns the last, bounded slice of the pattern buffer that
// constitutes the prompt text, so prompt_hash is stable even as unrelated
// earlier output scrolls through the buffer.
func promptTail(buffer string) string {
	const maxPromptChars = 500
	if len(buffer) <= maxPromptChars {
		return buffer
	}
	return buffer[len(buffer)-maxPromptChars:]
}

// PromptHash is the FNV-1a 64-bit hash of the normalized prompt text,
// stable across re-renders (resize/redraw) of an identical prompt.
func PromptHash(prompt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(NormalizeOutput(prompt)))
	return h.Sum64()
}

// ShouldClear reports whether a chunk of freshly normalized output (not
// itself matching a wait prompt) is substantive enough to clear a
// session's waiting state: at least 10 non-whitespace characters.
func ShouldClear(normalizedChunk string) bool {
	return CountNonWhitespace(normalizedChunk) >= 10
}
