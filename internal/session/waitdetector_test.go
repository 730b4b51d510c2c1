package session

import "testing"

func TestDetectNumberedToolApproval(t *testing.T) {
	buf := "Do you want to proceed?\n❯ 1. Yes\n  2. Yes, always\n  3. No"
	ev := Detect(buf, CliClaude)
	if ev == nil {
		t.Fatal("expected a wait event")
	}
	if ev.WaitType != WaitToolApproval || ev.ApprovalModel != ApprovalNumbered {
		t.Fatalf("got %+v", ev)
	}
}

func TestDetectYesNoToolApproval(t *testing.T) {
	buf := "Overwrite existing file? (y/n)"
	ev := Detect(buf, CliUnknown)
	if ev == nil || ev.WaitType != WaitToolApproval || ev.ApprovalModel != ApprovalYesNo {
		t.Fatalf("got %+v", ev)
	}
}

func TestDetectPlanApprovalInheritsNumbered(t *testing.T) {
	buf := "Here is the plan...\nWould you like to proceed with this plan?\n❯ 1. Yes\n  2. No"
	ev := Detect(buf, CliClaude)
	if ev == nil || ev.WaitType != WaitPlanApproval || ev.ApprovalModel != ApprovalNumbered {
		t.Fatalf("got %+v", ev)
	}
}

func TestDetectArrowClarifyingQuestion(t *testing.T) {
	buf := "Which file do you mean?\n❯ main.go"
	ev := Detect(buf, CliCodex)
	if ev == nil || ev.WaitType != WaitClarifyingQuestion || ev.ApprovalModel != ApprovalArrow {
		t.Fatalf("got %+v", ev)
	}
}

func TestDetectBarePromptAwaitingResponse(t *testing.T) {
	buf := "some output\n$ "
	ev := Detect(buf, CliUnknown)
	if ev == nil || ev.WaitType != WaitAwaitingResponse || ev.ApprovalModel != ApprovalNone {
		t.Fatalf("got %+v", ev)
	}
}

func TestDetectNoMatch(t *testing.T) {
	if ev := Detect("just some regular log output\nnothing to see here", CliUnknown); ev != nil {
		t.Fatalf("expected nil, got %+v", ev)
	}
}

func TestPromptHashStableAcrossRerender(t *testing.T) {
	a := PromptHash("Overwrite file?   (y/n)")
	b := PromptHash("Overwrite   file? (y/n)  ")
	if a != b {
		t.Fatalf("expected stable hash across whitespace re-render, got %d vs %d", a, b)
	}
}

func TestShouldClearThreshold(t *testing.T) {
	if ShouldClear("fewchars") {
		t.Fatal("expected under-10 non-whitespace chars to not clear")
	}
	if !ShouldClear("this is definitely more than ten chars") {
		t.Fatal("expected 10+ non-whitespace chars to clear")
	}
}
