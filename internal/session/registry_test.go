package session

import "testing"

func newTestSession(id string) *PtySession {
	return &PtySession{
		SessionID:  id,
		Name:       id,
		Scrollback: NewScrollbackRing(DefaultScrollbackSize),
		Cli:        NewCliTracker("bash"),
	}
}

func TestRegistryViewCountTransitions(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterSession(newTestSession("S1")); err != nil {
		t.Fatalf("RegisterSession: %v", err)
	}
	r.RegisterPeer(NewMobilePeer("p1", "10.0.0.1"))
	r.RegisterPeer(NewMobilePeer("p2", "10.0.0.2"))

	if first := r.Subscribe("p1", "S1"); !first {
		t.Fatal("expected first subscribe to report 0->1 transition")
	}
	if second := r.Subscribe("p2", "S1"); second {
		t.Fatal("expected second subscribe to not report a transition")
	}
	if got := r.ViewCount("S1"); got != 2 {
		t.Fatalf("ViewCount = %d, want 2", got)
	}

	if dropped := r.Unsubscribe("p1", "S1"); dropped {
		t.Fatal("unsubscribe with a remaining viewer should not report 1->0")
	}
	if dropped := r.Unsubscribe("p2", "S1"); !dropped {
		t.Fatal("expected last unsubscribe to report 1->0 transition")
	}
	if got := r.ViewCount("S1"); got != 0 {
		t.Fatalf("ViewCount = %d, want 0", got)
	}
}

func TestRegistryUnregisterPeerCleansUpRefcounts(t *testing.T) {
	r := NewRegistry()
	r.RegisterSession(newTestSession("S1"))
	r.RegisterPeer(NewMobilePeer("p1", "10.0.0.1"))

	r.Subscribe("p1", "S1")
	r.WatchPath("p1", "/home/u/project")

	zeroedSessions, zeroedPaths := r.UnregisterPeer("p1")
	if len(zeroedSessions) != 1 || zeroedSessions[0] != "S1" {
		t.Fatalf("zeroedSessions = %v, want [S1]", zeroedSessions)
	}
	if len(zeroedPaths) != 1 || zeroedPaths[0] != "/home/u/project" {
		t.Fatalf("zeroedPaths = %v, want [/home/u/project]", zeroedPaths)
	}
	if r.ViewCount("S1") != 0 || r.WatchCount("/home/u/project") != 0 {
		t.Fatal("expected refcounts to be fully released")
	}
}

func TestRegistrySetWaitingDedupsOnSameTransition(t *testing.T) {
	r := NewRegistry()
	r.RegisterSession(newTestSession("S1"))

	ev := &WaitEvent{WaitType: WaitToolApproval, ApprovalModel: ApprovalYesNo, PromptHash: 42}
	changed, _ := r.SetWaiting("S1", ev)
	if !changed {
		t.Fatal("expected first SetWaiting to transition")
	}

	changed, _ = r.SetWaiting("S1", ev)
	if changed {
		t.Fatal("expected identical (wait_type, prompt_hash) to not re-transition")
	}

	other := &WaitEvent{WaitType: WaitToolApproval, ApprovalModel: ApprovalYesNo, PromptHash: 99}
	changed, _ = r.SetWaiting("S1", other)
	if !changed {
		t.Fatal("expected a differing prompt_hash to transition")
	}
}

func TestRegistryClearWaitingReportsRealTransitionOnly(t *testing.T) {
	r := NewRegistry()
	r.RegisterSession(newTestSession("S1"))

	if r.ClearWaiting("S1") {
		t.Fatal("expected clearing an unset waiting state to report false")
	}

	r.SetWaiting("S1", &WaitEvent{WaitType: WaitAwaitingResponse, ApprovalModel: ApprovalNone, PromptHash: 1})
	if !r.ClearWaiting("S1") {
		t.Fatal("expected clearing a set waiting state to report true")
	}
	if r.ClearWaiting("S1") {
		t.Fatal("expected second clear to report false")
	}
}
