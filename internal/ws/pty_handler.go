package ws

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/artpar/mobilecli/internal/daemon"
	"github.com/artpar/mobilecli/internal/logging"
	"github.com/artpar/mobilecli/internal/protocol"
	"github.com/artpar/mobilecli/internal/push"
	"github.com/artpar/mobilecli/internal/session"
)

const (
	inputChanBuffer  = 64
	resizeChanBuffer = 16
)

// handlePty runs the lifecycle of one loopback PTY wrapper connection:
// parse its registration frame, insert a PtySession, then steady-state
// select between frames read from the socket and the session's
// input/resize channels (owned by this task, per the registry's
// ownership rule). Grounded on spec.md §4.3.
func (d *Dispatcher) handlePty(conn *websocket.Conn, firstFrame []byte) {
	defer conn.Close()
	plog := logging.WithComponent("pty")

	var reg protocol.RegisterPty
	if err := json.Unmarshal(firstFrame, &reg); err != nil || reg.SessionID == "" {
		plog.Warn("rejected register_pty: empty or unparseable session_id")
		return
	}

	inputCh := make(chan []byte, inputChanBuffer)
	resizeCh := make(chan session.ResizeCmd, resizeChanBuffer)

	sess := &session.PtySession{
		SessionID:   reg.SessionID,
		Name:        firstNonEmpty(reg.Name, reg.SessionID),
		Command:     reg.Command,
		ProjectPath: reg.ProjectPath,
		StartedAt:   time.Now(),
		InputCh:     inputCh,
		ResizeCh:    resizeCh,
		Scrollback:  session.NewScrollbackRing(session.DefaultScrollbackSize),
		Cli:         session.NewCliTracker(reg.Command),
	}
	if err := d.registerSession(sess); err != nil {
		plog.Warn("register_pty rejected", logging.F("session_id", reg.SessionID, "error", err.Error()))
		return
	}

	if err := conn.WriteJSON(map[string]string{"type": protocol.TypeRegistered}); err != nil {
		d.teardownSession(sess.SessionID, -1)
		return
	}

	readerCh := make(chan []byte)
	go func() {
		defer close(readerCh)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			readerCh <- raw
		}
	}()

	exitCode := -1
	for {
		select {
		case data, ok := <-inputCh:
			if !ok {
				continue
			}
			// User input invalidates whatever prompt the pattern buffer was
			// tracking, so the next output chunk can't re-match a prompt
			// that was just answered and produce a spurious re-detection.
			sess.PatternBuffer = ""
			_ = conn.WriteJSON(protocol.DaemonInput{Type: protocol.TypeInput, Data: base64.StdEncoding.EncodeToString(data)})

		case rc, ok := <-resizeCh:
			if !ok {
				continue
			}
			_ = conn.WriteJSON(protocol.DaemonResize{Type: protocol.TypeResize, Cols: rc.Cols, Rows: rc.Rows})

		case raw, ok := <-readerCh:
			if !ok {
				d.teardownSession(sess.SessionID, exitCode)
				return
			}
			if done, code := d.handleWrapperFrame(sess, raw); done {
				exitCode = code
				d.teardownSession(sess.SessionID, exitCode)
				return
			}
		}
	}
}

// registerSession inserts sess into the registry, logs, broadcasts a
// fresh Sessions snapshot, and persists. Shared by the real loopback
// wrapper's registration handshake and SpawnSession's direct-spawn
// fallback, which registers a session itself rather than waiting for an
// external wrapper to dial back in.
func (d *Dispatcher) registerSession(sess *session.PtySession) error {
	plog := logging.WithComponent("pty")
	if err := d.Registry.RegisterSession(sess); err != nil {
		return err
	}
	plog.Info("session registered", logging.F("session_id", sess.SessionID, "command", sess.Command))
	d.broadcastSessionsSnapshot()
	d.persistSessions()
	return nil
}

// handleWrapperFrame processes one inbound frame from a registered
// wrapper. It returns done=true (with the reported exit code) on
// session_ended.
func (d *Dispatcher) handleWrapperFrame(sess *session.PtySession, raw []byte) (done bool, exitCode int) {
	msgType, err := protocol.PeekType(raw)
	if err != nil {
		return false, 0
	}
	switch msgType {
	case protocol.TypePtyOutput:
		var out protocol.PtyOutput
		if err := json.Unmarshal(raw, &out); err != nil {
			return false, 0
		}
		data, err := base64.StdEncoding.DecodeString(out.Data)
		if err != nil {
			return false, 0
		}
		d.processOutputChunk(sess, data)
		return false, 0

	case protocol.TypeSessionEnded:
		var ended protocol.WrapperSessionEnded
		_ = json.Unmarshal(raw, &ended)
		return true, ended.ExitCode
	}
	return false, 0
}

// processOutputChunk runs the full pty_output pipeline described in
// spec.md §4.3: broadcast fan-out, scrollback append, pattern-buffer
// append, CLI-kind tracking, then the wait detector.
func (d *Dispatcher) processOutputChunk(sess *session.PtySession, data []byte) {
	d.Registry.Hub.Publish(sess.SessionID, data)
	sess.Scrollback.Write(data)

	normalized := session.NormalizeOutput(string(data))
	sess.AppendPattern(normalized)
	sess.Cli.Observe(normalized)

	if ev := session.Detect(sess.PatternBuffer, sess.Cli.Kind); ev != nil {
		if ev.ApprovalModel == session.ApprovalNone {
			ev.ApprovalModel = sess.Cli.DefaultApprovalModel()
		}
		changed, state := d.Registry.SetWaiting(sess.SessionID, ev)
		if changed && state != nil {
			d.broadcastWaitingForInput(sess, state)
			d.notifyWaiting(sess, ev)
		}
		return
	}

	if session.ShouldClear(normalized) {
		d.clearWaitingAndBroadcast(sess.SessionID)
	}
}

func (d *Dispatcher) broadcastWaitingForInput(sess *session.PtySession, state *session.WaitingState) {
	d.broadcastToMobilePeers(protocol.WaitingForInput{
		Type:          protocol.TypeWaitingForInput,
		SessionID:     sess.SessionID,
		WaitType:      string(state.WaitType),
		Prompt:        state.PromptContent,
		ApprovalModel: string(state.ApprovalModel),
	})
}

func (d *Dispatcher) notifyWaiting(sess *session.PtySession, ev *session.WaitEvent) {
	if d.Notifier == nil || d.Device == nil {
		return
	}
	tokens := d.pushTokens()
	if len(tokens) == 0 {
		return
	}
	title, body := push.BuildNotification(sess.Name, ev)
	d.Notifier.Notify(tokens, sess.SessionID, title, body)
}

// clearWaitingAndBroadcast clears a session's waiting state (if any) and
// broadcasts WaitingCleared on a real transition, used by substantive
// output, user input, and teardown.
func (d *Dispatcher) clearWaitingAndBroadcast(sessionID string) {
	if !d.Registry.ClearWaiting(sessionID) {
		return
	}
	d.broadcastToMobilePeers(protocol.WaitingCleared{Type: protocol.TypeWaitingCleared, SessionID: sessionID})
}

// teardownSession implements spec.md §4.3.2: remove the session, tell
// every mobile peer it ended, broadcast a fresh snapshot, and persist.
func (d *Dispatcher) teardownSession(sessionID string, exitCode int) {
	if _, ok := d.Registry.UnregisterSession(sessionID); !ok {
		return
	}
	d.broadcastToMobilePeers(protocol.SessionEnded{Type: protocol.TypeSessionEnded, SessionID: sessionID, ExitCode: exitCode})
	d.broadcastSessionsSnapshot()
	d.persistSessions()
}

// broadcastToMobilePeers enqueues msg onto every currently registered
// mobile peer's outbound queue.
func (d *Dispatcher) broadcastToMobilePeers(msg any) {
	for _, peerID := range d.Registry.AllPeerIDs() {
		if peer, ok := d.Registry.GetPeer(peerID); ok {
			peer.Outbound.Push(msg)
		}
	}
}

func (d *Dispatcher) broadcastSessionsSnapshot() {
	d.broadcastToMobilePeers(d.sessionsSnapshot())
}

func (d *Dispatcher) sessionsSnapshot() protocol.Sessions {
	sessions := d.Registry.ListSessions()
	out := make([]protocol.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, protocol.SessionInfo{
			SessionID:   s.SessionID,
			Name:        s.Name,
			Command:     s.Command,
			ProjectPath: s.ProjectPath,
			StartedAt:   s.StartedAt.Unix(),
		})
	}
	return protocol.Sessions{Type: protocol.TypeSessions, Sessions: out}
}

func (d *Dispatcher) persistSessions() {
	sessions := d.Registry.ListSessions()
	persisted := make([]daemon.PersistedSession, 0, len(sessions))
	for _, s := range sessions {
		persisted = append(persisted, daemon.PersistedSession{
			SessionID:   s.SessionID,
			Name:        s.Name,
			Command:     s.Command,
			ProjectPath: s.ProjectPath,
			StartedAt:   s.StartedAt,
		})
	}
	if err := daemon.SaveSessions(persisted); err != nil {
		logging.Warn("failed to persist sessions", logging.F("error", err.Error()))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
