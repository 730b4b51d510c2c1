package ws

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"github.com/gorilla/websocket"

	"github.com/artpar/mobilecli/internal/logging"
	"github.com/artpar/mobilecli/internal/protocol"
	"github.com/artpar/mobilecli/internal/session"
)

// handleMobile runs the lifecycle of one mobile client connection: parse
// its hello, register a peer, emit the welcome/sessions/waiting snapshot,
// then steady-state select between the PTY broadcast fan-out, the peer's
// own targeted outbound queue, and frames the client sends. Grounded on
// spec.md §4.2, using the same reader-goroutine-feeds-a-channel /
// single-writer-select pattern as handlePty.
func (d *Dispatcher) handleMobile(conn *websocket.Conn, firstFrame []byte) {
	defer conn.Close()
	mlog := logging.WithComponent("mobile")

	var hello protocol.Hello
	authenticated := false
	if err := json.Unmarshal(firstFrame, &hello); err == nil && hello.Type == protocol.TypeHello {
		authenticated = d.checkAuthToken(hello.AuthToken, mlog)
	} else {
		mlog.Warn("mobile peer's first frame was not a valid hello; proceeding unauthenticated")
	}

	peer := session.NewMobilePeer(newPeerID(), conn.RemoteAddr().String())
	d.Registry.RegisterPeer(peer)
	mlog.Info("mobile peer connected", logging.F("peer_id", peer.ID, "remote", peer.RemoteAddr))

	broadcastCh := d.Registry.Hub.Subscribe(peer.ID)
	defer d.Registry.Hub.Unsubscribe(peer.ID)

	d.sendWelcome(peer, authenticated)
	peer.Outbound.Push(d.sessionsSnapshot())
	d.sendCurrentWaitStates(peer)

	readerCh := make(chan []byte)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerCh)
		defer close(readerDone)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			readerCh <- raw
		}
	}()

	outboundCh := make(chan any)
	go func() {
		defer close(outboundCh)
		for {
			item, ok := peer.Outbound.Pop()
			if !ok {
				return
			}
			outboundCh <- item
		}
	}()

	// The already-consumed first frame is not re-delivered through
	// readerCh (it was read before classification happened), so dispatch
	// it once up front if it was itself a client message rather than the
	// hello handshake frame.
	if hello.Type != protocol.TypeHello {
		d.dispatchClientFrame(peer, firstFrame)
	}

	for {
		select {
		case msg, ok := <-broadcastCh:
			if !ok {
				d.teardownPeer(peer)
				return
			}
			_ = conn.WriteJSON(protocol.PtyBytes{
				Type:      protocol.TypePtyBytes,
				SessionID: msg.SessionID,
				Data:      encodeBase64(msg.Data),
			})

		case item, ok := <-outboundCh:
			if !ok {
				d.teardownPeer(peer)
				return
			}
			if err := conn.WriteJSON(item); err != nil {
				d.teardownPeer(peer)
				return
			}

		case raw, ok := <-readerCh:
			if !ok {
				d.teardownPeer(peer)
				return
			}
			d.dispatchClientFrame(peer, raw)
		}
	}
}

// teardownPeer removes the peer from the registry and restores the
// natural terminal size / stops watching any paths it held alone,
// mirroring the per-peer refcount release the registry computes.
func (d *Dispatcher) teardownPeer(peer *session.MobilePeer) {
	zeroedSessions, zeroedPaths := d.Registry.UnregisterPeer(peer.ID)
	for _, sessionID := range zeroedSessions {
		if sess, ok := d.Registry.GetSession(sessionID); ok {
			select {
			case sess.ResizeCh <- session.ResizeCmd{Cols: 0, Rows: 0}:
			default:
			}
		}
	}
	for _, path := range zeroedPaths {
		_ = d.Watcher.Unwatch(path)
	}
	logging.WithComponent("mobile").Info("mobile peer disconnected", logging.F("peer_id", peer.ID))
}

func (d *Dispatcher) sendWelcome(peer *session.MobilePeer, authenticated bool) {
	w := protocol.Welcome{
		Type:          protocol.TypeWelcome,
		ServerVersion: daemonVersion,
		Authenticated: authenticated,
	}
	if d.Device != nil {
		w.DeviceID = d.Device.DeviceID
		w.DeviceName = d.Device.DeviceName
	}
	peer.Outbound.Push(w)
}

// sendCurrentWaitStates replays WaitingForInput for every session
// currently blocked, so a client connecting after the fact still learns
// about pre-existing prompts rather than only future transitions.
func (d *Dispatcher) sendCurrentWaitStates(peer *session.MobilePeer) {
	for _, sess := range d.Registry.ListSessions() {
		state, ok := d.Registry.GetWaiting(sess.SessionID)
		if !ok {
			continue
		}
		peer.Outbound.Push(protocol.WaitingForInput{
			Type:          protocol.TypeWaitingForInput,
			SessionID:     sess.SessionID,
			WaitType:      string(state.WaitType),
			Prompt:        state.PromptContent,
			ApprovalModel: string(state.ApprovalModel),
		})
	}
}

// checkAuthToken compares the hello's token against the device's stored
// auth token. Per spec.md §9's lenient-auth decision a mismatch is only
// logged, never rejected: a stale or missing token still gets degraded
// service instead of a dropped connection, since the pairing flow itself
// is the actual security boundary.
func (d *Dispatcher) checkAuthToken(token string, mlog *logging.Logger) bool {
	if d.Device == nil || d.Device.AuthToken == "" {
		return true
	}
	if token == d.Device.AuthToken {
		return true
	}
	mlog.Warn("mobile peer presented a mismatched auth token; continuing unauthenticated")
	return false
}

func newPeerID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "peer-0"
	}
	return "peer-" + hex.EncodeToString(buf)
}
