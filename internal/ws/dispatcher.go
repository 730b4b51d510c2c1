// Package ws hosts the daemon's single WebSocket endpoint: one
// connection dispatcher that classifies each new peer's opening frame
// and routes it to either the loopback PTY handler or the mobile client
// handler, plus the two per-connection handlers themselves. Grounded on
// relayserver.HandleWebSocket's upgrade-then-dispatch idiom
// (_examples/artpar-terminal-tunnel/internal/signaling/relayserver/server.go),
// generalized from a single message-type switch inside one handler to a
// connection-kind fork that happens once per socket, before any
// steady-state loop begins.
package ws

import (
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/artpar/mobilecli/internal/daemon"
	"github.com/artpar/mobilecli/internal/fs"
	"github.com/artpar/mobilecli/internal/logging"
	"github.com/artpar/mobilecli/internal/protocol"
	"github.com/artpar/mobilecli/internal/push"
	"github.com/artpar/mobilecli/internal/session"
)

// maxFrameBytes is the per-frame size ceiling: base64-encoded uploads and
// chunked reads need headroom well above gorilla/websocket's 32KiB
// default.
const maxFrameBytes = 96 * 1024 * 1024

// daemonVersion is reported in Welcome so a mobile client can warn about
// a protocol mismatch.
const daemonVersion = "1.0.0"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Dispatcher owns the daemon's shared state and is mounted as the
// http.Handler for the daemon's one WebSocket path.
type Dispatcher struct {
	Registry  *session.Registry
	FileOps   *fs.FileOperations
	Search    *fs.FileSearch
	Watcher   *fs.FileWatcher
	Validator *fs.Validator
	Config    fs.Config
	Device    *daemon.DeviceConfig
	Notifier  *push.Notifier

	deviceMu sync.Mutex
	log      *logging.Logger
}

// registerPushToken records a mobile device's push token and persists
// the device config. Safe for concurrent callers.
func (d *Dispatcher) registerPushToken(token, platform string) {
	d.deviceMu.Lock()
	defer d.deviceMu.Unlock()
	if d.Device == nil {
		return
	}
	d.Device.RegisterPushToken(token, platform)
	if err := daemon.SaveConfig(d.Device); err != nil {
		d.log.Warn("failed to persist push token registration", logging.F("error", err.Error()))
	}
}

// unregisterPushToken removes a mobile device's push token and persists
// the device config. Safe for concurrent callers.
func (d *Dispatcher) unregisterPushToken(token string) {
	d.deviceMu.Lock()
	defer d.deviceMu.Unlock()
	if d.Device == nil {
		return
	}
	if d.Device.UnregisterPushToken(token) {
		if err := daemon.SaveConfig(d.Device); err != nil {
			d.log.Warn("failed to persist push token removal", logging.F("error", err.Error()))
		}
	}
}

// pushTokens returns a snapshot of currently registered push tokens.
func (d *Dispatcher) pushTokens() []string {
	d.deviceMu.Lock()
	defer d.deviceMu.Unlock()
	if d.Device == nil {
		return nil
	}
	tokens := make([]string, 0, len(d.Device.PushTokens))
	for token := range d.Device.PushTokens {
		tokens = append(tokens, token)
	}
	return tokens
}

// NewDispatcher wires a Dispatcher from the daemon's already-constructed
// subsystems and starts the watcher-event fan-out goroutine.
func NewDispatcher(registry *session.Registry, fileOps *fs.FileOperations, search *fs.FileSearch, watcher *fs.FileWatcher, validator *fs.Validator, cfg fs.Config, device *daemon.DeviceConfig, notifier *push.Notifier) *Dispatcher {
	d := &Dispatcher{
		Registry:  registry,
		FileOps:   fileOps,
		Search:    search,
		Watcher:   watcher,
		Validator: validator,
		Config:    cfg,
		Device:    device,
		Notifier:  notifier,
		log:       logging.WithComponent("ws"),
	}
	go d.routeWatchEvents()
	return d
}

// ServeHTTP upgrades the connection, reads exactly one frame, and
// classifies it: a register_pty frame from a loopback peer goes to the
// PTY handler; everything else goes to the mobile handler, with the
// already-read frame forwarded for reprocessing as that handler's first
// client message.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.log.Warn("websocket upgrade failed", logging.F("error", err.Error()))
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	_, raw, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return
	}

	msgType, err := protocol.PeekType(raw)
	if err == nil && msgType == protocol.TypeRegisterPty {
		if !isLoopback(conn.RemoteAddr().String()) {
			d.log.Warn("rejected register_pty from non-loopback peer", logging.F("remote", conn.RemoteAddr().String()))
			conn.Close()
			return
		}
		d.handlePty(conn, raw)
		return
	}

	d.handleMobile(conn, raw)
}

// isLoopback reports whether a "host:port" remote address resolves to a
// loopback IP.
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func lastSlash(path string) int {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return i
		}
	}
	return -1
}

// routeWatchEvents is the single fan-out task forwarding FileWatcher
// events to every peer watching the event's path (or its parent),
// collapsing the spec's "dedicated per-peer watch-event forwarder" into
// direct delivery onto each matching peer's outbound queue, which is
// itself drained by that peer's steady-state select loop.
func (d *Dispatcher) routeWatchEvents() {
	for ev := range d.Watcher.Events() {
		for _, path := range watchedKeysFor(ev.Path) {
			for _, peerID := range d.Registry.PeerIDsWatching(path) {
				peer, ok := d.Registry.GetPeer(peerID)
				if !ok {
					continue
				}
				peer.Outbound.Push(ev)
			}
		}
	}
}

// watchedKeysFor returns the set of normalized watch keys that could
// plausibly match changedPath: the path itself and its parent directory,
// since a watch is registered against a directory but fires for its
// immediate children too.
func watchedKeysFor(changedPath string) []string {
	keys := []string{changedPath}
	if idx := lastSlash(changedPath); idx > 0 {
		keys = append(keys, changedPath[:idx])
	}
	return keys
}
