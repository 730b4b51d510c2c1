// Package session implements the daemon's single logical "daemon state":
// the PTY session registry, mobile peer bookkeeping, view/watch
// refcounts, the wait-state detector, the per-session scrollback ring,
// and the CLI-kind tracker. All of it lives behind one reader/writer
// lock, mirroring the teacher's SessionManager map-with-secondary-index
// pattern (internal/daemon/session_manager.go) generalized from a single
// WebRTC ManagedSession per id to the richer PtySession/MobilePeer model
// this spec requires.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/artpar/mobilecli/internal/ratelimit"
)

// ResizeCmd is a terminal dimension change forwarded to a PTY wrapper.
type ResizeCmd struct {
	Cols uint16
	Rows uint16
}

// PtySession is the registry's record of one active PTY. Input/Resize
// channels are owned and read by the PTY handler task; the registry only
// holds send-only clones, per the spec's ownership rule.
type PtySession struct {
	SessionID   string
	Name        string
	Command     string
	ProjectPath string
	StartedAt   time.Time

	InputCh  chan<- []byte
	ResizeCh chan<- ResizeCmd

	Scrollback *ScrollbackRing
	Cli        *CliTracker

	Waiting       *WaitingState
	PatternBuffer string
}

const maxPatternBuffer = 4000

// AppendPattern appends normalized text to the session's pattern buffer,
// front-trimming to the 4000-character cap the wait detector reads from.
func (s *PtySession) AppendPattern(normalized string) {
	s.PatternBuffer += normalized
	if runes := []rune(s.PatternBuffer); len(runes) > maxPatternBuffer {
		s.PatternBuffer = string(runes[len(runes)-maxPatternBuffer:])
	}
}

// MobilePeer is the registry's record of one connected mobile client.
type MobilePeer struct {
	ID           string
	RemoteAddr   string
	Subscribed   map[string]bool
	WatchedPaths map[string]bool
	Limiter      *ratelimit.Limiter
	Outbound     *OutboundQueue
}

// NewMobilePeer creates a peer with fresh subscription sets, its own rate
// limiter, and an unbounded outbound queue.
func NewMobilePeer(id, remoteAddr string) *MobilePeer {
	return &MobilePeer{
		ID:           id,
		RemoteAddr:   remoteAddr,
		Subscribed:   make(map[string]bool),
		WatchedPaths: make(map[string]bool),
		Limiter:      ratelimit.NewDefault(),
		Outbound:     NewOutboundQueue(),
	}
}

// Registry is the single reader/writer-locked daemon state object.
type Registry struct {
	mu sync.RWMutex

	sessions    map[string]*PtySession
	peers       map[string]*MobilePeer
	viewCounts  map[string]int
	watchCounts map[string]int

	Hub *BroadcastHub
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]*PtySession),
		peers:       make(map[string]*MobilePeer),
		viewCounts:  make(map[string]int),
		watchCounts: make(map[string]int),
		Hub:         NewBroadcastHub(),
	}
}

// RegisterSession inserts a new PTY session. Returns an error if the id
// is already present or empty.
func (r *Registry) RegisterSession(s *PtySession) error {
	if s.SessionID == "" {
		return fmt.Errorf("session: empty session_id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.SessionID]; exists {
		return fmt.Errorf("session: %s already registered", s.SessionID)
	}
	r.sessions[s.SessionID] = s
	return nil
}

// UnregisterSession removes a session, returning it if it existed.
func (r *Registry) UnregisterSession(id string) (*PtySession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		delete(r.viewCounts, id)
	}
	return s, ok
}

// GetSession returns the session for id, if present.
func (r *Registry) GetSession(id string) (*PtySession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// ListSessions returns a snapshot of all sessions, ordered by StartedAt
// so repeated calls are stable for clients diffing snapshots.
func (r *Registry) ListSessions() []*PtySession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*PtySession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// RenameSession updates a session's display name. Returns false if the
// session is not found.
func (r *Registry) RenameSession(id, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.Name = name
	return true
}

// SetWaiting transitions a session into a new WaitingState if and only
// if no prior state exists or (wait_type, prompt_hash) differs from the
// stored one. Returns (changed, state). When changed is false, state is
// the existing (unmodified) WaitingState, or nil if there was none and
// none was set (should not happen given the event is non-nil).
func (r *Registry) SetWaiting(id string, ev *WaitEvent) (changed bool, state *WaitingState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false, nil
	}
	if s.Waiting != nil && s.Waiting.WaitType == ev.WaitType && s.Waiting.PromptHash == ev.PromptHash {
		return false, s.Waiting
	}
	s.Waiting = &WaitingState{
		WaitType:      ev.WaitType,
		PromptContent: ev.Prompt,
		Timestamp:     time.Now(),
		ApprovalModel: ev.ApprovalModel,
		PromptHash:    ev.PromptHash,
	}
	return true, s.Waiting
}

// ClearWaiting removes a session's WaitingState if one was set, reporting
// whether a clear actually happened (so callers only broadcast
// WaitingCleared on a real transition).
func (r *Registry) ClearWaiting(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Waiting == nil {
		return false
	}
	s.Waiting = nil
	return true
}

// GetWaiting returns the session's current WaitingState, if any.
func (r *Registry) GetWaiting(id string) (*WaitingState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.Waiting == nil {
		return nil, false
	}
	return s.Waiting, true
}

// RegisterPeer adds a mobile peer to the registry.
func (r *Registry) RegisterPeer(p *MobilePeer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[p.ID] = p
}

// UnregisterPeer removes a peer and decrements every view/watch count it
// held. It returns the session ids whose view count dropped to zero and
// the watched paths whose watch count dropped to zero, so the caller can
// issue the corresponding resize-restore and unwatch actions outside the
// lock.
func (r *Registry) UnregisterPeer(id string) (zeroedSessions []string, zeroedPaths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[id]
	if !ok {
		return nil, nil
	}
	delete(r.peers, id)

	for sessionID := range p.Subscribed {
		if r.decrementViewLocked(sessionID) {
			zeroedSessions = append(zeroedSessions, sessionID)
		}
	}
	for path := range p.WatchedPaths {
		if r.decrementWatchLocked(path) {
			zeroedPaths = append(zeroedPaths, path)
		}
	}
	p.Outbound.Close()
	return zeroedSessions, zeroedPaths
}

// AllPeerIDs returns a snapshot of every currently registered peer id,
// used to fan targeted broadcasts (Sessions, SessionEnded, WaitingFor...)
// out to every connected mobile client.
func (r *Registry) AllPeerIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	return ids
}

// GetPeer returns the peer for id, if present.
func (r *Registry) GetPeer(id string) (*MobilePeer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[id]
	return p, ok
}

// Subscribe adds sessionID to the peer's subscription set. Returns true
// if this was a 0->1 transition for the session's view count.
func (r *Registry) Subscribe(peerID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[peerID]
	if !ok || p.Subscribed[sessionID] {
		return false
	}
	p.Subscribed[sessionID] = true
	r.viewCounts[sessionID]++
	return r.viewCounts[sessionID] == 1
}

// Unsubscribe removes sessionID from the peer's subscription set.
// Returns true if this was a 1->0 transition for the session's view
// count.
func (r *Registry) Unsubscribe(peerID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[peerID]
	if !ok || !p.Subscribed[sessionID] {
		return false
	}
	delete(p.Subscribed, sessionID)
	return r.decrementViewLocked(sessionID)
}

func (r *Registry) decrementViewLocked(sessionID string) bool {
	if r.viewCounts[sessionID] <= 0 {
		return false
	}
	r.viewCounts[sessionID]--
	if r.viewCounts[sessionID] == 0 {
		delete(r.viewCounts, sessionID)
		return true
	}
	return false
}

// ViewCount returns the current view count for a session.
func (r *Registry) ViewCount(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.viewCounts[sessionID]
}

// WatchPath adds path to the peer's watched set. Returns true if this was
// a 0->1 transition for the path's watch count.
func (r *Registry) WatchPath(peerID, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[peerID]
	if !ok || p.WatchedPaths[path] {
		return false
	}
	p.WatchedPaths[path] = true
	r.watchCounts[path]++
	return r.watchCounts[path] == 1
}

// UnwatchPath removes path from the peer's watched set. Returns true if
// this was a 1->0 transition for the path's watch count.
func (r *Registry) UnwatchPath(peerID, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[peerID]
	if !ok || !p.WatchedPaths[path] {
		return false
	}
	delete(p.WatchedPaths, path)
	return r.decrementWatchLocked(path)
}

func (r *Registry) decrementWatchLocked(path string) bool {
	if r.watchCounts[path] <= 0 {
		return false
	}
	r.watchCounts[path]--
	if r.watchCounts[path] == 0 {
		delete(r.watchCounts, path)
		return true
	}
	return false
}

// WatchCount returns the current watch count for a normalized path.
func (r *Registry) WatchCount(path string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.watchCounts[path]
}

// PeerIDsWatching returns every peer id currently watching path, used by
// the watcher-event router to decide who should receive a file_changed
// frame for a given path's owning directory.
func (r *Registry) PeerIDsWatching(path string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, p := range r.peers {
		if p.WatchedPaths[path] {
			ids = append(ids, id)
		}
	}
	return ids
}
