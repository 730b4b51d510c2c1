package session

import "sync"

// DefaultBroadcastBuffer is the per-peer bounded channel size for PTY
// byte fan-out. A lagging peer that overflows this buffer skips the
// dropped frames rather than stalling the PTY producer.
const DefaultBroadcastBuffer = 256

// BroadcastMessage is one fanned-out chunk of PTY output.
type BroadcastMessage struct {
	SessionID string
	Data      []byte
}

// BroadcastHub is the single multi-producer/multi-consumer distribution
// point for PTY bytes, shared by all mobile peers. Each subscriber gets
// its own bounded channel; Publish never blocks the producer.
type BroadcastHub struct {
	mu          sync.Mutex
	subscribers map[string]chan BroadcastMessage
}

// NewBroadcastHub creates an empty hub.
func NewBroadcastHub() *BroadcastHub {
	return &BroadcastHub{subscribers: make(map[string]chan BroadcastMessage)}
}

// Subscribe registers peerID and returns its receive channel.
func (h *BroadcastHub) Subscribe(peerID string) <-chan BroadcastMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan BroadcastMessage, DefaultBroadcastBuffer)
	h.subscribers[peerID] = ch
	return ch
}

// Unsubscribe removes and closes peerID's channel.
func (h *BroadcastHub) Unsubscribe(peerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[peerID]; ok {
		delete(h.subscribers, peerID)
		close(ch)
	}
}

// Publish fans sessionID's bytes out to every current subscriber. A
// subscriber whose channel is full has the frame dropped for it; the
// call never blocks.
func (h *BroadcastHub) Publish(sessionID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msg := BroadcastMessage{SessionID: sessionID, Data: data}
	for _, ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
			// lagging subscriber: drop rather than stall the producer.
		}
	}
}
