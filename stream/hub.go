package stream

import (
	"sync"
)

const subscriberBuffer = 256

// Hub fans out everything written to it to the current subscribers.
// Slow subscribers lose chunks instead of blocking the writer.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
	closed      bool
}

func NewHub() *Hub {
	return &Hub{subscribers: map[chan []byte]struct{}{}}
}

// Write implements io.Writer so the hub can sit next to stdout in an io.MultiWriter
func (h *Hub) Write(p []byte) (int, error) {
	chunk := make([]byte, len(p))
	copy(chunk, p)

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		select {
		case sub <- chunk:
		default:
		}
	}
	return len(p), nil
}

// Subscribe returns a channel receiving written chunks and a function to stop receiving.
// The channel is closed on unsubscribe or when the hub is closed.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := make(chan []byte, subscriberBuffer)
	if h.closed {
		close(sub)
		return sub, func() {}
	}
	h.subscribers[sub] = struct{}{}

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub)
			}
		})
	}
}

// Subscribers returns the number of active subscribers
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub)
	}
}
