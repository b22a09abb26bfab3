package notify

import (
	"context"
	"sync"
)

// Hub is the in-process fanout behind the SSE change stream. Slow
// subscribers lose signals rather than block the writer; a dropped signal
// only delays the consumer's next re-fetch.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Change
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Change)}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the consumer goes away.
func (h *Hub) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Change, buffer)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		if existing, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(existing)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) Notify(_ context.Context, change Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

var _ Notifier = (*Hub)(nil)
