package memory

import (
	"context"
	"sync"
)

// DedupeStore is the in-memory stand-in for the Redis processor-event
// dedupe.
type DedupeStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupeStore() *DedupeStore {
	return &DedupeStore{seen: make(map[string]struct{})}
}

func (s *DedupeStore) Seen(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[eventID]; ok {
		return true, nil
	}
	s.seen[eventID] = struct{}{}
	return false, nil
}
