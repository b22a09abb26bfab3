package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// DedupeStore tracks processed processor event IDs via SETNX with a TTL.
// Redis being down degrades to "not seen"; the idempotent confirm path
// absorbs the resulting duplicates.
type DedupeStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewDedupeStore(client *redis.Client, ttl time.Duration) *DedupeStore {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &DedupeStore{client: client, ttl: ttl, prefix: "processor:event:"}
}

// Seen marks eventID processed and reports whether it already was.
func (s *DedupeStore) Seen(ctx context.Context, eventID string) (bool, error) {
	set, err := s.client.SetNX(ctx, s.prefix+eventID, 1, s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}
