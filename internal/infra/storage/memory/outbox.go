package memory

import (
	"context"
	"sync"

	appoutbox "staybook/internal/app/outbox"
)

// Outbox buffers staged events in memory for dev mode and tests; there is
// no broker leg without Mongo.
type Outbox struct {
	mu      sync.Mutex
	records []appoutbox.EventRecord
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(_ context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
	return nil
}

func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, len(o.records))
	copy(out, o.records)
	return out
}

var _ appoutbox.Outbox = (*Outbox)(nil)
