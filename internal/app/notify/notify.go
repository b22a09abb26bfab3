package notify

import (
	"context"
	"strings"

	"staybook/internal/domain/shared/events"
)

// Change is the payload of the change feed: which table changed, how, and
// the affected key. Deliberately free of row data; consumers re-fetch the
// affected range instead of trusting the signal, so the channel needs no
// ordering or exactly-once guarantees.
type Change struct {
	Table string `json:"table"`
	Op    string `json:"op"`
	Key   string `json:"key"`
}

// Notifier publishes committed ledger mutations to interested views.
// Purely observational, never authoritative; delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, change Change)
}

// Multi fans a change out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, change Change) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, change)
		}
	}
}

// FromEvent derives the change signal for a committed domain event.
// Event names follow "<table>.<operation>".
func FromEvent(ev events.DomainEvent) Change {
	table, op := "events", "change"
	if name := ev.EventName(); name != "" {
		if idx := strings.IndexRune(name, '.'); idx > 0 {
			table, op = name[:idx], name[idx+1:]
		} else {
			table = name
		}
	}
	return Change{Table: table, Op: strings.ToUpper(op), Key: ev.AggregateID()}
}
