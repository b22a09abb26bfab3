package notify

import (
	"context"
	"testing"
	"time"
)

func TestHubFanout(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe(4)
	b, cancelB := hub.Subscribe(4)
	defer cancelA()
	defer cancelB()

	change := Change{Table: "availability", Op: "slots_held", Key: "U1"}
	hub.Notify(context.Background(), change)

	for name, ch := range map[string]<-chan Change{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got != change {
				t.Fatalf("subscriber %s got %+v", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s got nothing", name)
		}
	}
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Notify(context.Background(), Change{Table: "availability", Op: "one"})
	// Buffer full; this one is dropped instead of blocking the writer.
	hub.Notify(context.Background(), Change{Table: "availability", Op: "two"})

	got := <-ch
	if got.Op != "one" {
		t.Fatalf("got %+v, want first change", got)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra change %+v", extra)
	default:
	}
}

func TestHubCancelStopsDelivery(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)
	cancel()

	hub.Notify(context.Background(), Change{Table: "booking", Op: "confirmed"})
	if _, open := <-ch; open {
		t.Fatal("channel still open after cancel")
	}
}

func TestFromEvent(t *testing.T) {
	ev := fakeEvent{name: "availability.slots_held", id: "U1"}
	change := FromEvent(ev)
	if change.Table != "availability" || change.Op != "SLOTS_HELD" || change.Key != "U1" {
		t.Fatalf("FromEvent = %+v", change)
	}

	bare := FromEvent(fakeEvent{name: "ping", id: "x"})
	if bare.Table != "ping" || bare.Op != "CHANGE" {
		t.Fatalf("FromEvent without dot = %+v", bare)
	}
}

type fakeEvent struct {
	name string
	id   string
}

func (e fakeEvent) EventName() string     { return e.name }
func (e fakeEvent) AggregateID() string   { return e.id }
func (e fakeEvent) OccurredAt() time.Time { return time.Time{} }
