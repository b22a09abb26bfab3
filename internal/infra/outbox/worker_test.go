package outbox

import "testing"

func TestWorkerIDStableAcrossClaims(t *testing.T) {
	w := &Worker{}
	first := w.workerID()
	if first == "" {
		t.Fatal("empty worker id")
	}
	if second := w.workerID(); second != first {
		t.Fatalf("worker id changed between claims: %s then %s", first, second)
	}

	w = &Worker{ID: "outbox-1"}
	if got := w.workerID(); got != "outbox-1" {
		t.Fatalf("configured id = %s", got)
	}
}

func TestTopicFor(t *testing.T) {
	w := &Worker{}
	if got := w.topicFor("availability.slots_held"); got != "availability.changes.v1" {
		t.Fatalf("topic = %s", got)
	}
	w.TopicPrefix = "staging."
	if got := w.topicFor("bookings.confirmed"); got != "staging.bookings.changes.v1" {
		t.Fatalf("prefixed topic = %s", got)
	}
}
