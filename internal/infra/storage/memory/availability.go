package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"staybook/internal/domain/availability"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/unit"
)

type slotRecord struct {
	status availability.Status
	ref    string
}

// AvailabilityStore is the in-memory ledger used in dev mode and tests.
// One mutex guards the whole map, making TrySetExclusive trivially atomic
// across concurrent callers.
type AvailabilityStore struct {
	mu    sync.Mutex
	slots map[string]slotRecord
}

func NewAvailabilityStore() *AvailabilityStore {
	return &AvailabilityStore{slots: make(map[string]slotRecord)}
}

func slotKey(id unit.UnitID, day time.Time) string {
	return string(id) + "|" + day.Format("2006-01-02")
}

func (s *AvailabilityStore) StatusOf(_ context.Context, id unit.UnitID, date time.Time) (availability.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.slots[slotKey(id, daterange.Day(date))]; ok {
		return rec.status, nil
	}
	return availability.StatusAvailable, nil
}

func (s *AvailabilityStore) RangeStatus(_ context.Context, id unit.UnitID, dr daterange.DateRange) ([]availability.DaySlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	days := dr.Days()
	out := make([]availability.DaySlot, 0, len(days))
	for _, day := range days {
		slot := availability.DaySlot{UnitID: id, Date: day, Status: availability.StatusAvailable}
		if rec, ok := s.slots[slotKey(id, day)]; ok {
			slot.Status = rec.status
			slot.Ref = rec.ref
		}
		out = append(out, slot)
	}
	return out, nil
}

func (s *AvailabilityStore) TrySetExclusive(_ context.Context, id unit.UnitID, dates []time.Time, from, to availability.Status, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every date before touching any: all or nothing.
	for _, date := range dates {
		day := daterange.Day(date)
		rec, ok := s.slots[slotKey(id, day)]
		current := availability.StatusAvailable
		if ok {
			current = rec.status
		}
		// A replayed transition finds its own earlier write; that date is
		// already where the caller wants it.
		if current == to && to != availability.StatusAvailable && rec.ref == ref {
			continue
		}
		if current != from {
			return fmt.Errorf("%w: %s is %s, want %s", availability.ErrConflict, day.Format("2006-01-02"), current, from)
		}
		if from == availability.StatusHold && to == availability.StatusBooked && rec.ref != ref {
			return fmt.Errorf("%w: %s held by another claim", availability.ErrConflict, day.Format("2006-01-02"))
		}
	}

	for _, date := range dates {
		day := daterange.Day(date)
		newRef := ref
		if to == availability.StatusAvailable {
			newRef = ""
		}
		s.slots[slotKey(id, day)] = slotRecord{status: to, ref: newRef}
	}
	return nil
}

func (s *AvailabilityStore) Release(_ context.Context, id unit.UnitID, dates []time.Time, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, date := range dates {
		key := slotKey(id, daterange.Day(date))
		rec, ok := s.slots[key]
		if !ok || rec.ref != ref {
			continue
		}
		if rec.status == availability.StatusHold || rec.status == availability.StatusBooked {
			s.slots[key] = slotRecord{status: availability.StatusAvailable}
		}
	}
	return nil
}

var _ availability.Store = (*AvailabilityStore)(nil)
