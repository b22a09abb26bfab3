package availability

import (
	"context"
	"errors"
	"time"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/unit"
)

var (
	ErrConflict     = errors.New("availability: slot is not in the expected status")
	ErrInvalidState = errors.New("availability: transition not permitted")
)

// Status is the occupancy state of one unit on one calendar date.
// Absence of a ledger row means StatusAvailable.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusHold      Status = "HOLD"
	StatusBooked    Status = "BOOKED"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusAvailable, StatusHold, StatusBooked:
		return Status(raw), nil
	}
	return "", errors.New("availability: unknown status " + raw)
}

// DaySlot is the ledger record for one (unit, date) pair. Ref identifies
// the booking (or admin block) claiming a non-available slot.
type DaySlot struct {
	UnitID unit.UnitID
	Date   time.Time
	Status Status
	Ref    string
}

// AdminBlockRef marks slots held by an administrative inventory block
// rather than a booking.
const AdminBlockRef = "admin-block"

// Store is the authoritative per-(unit, date) occupancy ledger.
//
// Reads are advisory. TrySetExclusive is the single linearization point:
// it must be atomic with respect to every concurrent caller touching
// overlapping dates of the same unit.
type Store interface {
	// StatusOf returns the status of a single date, StatusAvailable when
	// no row exists.
	StatusOf(ctx context.Context, id unit.UnitID, date time.Time) (Status, error)

	// RangeStatus returns one slot per date of the range, in date order,
	// defaulting missing rows to StatusAvailable. A consistent read used
	// for fast-fail pre-checks and calendar rendering.
	RangeStatus(ctx context.Context, id unit.UnitID, dr daterange.DateRange) ([]DaySlot, error)

	// TrySetExclusive transitions every listed date from `from` to `to`
	// as one indivisible operation, stamping ref on the claimed slots.
	// If any date is not currently `from`, nothing changes and ErrConflict
	// is returned. Promoting HOLD to BOOKED additionally requires the slot
	// to be claimed by ref; clearing a HOLD does not, so an inventory
	// toggle can override any hold. Dates already in `to` under the same
	// ref count as satisfied, so a replayed transition succeeds instead
	// of conflicting with its own earlier write.
	TrySetExclusive(ctx context.Context, id unit.UnitID, dates []time.Time, from, to Status, ref string) error

	// Release reverts the given dates to StatusAvailable, but only where
	// the slot is claimed by ref. Idempotent; slots meanwhile claimed by
	// another booking are left untouched.
	Release(ctx context.Context, id unit.UnitID, dates []time.Time, ref string) error
}
