package booking

import (
	"context"
	"errors"
	"time"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/unit"
)

var (
	ErrNotFound         = errors.New("booking: not found")
	ErrInvalidState     = errors.New("booking: invalid state transition")
	ErrUserRequired     = errors.New("booking: user id required")
	ErrConcurrentUpdate = errors.New("booking: concurrent update detected")
)

type BookingID string

type BookingState string

// A booking is created at hold time and mutated to a terminal state
// exactly once. Rows are kept forever for audit.
const (
	StatePendingPayment BookingState = "pending_payment"
	StateConfirmed      BookingState = "confirmed"
	StateCancelled      BookingState = "cancelled"
)

type Booking struct {
	ID            BookingID
	UnitID        unit.UnitID
	UserID        string
	Range         daterange.DateRange
	TotalPrice    money.Money
	State         BookingState
	PaymentRef    string
	HoldExpiresAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, b *Booking) error
	ListByUser(ctx context.Context, userID string) ([]*Booking, error)
	// ListExpiredPending returns pending_payment bookings whose hold
	// expiry lies at or before cutoff. Used by the hold reaper.
	ListExpiredPending(ctx context.Context, cutoff time.Time) ([]*Booking, error)
}

type CreateParams struct {
	ID            BookingID
	UnitID        unit.UnitID
	UserID        string
	Range         daterange.DateRange
	TotalPrice    money.Money
	HoldExpiresAt time.Time
	CreatedAt     time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if params.UserID == "" {
		return nil, ErrUserRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:            params.ID,
		UnitID:        params.UnitID,
		UserID:        params.UserID,
		Range:         params.Range,
		TotalPrice:    params.TotalPrice,
		State:         StatePendingPayment,
		HoldExpiresAt: params.HoldExpiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Record(BookingRequested{BookingID: b.ID, UnitID: b.UnitID, UserID: b.UserID, Range: b.Range, Total: b.TotalPrice, At: now})
	return b, nil
}

// Confirm settles the booking. Calling it again with the same settlement
// reference reports alreadySettled and mutates nothing, so at-least-once
// processor delivery is safe.
func (b *Booking) Confirm(settlementRef string, now time.Time) (alreadySettled bool, err error) {
	switch b.State {
	case StateConfirmed:
		if b.PaymentRef == settlementRef {
			return true, nil
		}
		return false, ErrInvalidState
	case StateCancelled:
		return false, ErrInvalidState
	}
	b.State = StateConfirmed
	b.PaymentRef = settlementRef
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, UnitID: b.UnitID, Range: b.Range, PaymentRef: settlementRef, At: b.UpdatedAt})
	return false, nil
}

// Cancel releases the booking. Idempotent for an already-cancelled
// booking. Confirmed bookings may also be cancelled; their booked dates
// return to the pool through the same release path.
func (b *Booking) Cancel(reason string, now time.Time) (alreadyCancelled bool, err error) {
	if b.State == StateCancelled {
		return true, nil
	}
	b.State = StateCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, UnitID: b.UnitID, Range: b.Range, Reason: reason, At: b.UpdatedAt})
	return false, nil
}

// HoldExpired reports whether a pending hold has outlived its expiry.
func (b *Booking) HoldExpired(now time.Time) bool {
	if b.State != StatePendingPayment || b.HoldExpiresAt.IsZero() {
		return false
	}
	return !now.Before(b.HoldExpiresAt)
}
