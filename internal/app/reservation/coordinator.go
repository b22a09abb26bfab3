package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/notify"
	"staybook/internal/app/outbox"
	"staybook/internal/domain/availability"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/rules"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/unit"
)

// Coordinator orchestrates validation, hold acquisition, booking creation,
// confirmation and release. It is the sole writer of cross-date ledger
// transitions. Instances are safe for concurrent use: the availability
// store's TrySetExclusive is the only synchronization point.
type Coordinator struct {
	Units    unit.Repository
	Bookings booking.Repository
	Slots    availability.Store
	Rules    *rules.Engine
	Outbox   outbox.Outbox
	Notifier notify.Notifier
	HoldTTL  time.Duration
	Backoff  []time.Duration
	Logger   *slog.Logger
	Clock    func() time.Time
}

type RequestHoldParams struct {
	UnitID   unit.UnitID
	CheckIn  time.Time
	CheckOut time.Time
	UserID   string
}

type HoldReceipt struct {
	BookingID booking.BookingID
	AmountDue money.Money
	State     booking.BookingState
	ExpiresAt time.Time
}

// RequestHold validates the requested stay, claims its dates and creates a
// pending_payment booking. The RangeStatus pre-check is an optimization;
// only the CAS in step three decides the race, so a DateConflict after a
// clean pre-check simply means a concurrent attempt won and the caller may
// retry.
func (c *Coordinator) RequestHold(ctx context.Context, p RequestHoldParams) (*HoldReceipt, error) {
	dr, err := daterange.New(p.CheckIn, p.CheckOut)
	if err != nil {
		return nil, err
	}
	now := c.now()
	if err := c.Rules.Admit(dr, now); err != nil {
		return nil, err
	}

	u, err := c.unitByID(ctx, p.UnitID)
	if err != nil {
		return nil, err
	}

	var slots []availability.DaySlot
	err = c.withRetry(ctx, "availability.range_status", func() error {
		var err error
		slots, err = c.Slots.RangeStatus(ctx, u.ID, dr)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		if s.Status != availability.StatusAvailable {
			return nil, fmt.Errorf("%w: %s on %s", availability.ErrConflict, s.Status, s.Date.Format("2006-01-02"))
		}
	}

	bookingID := booking.BookingID(uuid.NewString())
	err = c.withRetry(ctx, "availability.hold", func() error {
		return c.Slots.TrySetExclusive(ctx, u.ID, dr.Days(), availability.StatusAvailable, availability.StatusHold, string(bookingID))
	})
	if err != nil {
		return nil, err
	}

	total := u.NightlyRate().Multiply(int64(dr.Nights()))
	expiresAt := time.Time{}
	if c.HoldTTL > 0 {
		expiresAt = now.Add(c.HoldTTL)
	}
	b, err := booking.NewBooking(booking.CreateParams{
		ID:            bookingID,
		UnitID:        u.ID,
		UserID:        p.UserID,
		Range:         dr,
		TotalPrice:    total,
		HoldExpiresAt: expiresAt,
		CreatedAt:     now,
	})
	if err != nil {
		c.compensateHold(ctx, u.ID, dr, string(bookingID))
		return nil, err
	}
	if err := c.saveBooking(ctx, b); err != nil {
		c.compensateHold(ctx, u.ID, dr, string(bookingID))
		return nil, err
	}

	evs := append(b.PendingEvents(), availability.SlotsHeldEvent(u.ID, dr, string(bookingID), now))
	b.ClearEvents()
	c.publish(ctx, evs)

	return &HoldReceipt{BookingID: b.ID, AmountDue: b.TotalPrice, State: b.State, ExpiresAt: expiresAt}, nil
}

// Confirm settles a pending booking after the processor reported payment.
// Idempotent under at-least-once delivery: a repeated settlementRef on an
// already-confirmed booking succeeds without touching the ledger, and a
// redelivery after a crash between the slot promotion and the booking
// save finds the slots already BOOKED under its own ref, which the store
// treats as done, so the retry completes the save.
func (c *Coordinator) Confirm(ctx context.Context, id booking.BookingID, settlementRef string) error {
	b, err := c.bookingByID(ctx, id)
	if err != nil {
		return err
	}
	now := c.now()
	already, err := b.Confirm(settlementRef, now)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	err = c.withRetry(ctx, "availability.book", func() error {
		return c.Slots.TrySetExclusive(ctx, b.UnitID, b.Range.Days(), availability.StatusHold, availability.StatusBooked, string(b.ID))
	})
	if err != nil {
		return fmt.Errorf("confirm %s: %w", b.ID, err)
	}
	if err := c.saveBooking(ctx, b); err != nil {
		return err
	}

	evs := append(b.PendingEvents(), availability.SlotsBookedEvent(b.UnitID, b.Range, string(b.ID), now))
	b.ClearEvents()
	c.publish(ctx, evs)
	return nil
}

// Release cancels a booking and reverts its own claimed dates to
// AVAILABLE. Idempotent; slots that have meanwhile been claimed by a
// different booking are never touched, the store filters on the claim ref.
// The cancellation is persisted before any slot changes: the version CAS
// on the save rejects a releaser holding a stale read, so a booking that
// was confirmed in the meantime keeps its BOOKED dates.
func (c *Coordinator) Release(ctx context.Context, id booking.BookingID, reason string) error {
	b, err := c.bookingByID(ctx, id)
	if err != nil {
		return err
	}
	now := c.now()
	already, err := b.Cancel(reason, now)
	if err != nil {
		return err
	}
	if already {
		// Redelivered release. Re-run the slot sweep in case a crash
		// separated the saved cancellation from the ledger update.
		return c.withRetry(ctx, "availability.release", func() error {
			return c.Slots.Release(ctx, b.UnitID, b.Range.Days(), string(b.ID))
		})
	}

	if err := c.saveBooking(ctx, b); err != nil {
		return err
	}
	err = c.withRetry(ctx, "availability.release", func() error {
		return c.Slots.Release(ctx, b.UnitID, b.Range.Days(), string(b.ID))
	})
	if err != nil {
		return err
	}

	evs := append(b.PendingEvents(), availability.SlotsReleasedEvent(b.UnitID, b.Range, string(b.ID), now))
	b.ClearEvents()
	c.publish(ctx, evs)
	return nil
}

// AdminSetSlot toggles a single date between AVAILABLE and HOLD for
// inventory blocking. BOOKED dates are owned by their booking and cannot
// be touched here.
func (c *Coordinator) AdminSetSlot(ctx context.Context, unitID unit.UnitID, date time.Time, status availability.Status) error {
	if status != availability.StatusAvailable && status != availability.StatusHold {
		return availability.ErrInvalidState
	}
	day := daterange.Day(date)
	var current availability.Status
	err := c.withRetry(ctx, "availability.status_of", func() error {
		var err error
		current, err = c.Slots.StatusOf(ctx, unitID, day)
		return err
	})
	if err != nil {
		return err
	}
	if current == availability.StatusBooked {
		return availability.ErrInvalidState
	}
	if current == status {
		return nil
	}

	err = c.withRetry(ctx, "availability.toggle", func() error {
		return c.Slots.TrySetExclusive(ctx, unitID, []time.Time{day}, current, status, availability.AdminBlockRef)
	})
	if err != nil {
		return err
	}
	c.publish(ctx, []events.DomainEvent{availability.SlotToggledEvent(unitID, day, status, c.now())})
	return nil
}

type CreateConfirmedParams struct {
	UnitID        unit.UnitID
	CheckIn       time.Time
	CheckOut      time.Time
	UserID        string
	Total         money.Money
	SettlementRef string
}

// CreateConfirmed backfills a booking for an out-of-band payment that
// carries no booking reference. The dates pass through the same exclusive
// claim as a regular hold, so it loses races identically.
func (c *Coordinator) CreateConfirmed(ctx context.Context, p CreateConfirmedParams) (*HoldReceipt, error) {
	dr, err := daterange.New(p.CheckIn, p.CheckOut)
	if err != nil {
		return nil, err
	}
	u, err := c.unitByID(ctx, p.UnitID)
	if err != nil {
		return nil, err
	}

	now := c.now()
	bookingID := booking.BookingID(uuid.NewString())
	err = c.withRetry(ctx, "availability.hold", func() error {
		return c.Slots.TrySetExclusive(ctx, u.ID, dr.Days(), availability.StatusAvailable, availability.StatusHold, string(bookingID))
	})
	if err != nil {
		return nil, err
	}
	// The claim above is exclusive, so promoting it cannot race.
	err = c.withRetry(ctx, "availability.book", func() error {
		return c.Slots.TrySetExclusive(ctx, u.ID, dr.Days(), availability.StatusHold, availability.StatusBooked, string(bookingID))
	})
	if err != nil {
		c.compensateHold(ctx, u.ID, dr, string(bookingID))
		return nil, err
	}

	total := p.Total
	if total.IsZero() {
		total = u.NightlyRate().Multiply(int64(dr.Nights()))
	}
	b, err := booking.NewBooking(booking.CreateParams{
		ID:         bookingID,
		UnitID:     u.ID,
		UserID:     p.UserID,
		Range:      dr,
		TotalPrice: total,
		CreatedAt:  now,
	})
	if err == nil {
		_, err = b.Confirm(p.SettlementRef, now)
	}
	if err != nil {
		c.compensateHold(ctx, u.ID, dr, string(bookingID))
		return nil, err
	}
	if err := c.saveBooking(ctx, b); err != nil {
		c.compensateHold(ctx, u.ID, dr, string(bookingID))
		return nil, err
	}

	evs := append(b.PendingEvents(), availability.SlotsBookedEvent(u.ID, dr, string(bookingID), now))
	b.ClearEvents()
	c.publish(ctx, evs)

	return &HoldReceipt{BookingID: b.ID, AmountDue: b.TotalPrice, State: b.State}, nil
}

func (c *Coordinator) unitByID(ctx context.Context, id unit.UnitID) (*unit.Unit, error) {
	var u *unit.Unit
	err := c.withRetry(ctx, "unit.by_id", func() error {
		var err error
		u, err = c.Units.ByID(ctx, id)
		return err
	})
	return u, err
}

func (c *Coordinator) bookingByID(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	var b *booking.Booking
	err := c.withRetry(ctx, "booking.by_id", func() error {
		var err error
		b, err = c.Bookings.ByID(ctx, id)
		return err
	})
	return b, err
}

func (c *Coordinator) saveBooking(ctx context.Context, b *booking.Booking) error {
	return c.withRetry(ctx, "booking.save", func() error {
		return c.Bookings.Save(ctx, b)
	})
}

// compensateHold rolls back a freshly claimed range when a later step of
// the same request fails.
func (c *Coordinator) compensateHold(ctx context.Context, id unit.UnitID, dr daterange.DateRange, ref string) {
	if err := c.Slots.Release(ctx, id, dr.Days(), ref); err != nil {
		c.log().Error("hold compensation failed", "unit_id", id, "ref", ref, "error", err)
	}
}

// publish stages committed events for the broker and pings live
// subscribers. Failures are logged, never propagated: the feed is a
// refresh signal, the ledger stays the source of truth.
func (c *Coordinator) publish(ctx context.Context, evs []events.DomainEvent) {
	if err := outbox.RecordDomainEvents(ctx, c.Outbox, nil, evs); err != nil {
		c.log().Warn("outbox append failed", "error", err)
	}
	if c.Notifier == nil {
		return
	}
	for _, ev := range evs {
		c.Notifier.Notify(ctx, notify.FromEvent(ev))
	}
}

func (c *Coordinator) now() time.Time {
	if c.Clock != nil {
		return c.Clock().UTC()
	}
	return time.Now().UTC()
}

func (c *Coordinator) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// IsConflict reports whether err means the caller lost the race for a slot
// and may retry with a fresh range read.
func IsConflict(err error) bool {
	return errors.Is(err, availability.ErrConflict)
}
