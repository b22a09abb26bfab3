package payments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"staybook/internal/app/reservation"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/unit"
)

var ErrVerificationFailed = errors.New("payments: signature verification failed")

type Kind string

const (
	KindSettled Kind = "settled"
	KindFailed  Kind = "failed"
	KindUnknown Kind = "unknown"
)

// Notification is one processor callback after authenticity checks.
// Delivery is at-least-once and unordered; everything downstream has to
// tolerate duplicates.
type Notification struct {
	EventID       string
	Kind          Kind
	BookingRef    string
	SettlementRef string
	UnitID        string
	CheckIn       time.Time
	CheckOut      time.Time
	UserID        string
	Amount        int64
	Currency      string
}

// Verifier authenticates a raw processor payload. Implementations must
// reject before any state change; a bad signature never mutates anything.
type Verifier interface {
	Verify(payload []byte, signature string) (Notification, error)
}

// DedupeStore remembers processor event IDs with set-if-absent semantics.
// Best effort only: the coordinator's idempotent confirm is the
// correctness backstop, this just short-circuits redelivery storms.
type DedupeStore interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// Handler drives the coordinator's confirm/release transitions from
// asynchronous settlement notices.
type Handler struct {
	Coordinator *reservation.Coordinator
	Verifier    Verifier
	Dedupe      DedupeStore
	Logger      *slog.Logger
}

func (h *Handler) Handle(ctx context.Context, payload []byte, signature string) error {
	n, err := h.Verifier.Verify(payload, signature)
	if err != nil {
		h.log().Error("processor notification rejected", "error", err)
		return err
	}
	if n.Kind == KindUnknown {
		// Acknowledge without action so the processor stops redelivering.
		h.log().Debug("ignoring unrecognized processor event", "event_id", n.EventID)
		return nil
	}

	if h.Dedupe != nil && n.EventID != "" {
		seen, err := h.Dedupe.Seen(ctx, n.EventID)
		if err != nil {
			h.log().Warn("event dedupe unavailable, relying on idempotent confirm", "error", err)
		} else if seen {
			h.log().Debug("duplicate processor event", "event_id", n.EventID)
			return nil
		}
	}

	switch n.Kind {
	case KindSettled:
		return h.settle(ctx, n)
	case KindFailed:
		return h.fail(ctx, n)
	}
	return nil
}

func (h *Handler) settle(ctx context.Context, n Notification) error {
	if n.BookingRef != "" {
		err := h.Coordinator.Confirm(ctx, booking.BookingID(n.BookingRef), n.SettlementRef)
		if err != nil {
			h.log().Error("confirm failed", "booking_id", n.BookingRef, "error", err)
			return err
		}
		h.log().Info("booking confirmed", "booking_id", n.BookingRef, "settlement_ref", n.SettlementRef)
		return nil
	}

	// Manually-initiated out-of-band payment: no prior hold exists, create
	// the confirmed booking directly. Same conflict rule applies.
	if n.UnitID == "" || n.CheckIn.IsZero() || n.CheckOut.IsZero() {
		h.log().Warn("settled event without booking ref or date range, acknowledging", "event_id", n.EventID)
		return nil
	}
	receipt, err := h.Coordinator.CreateConfirmed(ctx, reservation.CreateConfirmedParams{
		UnitID:        unit.UnitID(n.UnitID),
		CheckIn:       n.CheckIn,
		CheckOut:      n.CheckOut,
		UserID:        n.UserID,
		Total:         amountMoney(n),
		SettlementRef: n.SettlementRef,
	})
	if err != nil {
		h.log().Error("out-of-band booking failed", "unit_id", n.UnitID, "error", err)
		return err
	}
	h.log().Info("out-of-band booking created", "booking_id", receipt.BookingID, "unit_id", n.UnitID)
	return nil
}

func (h *Handler) fail(ctx context.Context, n Notification) error {
	if n.BookingRef == "" {
		return nil
	}
	if err := h.Coordinator.Release(ctx, booking.BookingID(n.BookingRef), "payment failed"); err != nil {
		h.log().Error("release after failed payment failed", "booking_id", n.BookingRef, "error", err)
		return err
	}
	h.log().Info("hold released after failed payment", "booking_id", n.BookingRef)
	return nil
}

func amountMoney(n Notification) money.Money {
	cur := n.Currency
	if cur == "" {
		cur = "EUR"
	}
	return money.Money{Amount: n.Amount, Currency: strings.ToUpper(cur)}
}

func (h *Handler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
