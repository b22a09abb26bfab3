package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"staybook/internal/app/reservation"
	"staybook/internal/domain/availability"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/rules"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/unit"
	"staybook/internal/infra/storage/memory"
)

type stubVerifier struct {
	notification Notification
	err          error
}

func (v stubVerifier) Verify([]byte, string) (Notification, error) {
	return v.notification, v.err
}

type testEnv struct {
	coordinator *reservation.Coordinator
	bookings    *memory.BookingRepository
	slots       *memory.AvailabilityStore
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	engine, err := rules.NewEngine(rules.Default())
	if err != nil {
		t.Fatalf("rules.NewEngine: %v", err)
	}
	units := memory.NewUnitRepository()
	units.Seed(unit.Unit{ID: "U1", Title: "Seaside cabin", InventoryCount: 1, WeeklyRate: money.Must(70000, "EUR")})
	bookings := memory.NewBookingRepository()
	slots := memory.NewAvailabilityStore()
	now := time.Date(2024, time.May, 20, 12, 0, 0, 0, time.UTC)
	return &testEnv{
		coordinator: &reservation.Coordinator{
			Units:    units,
			Bookings: bookings,
			Slots:    slots,
			Rules:    engine,
			Outbox:   memory.NewOutbox(),
			HoldTTL:  30 * time.Minute,
			Clock:    func() time.Time { return now },
		},
		bookings: bookings,
		slots:    slots,
	}
}

func (e *testEnv) holdBooking(t *testing.T) booking.BookingID {
	t.Helper()
	receipt, err := e.coordinator.RequestHold(context.Background(), reservation.RequestHoldParams{
		UnitID:   "U1",
		CheckIn:  time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
		UserID:   "guest-1",
	})
	if err != nil {
		t.Fatalf("RequestHold: %v", err)
	}
	return receipt.BookingID
}

func handlerWith(env *testEnv, v Verifier, d DedupeStore) *Handler {
	return &Handler{Coordinator: env.coordinator, Verifier: v, Dedupe: d}
}

func TestHandleRejectsBadSignatureWithoutMutation(t *testing.T) {
	env := newEnv(t)
	id := env.holdBooking(t)
	h := handlerWith(env, stubVerifier{err: ErrVerificationFailed}, nil)

	if err := h.Handle(context.Background(), []byte("{}"), "bad"); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("Handle = %v, want ErrVerificationFailed", err)
	}
	b, _ := env.bookings.ByID(context.Background(), id)
	if b.State != booking.StatePendingPayment {
		t.Fatalf("booking mutated by rejected payload: %s", b.State)
	}
}

func TestHandleSettlesHeldBooking(t *testing.T) {
	env := newEnv(t)
	id := env.holdBooking(t)
	h := handlerWith(env, stubVerifier{notification: Notification{
		EventID:       "evt_1",
		Kind:          KindSettled,
		BookingRef:    string(id),
		SettlementRef: "pi_123",
	}}, nil)

	if err := h.Handle(context.Background(), nil, ""); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	b, _ := env.bookings.ByID(context.Background(), id)
	if b.State != booking.StateConfirmed || b.PaymentRef != "pi_123" {
		t.Fatalf("booking %s ref %s", b.State, b.PaymentRef)
	}
}

func TestHandleDedupesRedeliveredEvents(t *testing.T) {
	env := newEnv(t)
	id := env.holdBooking(t)
	h := handlerWith(env, stubVerifier{notification: Notification{
		EventID:       "evt_1",
		Kind:          KindSettled,
		BookingRef:    string(id),
		SettlementRef: "pi_123",
	}}, memory.NewDedupeStore())

	for i := 0; i < 3; i++ {
		if err := h.Handle(context.Background(), nil, ""); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	b, _ := env.bookings.ByID(context.Background(), id)
	if b.State != booking.StateConfirmed {
		t.Fatalf("booking state = %s", b.State)
	}
}

func TestHandleIgnoresUnknownEvents(t *testing.T) {
	env := newEnv(t)
	h := handlerWith(env, stubVerifier{notification: Notification{EventID: "evt_x", Kind: KindUnknown}}, nil)
	if err := h.Handle(context.Background(), nil, ""); err != nil {
		t.Fatalf("unknown event not acknowledged: %v", err)
	}
}

func TestHandleReleasesOnFailedPayment(t *testing.T) {
	env := newEnv(t)
	id := env.holdBooking(t)
	h := handlerWith(env, stubVerifier{notification: Notification{
		EventID:    "evt_2",
		Kind:       KindFailed,
		BookingRef: string(id),
	}}, nil)

	if err := h.Handle(context.Background(), nil, ""); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	b, _ := env.bookings.ByID(context.Background(), id)
	if b.State != booking.StateCancelled {
		t.Fatalf("booking state = %s, want cancelled", b.State)
	}
	status, _ := env.slots.StatusOf(context.Background(), "U1", time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC))
	if status != availability.StatusAvailable {
		t.Fatalf("slot = %s after failed payment", status)
	}
}

func TestHandleBackfillsOutOfBandSettlement(t *testing.T) {
	env := newEnv(t)
	h := handlerWith(env, stubVerifier{notification: Notification{
		EventID:       "evt_3",
		Kind:          KindSettled,
		SettlementRef: "pi_oob",
		UnitID:        "U1",
		CheckIn:       time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
		UserID:        "guest-9",
		Amount:        130000,
		Currency:      "eur",
	}}, nil)

	if err := h.Handle(context.Background(), nil, ""); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	list, _ := env.bookings.ListByUser(context.Background(), "guest-9")
	if len(list) != 1 {
		t.Fatalf("bookings for guest-9 = %d, want 1", len(list))
	}
	b := list[0]
	if b.State != booking.StateConfirmed || b.PaymentRef != "pi_oob" {
		t.Fatalf("backfilled booking %s ref %s", b.State, b.PaymentRef)
	}
	if b.TotalPrice.Amount != 130000 || b.TotalPrice.Currency != "EUR" {
		t.Fatalf("total = %+v", b.TotalPrice)
	}
}

func TestHandleAcknowledgesSettlementWithoutTarget(t *testing.T) {
	env := newEnv(t)
	h := handlerWith(env, stubVerifier{notification: Notification{
		EventID:       "evt_4",
		Kind:          KindSettled,
		SettlementRef: "pi_orphan",
	}}, nil)
	// Nothing to confirm and no range to backfill; ack so the processor
	// stops redelivering.
	if err := h.Handle(context.Background(), nil, ""); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}
