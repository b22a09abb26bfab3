package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/shared/money"
)

func TestBookingSaveVersionCAS(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()

	b, err := booking.NewBooking(booking.CreateParams{
		ID:         "b-1",
		UnitID:     "U1",
		UserID:     "guest-1",
		Range:      week(t),
		TotalPrice: money.Must(70000, "EUR"),
		CreatedAt:  time.Date(2024, time.May, 20, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	if err := repo.Save(ctx, b); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	stale, err := repo.ByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	fresh, _ := repo.ByID(ctx, b.ID)
	if _, err := fresh.Confirm("pi_123", time.Now()); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := repo.Save(ctx, fresh); err != nil {
		t.Fatalf("fresh save: %v", err)
	}

	// A writer holding the pre-confirmation version must be rejected.
	if _, err := stale.Cancel("expired", time.Now()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := repo.Save(ctx, stale); !errors.Is(err, booking.ErrConcurrentUpdate) {
		t.Fatalf("stale save = %v, want ErrConcurrentUpdate", err)
	}

	got, _ := repo.ByID(ctx, b.ID)
	if got.State != booking.StateConfirmed {
		t.Fatalf("state = %s, stale write must not land", got.State)
	}
}
