package reservation

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/domain/booking"
)

// Reaper releases pending_payment bookings whose hold outlived its expiry,
// so an abandoned checkout cannot block dates forever. Releases go through
// the coordinator and are therefore idempotent: a reaped booking whose
// payment still lands afterwards fails confirm with InvalidState instead
// of corrupting the ledger.
type Reaper struct {
	Coordinator *Coordinator
	Bookings    booking.Repository
	Interval    time.Duration
	Logger      *slog.Logger
	Clock       func() time.Time
}

func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.reapOnce(ctx)
		}
	}
}

func (r *Reaper) reapOnce(ctx context.Context) {
	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock().UTC()
	}
	expired, err := r.Bookings.ListExpiredPending(ctx, now)
	if err != nil {
		r.log().Warn("expired hold scan failed", "error", err)
		return
	}
	for _, b := range expired {
		if err := r.Coordinator.Release(ctx, b.ID, "hold expired"); err != nil {
			r.log().Warn("expired hold release failed", "booking_id", b.ID, "error", err)
			continue
		}
		r.log().Info("expired hold released", "booking_id", b.ID, "unit_id", b.UnitID)
	}
}

func (r *Reaper) interval() time.Duration {
	if r.Interval <= 0 {
		return time.Minute
	}
	return r.Interval
}

func (r *Reaper) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
