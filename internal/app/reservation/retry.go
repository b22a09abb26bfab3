package reservation

import (
	"context"
	"errors"
	"time"

	"staybook/internal/domain/availability"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/rules"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/unit"
)

var defaultBackoff = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second}

// withRetry re-runs fn with bounded exponential backoff for transient
// store failures. Validation, conflict and state errors are returned
// immediately: retrying a lost race without a fresh read would be wrong.
func (c *Coordinator) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := c.Backoff
	if len(backoff) == 0 {
		backoff = defaultBackoff
	}
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) || attempt >= len(backoff) {
			return err
		}
		c.log().Warn("retrying after transient failure", "op", op, "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff[attempt]):
		}
	}
}

func isTransient(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, availability.ErrConflict), errors.Is(err, availability.ErrInvalidState):
		return false
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, booking.ErrInvalidState):
		return false
	case errors.Is(err, booking.ErrConcurrentUpdate):
		// A lost version race needs a fresh read, not a blind retry.
		return false
	case errors.Is(err, unit.ErrUnitNotFound):
		return false
	case errors.Is(err, daterange.ErrInvalidRange), rules.IsViolation(err):
		return false
	}
	return true
}
