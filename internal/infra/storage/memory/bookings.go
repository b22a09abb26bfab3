package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"staybook/internal/domain/booking"
)

type BookingRepository struct {
	mu       sync.RWMutex
	bookings map[booking.BookingID]booking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{bookings: make(map[booking.BookingID]booking.Booking)}
}

func (r *BookingRepository) ByID(_ context.Context, id booking.BookingID) (*booking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	copy := b
	copy.ClearEvents()
	return &copy, nil
}

// Save applies the same version CAS as the durable repository: a writer
// holding a stale aggregate is rejected instead of silently overwriting.
func (r *BookingRepository) Save(_ context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.bookings[b.ID]; ok && existing.Version != b.Version {
		return booking.ErrConcurrentUpdate
	}
	b.Version++
	stored := *b
	stored.ClearEvents()
	r.bookings[b.ID] = stored
	return nil
}

func (r *BookingRepository) ListByUser(_ context.Context, userID string) ([]*booking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*booking.Booking
	for _, b := range r.bookings {
		if b.UserID != userID {
			continue
		}
		copy := b
		copy.ClearEvents()
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.CheckIn.Before(out[j].Range.CheckIn) })
	return out, nil
}

func (r *BookingRepository) ListExpiredPending(_ context.Context, cutoff time.Time) ([]*booking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*booking.Booking
	for _, b := range r.bookings {
		if b.State != booking.StatePendingPayment || b.HoldExpiresAt.IsZero() {
			continue
		}
		if b.HoldExpiresAt.After(cutoff) {
			continue
		}
		copy := b
		copy.ClearEvents()
		out = append(out, &copy)
	}
	return out, nil
}

var _ booking.Repository = (*BookingRepository)(nil)
