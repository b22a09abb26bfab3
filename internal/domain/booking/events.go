package booking

import (
	"time"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/unit"
)

type BookingRequested struct {
	BookingID BookingID
	UnitID    unit.UnitID
	UserID    string
	Range     daterange.DateRange
	Total     money.Money
	At        time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID  BookingID
	UnitID     unit.UnitID
	Range      daterange.DateRange
	PaymentRef string
	At         time.Time
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID
	UnitID    unit.UnitID
	Range     daterange.DateRange
	Reason    string
	At        time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }
