package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
)

// DateRange represents a half-open stay interval [checkIn, checkOut).
// Both endpoints are normalized to midnight UTC; the occupancy ledger
// operates on whole calendar days.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Day truncates a timestamp to its calendar date in UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.CheckIn.IsZero() || dr.CheckOut.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

// Nights counts occupied nights, i.e. the number of ledger days in the range.
func (dr DateRange) Nights() int {
	return int(dr.CheckOut.Sub(dr.CheckIn).Hours() / 24)
}

// Days enumerates every calendar date in [checkIn, checkOut).
func (dr DateRange) Days() []time.Time {
	days := make([]time.Time, 0, dr.Nights())
	for d := dr.CheckIn; d.Before(dr.CheckOut); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = Day(t)
	return !t.Before(dr.CheckIn) && t.Before(dr.CheckOut)
}
