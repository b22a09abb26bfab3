package rules

import (
	"errors"
	"fmt"
	"time"

	"staybook/internal/domain/shared/daterange"
)

var (
	ErrArrivalDay    = errors.New("rules: check-in must fall on the arrival day")
	ErrDepartureDay  = errors.New("rules: check-out must fall on the departure day")
	ErrMinimumStay   = errors.New("rules: stay is shorter than the minimum")
	ErrAdvanceNotice = errors.New("rules: check-in is inside the advance-notice window")
)

// ArrivalRules is process-wide admission configuration, loaded once and
// read-only thereafter.
type ArrivalRules struct {
	ArrivalDay                 time.Weekday
	DepartureDay               time.Weekday
	MinimumStayNights          int
	MinimumAdvanceBusinessDays int
}

func Default() ArrivalRules {
	return ArrivalRules{
		ArrivalDay:                 time.Sunday,
		DepartureDay:               time.Saturday,
		MinimumStayNights:          7,
		MinimumAdvanceBusinessDays: 3,
	}
}

// Engine evaluates admission policy. Pure and side-effect free; the same
// checks run on the booking edge and here, but this copy is the sole
// enforcement point.
type Engine struct {
	rules ArrivalRules
}

func NewEngine(r ArrivalRules) (*Engine, error) {
	if r.MinimumStayNights < 1 {
		return nil, fmt.Errorf("rules: minimum stay must be at least one night, got %d", r.MinimumStayNights)
	}
	if r.MinimumAdvanceBusinessDays < 0 {
		return nil, fmt.Errorf("rules: advance notice cannot be negative, got %d", r.MinimumAdvanceBusinessDays)
	}
	return &Engine{rules: r}, nil
}

func (e *Engine) Rules() ArrivalRules {
	return e.rules
}

// IsValidCheckIn reports whether date is an admissible arrival day seen
// from today: correct weekday and outside the advance-notice window.
func (e *Engine) IsValidCheckIn(date, today time.Time) bool {
	date = daterange.Day(date)
	if date.Weekday() != e.rules.ArrivalDay {
		return false
	}
	earliest := AddBusinessDays(daterange.Day(today), e.rules.MinimumAdvanceBusinessDays)
	return !date.Before(earliest)
}

// ValidateRange checks the stay shape independent of today: departure
// weekday, ordering and minimum length.
func (e *Engine) ValidateRange(dr daterange.DateRange) error {
	if err := dr.Validate(); err != nil {
		return err
	}
	if dr.CheckOut.Weekday() != e.rules.DepartureDay {
		return ErrDepartureDay
	}
	if dr.Nights() < e.rules.MinimumStayNights {
		return ErrMinimumStay
	}
	return nil
}

// Admit is the full admission check a hold request must pass.
func (e *Engine) Admit(dr daterange.DateRange, today time.Time) error {
	if err := e.ValidateRange(dr); err != nil {
		return err
	}
	if dr.CheckIn.Weekday() != e.rules.ArrivalDay {
		return ErrArrivalDay
	}
	if !e.IsValidCheckIn(dr.CheckIn, today) {
		return ErrAdvanceNotice
	}
	return nil
}

// IsViolation reports whether err is an admission-policy rejection, as
// opposed to an infrastructure failure.
func IsViolation(err error) bool {
	return errors.Is(err, ErrArrivalDay) ||
		errors.Is(err, ErrDepartureDay) ||
		errors.Is(err, ErrMinimumStay) ||
		errors.Is(err, ErrAdvanceNotice) ||
		errors.Is(err, daterange.ErrInvalidRange)
}

// AddBusinessDays advances t by n weekdays, skipping Saturdays and Sundays.
func AddBusinessDays(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return t
}
