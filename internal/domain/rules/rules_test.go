package rules

import (
	"errors"
	"testing"
	"time"

	"staybook/internal/domain/shared/daterange"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(Default())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	if _, err := NewEngine(ArrivalRules{MinimumStayNights: 0}); err == nil {
		t.Error("zero minimum stay accepted")
	}
	if _, err := NewEngine(ArrivalRules{MinimumStayNights: 1, MinimumAdvanceBusinessDays: -1}); err == nil {
		t.Error("negative advance notice accepted")
	}
}

func TestAddBusinessDays(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		n     int
		want  time.Time
	}{
		{"zero days", date(2024, time.May, 20), 0, date(2024, time.May, 20)},
		{"midweek", date(2024, time.May, 20), 3, date(2024, time.May, 23)}, // Mon -> Thu
		{"over a weekend", date(2024, time.May, 30), 3, date(2024, time.June, 4)},  // Thu -> Tue
		{"from friday", date(2024, time.May, 31), 3, date(2024, time.June, 5)},     // Fri -> Wed
		{"from saturday", date(2024, time.June, 1), 1, date(2024, time.June, 3)},   // Sat -> Mon
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AddBusinessDays(tc.start, tc.n); !got.Equal(tc.want) {
				t.Fatalf("AddBusinessDays(%v, %d) = %v, want %v", tc.start, tc.n, got, tc.want)
			}
		})
	}
}

func TestAdmit(t *testing.T) {
	e := defaultEngine(t)
	today := date(2024, time.May, 20) // Monday

	cases := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
		today    time.Time
		wantErr  error
	}{
		{
			name:     "two full weeks",
			checkIn:  date(2024, time.June, 2), // Sunday
			checkOut: date(2024, time.June, 15), // Saturday
			today:    today,
		},
		{
			name:     "six nights",
			checkIn:  date(2024, time.June, 2),
			checkOut: date(2024, time.June, 8),
			today:    today,
			wantErr:  ErrMinimumStay,
		},
		{
			name:     "arrival on monday",
			checkIn:  date(2024, time.June, 3),
			checkOut: date(2024, time.June, 15),
			today:    today,
			wantErr:  ErrArrivalDay,
		},
		{
			name:     "departure on sunday",
			checkIn:  date(2024, time.June, 2),
			checkOut: date(2024, time.June, 16),
			today:    today,
			wantErr:  ErrDepartureDay,
		},
		{
			name:     "inside advance notice window",
			checkIn:  date(2024, time.June, 2),
			checkOut: date(2024, time.June, 15),
			today:    date(2024, time.May, 30), // Thu; earliest arrival is Tue Jun 4
			wantErr:  ErrAdvanceNotice,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dr, err := daterange.New(tc.checkIn, tc.checkOut)
			if err != nil {
				t.Fatalf("daterange.New: %v", err)
			}
			err = e.Admit(dr, tc.today)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Admit: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Admit = %v, want %v", err, tc.wantErr)
			}
			if !IsViolation(err) {
				t.Errorf("IsViolation(%v) = false", err)
			}
		})
	}
}

func TestIsValidCheckIn(t *testing.T) {
	e := defaultEngine(t)
	today := date(2024, time.May, 30) // Thursday, earliest arrival Tue Jun 4

	if e.IsValidCheckIn(date(2024, time.June, 2), today) {
		t.Error("Sunday inside notice window accepted")
	}
	if !e.IsValidCheckIn(date(2024, time.June, 9), today) {
		t.Error("next Sunday outside notice window rejected")
	}
	if e.IsValidCheckIn(date(2024, time.June, 10), today) {
		t.Error("Monday accepted as arrival day")
	}
}

func TestAdmitCustomRules(t *testing.T) {
	e, err := NewEngine(ArrivalRules{
		ArrivalDay:                 time.Friday,
		DepartureDay:               time.Friday,
		MinimumStayNights:          2,
		MinimumAdvanceBusinessDays: 0,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	dr, _ := daterange.New(date(2024, time.June, 7), date(2024, time.June, 14))
	if err := e.Admit(dr, date(2024, time.June, 7)); err != nil {
		t.Fatalf("same-day Friday to Friday rejected: %v", err)
	}
}
