package daterange

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewNormalizesToMidnightUTC(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	checkIn := time.Date(2024, time.June, 2, 15, 30, 0, 0, loc)
	checkOut := time.Date(2024, time.June, 15, 9, 0, 0, 0, loc)

	dr, err := New(checkIn, checkOut)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !dr.CheckIn.Equal(date(2024, time.June, 2)) {
		t.Errorf("check-in not truncated: %v", dr.CheckIn)
	}
	if !dr.CheckOut.Equal(date(2024, time.June, 15)) {
		t.Errorf("check-out not truncated: %v", dr.CheckOut)
	}
}

func TestNewRejectsInvertedAndEmptyRanges(t *testing.T) {
	cases := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
	}{
		{"inverted", date(2024, time.June, 15), date(2024, time.June, 2)},
		{"zero length", date(2024, time.June, 2), date(2024, time.June, 2)},
		{"zero value", time.Time{}, date(2024, time.June, 2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.checkIn, tc.checkOut); !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
		})
	}
}

func TestNightsAndDays(t *testing.T) {
	dr, err := New(date(2024, time.June, 2), date(2024, time.June, 15))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := dr.Nights(); got != 13 {
		t.Fatalf("Nights = %d, want 13", got)
	}
	days := dr.Days()
	if len(days) != 13 {
		t.Fatalf("len(Days) = %d, want 13", len(days))
	}
	if !days[0].Equal(dr.CheckIn) {
		t.Errorf("first day %v, want check-in", days[0])
	}
	last := days[len(days)-1]
	if !last.Equal(date(2024, time.June, 14)) {
		t.Errorf("last day %v; checkout itself must not be occupied", last)
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	a, _ := New(date(2024, time.June, 2), date(2024, time.June, 9))
	cases := []struct {
		name string
		b    DateRange
		want bool
	}{
		{"identical", a, true},
		{"back to back", mustRange(t, date(2024, time.June, 9), date(2024, time.June, 16)), false},
		{"one night shared", mustRange(t, date(2024, time.June, 8), date(2024, time.June, 16)), true},
		{"disjoint", mustRange(t, date(2024, time.July, 1), date(2024, time.July, 8)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.Overlaps(tc.b); got != tc.want {
				t.Fatalf("Overlaps = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestContainsDate(t *testing.T) {
	dr, _ := New(date(2024, time.June, 2), date(2024, time.June, 9))
	if !dr.ContainsDate(date(2024, time.June, 2)) {
		t.Error("check-in day should be contained")
	}
	if dr.ContainsDate(date(2024, time.June, 9)) {
		t.Error("checkout day must not be contained")
	}
}

func mustRange(t *testing.T, in, out time.Time) DateRange {
	t.Helper()
	dr, err := New(in, out)
	if err != nil {
		t.Fatalf("New(%v, %v): %v", in, out, err)
	}
	return dr
}
