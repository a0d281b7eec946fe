package calendar

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if !d.Equal(want) {
		t.Fatalf("expected %v, got %v", want, d)
	}

	for _, bad := range []string{"", "2025-13-01", "01.06.2025", "2025-06-01T10:00"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseDate(%q): expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestParseSlot(t *testing.T) {
	if err := ParseSlot("10:00"); err != nil {
		t.Fatalf("ParseSlot: %v", err)
	}
	for _, bad := range []string{"", "25:00", "10:60", "10am"} {
		if err := ParseSlot(bad); !errors.Is(err, ErrInvalidTimeSlot) {
			t.Fatalf("ParseSlot(%q): expected ErrInvalidTimeSlot, got %v", bad, err)
		}
	}
}

func TestCombine(t *testing.T) {
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err := Combine(date, "14:30")
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	want := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, err := Combine(date, "bad"); !errors.Is(err, ErrInvalidTimeSlot) {
		t.Fatalf("expected ErrInvalidTimeSlot, got %v", err)
	}
}

func TestNormalizeDateRange(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	r, err := NormalizeDateRange(from, to, 0)
	if err != nil {
		t.Fatalf("NormalizeDateRange: %v", err)
	}
	if !r.From.Equal(from) || !r.To.Equal(to) {
		t.Fatalf("range changed unexpectedly: %+v", r)
	}

	// Swapped bounds are corrected.
	r, err = NormalizeDateRange(to, from, 0)
	if err != nil {
		t.Fatalf("NormalizeDateRange swapped: %v", err)
	}
	if !r.From.Equal(from) || !r.To.Equal(to) {
		t.Fatalf("expected swapped bounds to be fixed, got %+v", r)
	}

	// maxDays clamps the upper bound.
	r, err = NormalizeDateRange(from, to, 3)
	if err != nil {
		t.Fatalf("NormalizeDateRange clamped: %v", err)
	}
	if !r.To.Equal(from.AddDate(0, 0, 3)) {
		t.Fatalf("expected clamp to from+3d, got %v", r.To)
	}

	if _, err := NormalizeDateRange(time.Time{}, to, 0); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange for zero bound, got %v", err)
	}
}

func TestDateRangeContains(t *testing.T) {
	r := DateRange{
		From: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
	}
	for _, tc := range []struct {
		day  int
		want bool
	}{
		{1, true}, {10, true}, {5, true}, {11, false},
	} {
		d := time.Date(2025, 6, tc.day, 0, 0, 0, 0, time.UTC)
		if got := r.Contains(d); got != tc.want {
			t.Fatalf("Contains(%v) = %v, want %v", d, got, tc.want)
		}
	}
	if r.Contains(time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date before range must not be contained")
	}
}
