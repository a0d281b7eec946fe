package calendar

import (
	"errors"
	"time"
)

const (
	// Дата тура в параметрах и у провайдера.
	DateLayout = "2006-01-02"
	// Слот времени: начало тура с точностью до минуты.
	SlotLayout = "15:04"
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidTimeSlot  = errors.New("invalid time slot")
	ErrInvalidDateRange = errors.New("invalid date range")
)

// ParseDate разбирает дату "2006-01-02" как полночь UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ParseSlot валидирует слот "15:04".
func ParseSlot(s string) error {
	if _, err := time.Parse(SlotLayout, s); err != nil {
		return ErrInvalidTimeSlot
	}
	return nil
}

// Combine совмещает дату и слот в момент UTC.
func Combine(date time.Time, slot string) (time.Time, error) {
	t, err := time.Parse(SlotLayout, slot)
	if err != nil {
		return time.Time{}, ErrInvalidTimeSlot
	}
	d := date.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// DateRange представляет интервал дат [From, To], обе границы включительно.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NormalizeDateRange нормализует интервал:
//   - меняет местами границы, если они перепутаны;
//   - обрезает до maxDays дней, если maxDays > 0.
func NormalizeDateRange(from, to time.Time, maxDays int) (DateRange, error) {
	if from.IsZero() || to.IsZero() {
		return DateRange{}, ErrInvalidDateRange
	}

	// Перестановка границ при необходимости.
	if to.Before(from) {
		from, to = to, from
	}

	if maxDays > 0 {
		limit := from.AddDate(0, 0, maxDays)
		if to.After(limit) {
			to = limit
		}
	}

	return DateRange{From: from, To: to}, nil
}

// Contains — попадает ли дата в интервал (границы включительно).
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.From) && !d.After(r.To)
}
