package provider

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/tourops/guide-scheduler/internal/calendar"
	"github.com/tourops/guide-scheduler/internal/model"
)

// ToCachedBooking превращает сырую бронь провайдера в строку зеркала.
// Единственная точка входа внешних данных в каноническую форму —
// дальше по коду никаких проверок "а есть ли поле" быть не должно.
func ToCachedBooking(raw RawBooking, tourType string, syncedAt time.Time) (model.CachedBooking, error) {
	if raw.BookingID == "" {
		return model.CachedBooking{}, fmt.Errorf("booking without bookingId")
	}

	date, err := calendar.ParseDate(raw.Date)
	if err != nil {
		return model.CachedBooking{}, fmt.Errorf("booking %s: %w", raw.BookingID, err)
	}
	if err := calendar.ParseSlot(raw.StartTime); err != nil {
		return model.CachedBooking{}, fmt.Errorf("booking %s: %w", raw.BookingID, err)
	}

	status, err := mapStatus(raw.Status)
	if err != nil {
		return model.CachedBooking{}, fmt.Errorf("booking %s: %w", raw.BookingID, err)
	}

	total := raw.Pax.Adults + raw.Pax.Children + raw.Pax.Infants

	return model.CachedBooking{
		ExternalID:  raw.BookingID,
		ProductID:   raw.ProductID,
		TourType:    tourType,
		BookingDate: datatypes.Date(date),
		BookingTime: raw.StartTime,
		Status:      status,
		Participants: model.ParticipantCounts{
			Adults:   raw.Pax.Adults,
			Children: raw.Pax.Children,
			Infants:  raw.Pax.Infants,
			Total:    total,
		},
		Customer: model.Customer{
			Name:  raw.Customer.Name,
			Email: raw.Customer.Email,
			Phone: raw.Customer.Phone,
		},
		SyncedAt: syncedAt,
	}, nil
}

// ToBooking — трансформ для live-фолбэка агрегатора, мимо кеша.
func ToBooking(raw RawBooking, tourType string, now time.Time) (model.Booking, error) {
	cached, err := ToCachedBooking(raw, tourType, now)
	if err != nil {
		return model.Booking{}, err
	}
	return cached.Booking(), nil
}

func mapStatus(s string) (model.BookingStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CONFIRMED":
		return model.BookingStatusConfirmed, nil
	case "PENDING":
		return model.BookingStatusPending, nil
	case "CANCELLED", "CANCELED":
		return model.BookingStatusCancelled, nil
	case "REJECTED":
		return model.BookingStatusRejected, nil
	default:
		return "", fmt.Errorf("unknown provider status %q", s)
	}
}
