package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Источник записи о бронировании.
type BookingSource string

const (
	BookingSourceLocal    BookingSource = "local"
	BookingSourceExternal BookingSource = "external"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusRejected  BookingStatus = "rejected"
)

// ParticipantCounts — состав группы на тур.
type ParticipantCounts struct {
	Adults   int `gorm:"not null;default:0" json:"adults"`
	Children int `gorm:"not null;default:0" json:"children"`
	Infants  int `gorm:"not null;default:0" json:"infants"`
	Total    int `gorm:"not null;default:0" json:"total"`
}

// Customer — контактные данные клиента.
type Customer struct {
	Name  string `gorm:"type:varchar(255)" json:"name"`
	Email string `gorm:"type:varchar(255)" json:"email"`
	Phone string `gorm:"type:varchar(64)" json:"phone"`
}

// Booking — каноническое представление брони, общее для обоих источников.
// Не является таблицей: собирается трансформами из LocalBooking,
// CachedBooking и сырых данных провайдера.
type Booking struct {
	ID         uint          `json:"id"`
	ExternalID *string       `json:"externalId,omitempty"`
	Source     BookingSource `json:"source"`

	TourType     string            `json:"tourType"`
	BookingDate  time.Time         `json:"bookingDate"`
	BookingTime  string            `json:"bookingTime"` // "15:04"
	Status       BookingStatus     `json:"status"`
	Participants ParticipantCounts `json:"participants"`
	Customer     Customer          `json:"customer"`

	AssignedGuideID *uuid.UUID `json:"assignedGuideId,omitempty"`
	GuideNotes      string     `json:"guideNotes,omitempty"`
}

// DedupKey — идентичность брони при слиянии источников:
// внешний ID, если он есть, иначе локальный ID с префиксом.
func (b Booking) DedupKey() string {
	if b.ExternalID != nil && *b.ExternalID != "" {
		return *b.ExternalID
	}
	return fmt.Sprintf("local:%d", b.ID)
}

// StartsAt совмещает дату брони и слот времени в один момент UTC.
// Некорректный слот трактуется как начало дня.
func (b Booking) StartsAt() time.Time {
	d := b.BookingDate.UTC()
	t, err := time.Parse("15:04", b.BookingTime)
	if err != nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}
