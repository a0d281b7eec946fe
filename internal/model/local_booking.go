package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// bookings — собственный журнал бронирований.
// Создаётся и изменяется напрямую флоу бронирования; для агрегатора
// этот источник всегда авторитетен и читается без кеша.
type LocalBooking struct {
	ID uint `gorm:"primaryKey;autoIncrement"`

	TourType    string         `gorm:"type:varchar(128);not null;index"`
	BookingDate datatypes.Date `gorm:"type:date;not null;index"`
	// Слот времени в формате "15:04".
	BookingTime string        `gorm:"type:varchar(5);not null"`
	Status      BookingStatus `gorm:"type:varchar(32);not null;index"`

	Participants ParticipantCounts `gorm:"embedded"`
	Customer     Customer          `gorm:"embedded;embeddedPrefix:customer_"`

	AssignedGuideID *uuid.UUID `gorm:"type:uuid;index"`
	GuideNotes      string     `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (LocalBooking) TableName() string { return "bookings" }

// Booking — трансформ в каноническую форму. Единственное место,
// где локальная строка превращается в объединённый вид.
func (b LocalBooking) Booking() Booking {
	return Booking{
		ID:           b.ID,
		ExternalID:   nil,
		Source:       BookingSourceLocal,
		TourType:     b.TourType,
		BookingDate:  time.Time(b.BookingDate).UTC(),
		BookingTime:  b.BookingTime,
		Status:       b.Status,
		Participants: b.Participants,
		Customer:     b.Customer,

		AssignedGuideID: b.AssignedGuideID,
		GuideNotes:      b.GuideNotes,
	}
}
