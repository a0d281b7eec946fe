package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// external_bookings — локальное зеркало броней сторонней платформы.
// Строки создаются и обновляются только оркестратором синхронизации,
// upsert по external_id. Исключение — поля assigned_guide_id и
// guide_notes: они принадлежат админке и синком не перезаписываются.
type CachedBooking struct {
	ID uint `gorm:"primaryKey;autoIncrement"`

	ExternalID string `gorm:"type:varchar(64);not null;uniqueIndex"`
	// Внешний ID продукта у провайдера, из которого пришла бронь.
	ProductID string `gorm:"type:varchar(64);not null;index"`

	TourType    string         `gorm:"type:varchar(128);not null;index"`
	BookingDate datatypes.Date `gorm:"type:date;not null;index"`
	BookingTime string         `gorm:"type:varchar(5);not null"`
	Status      BookingStatus  `gorm:"type:varchar(32);not null;index"`

	Participants ParticipantCounts `gorm:"embedded"`
	Customer     Customer          `gorm:"embedded;embeddedPrefix:customer_"`

	AssignedGuideID *uuid.UUID `gorm:"type:uuid;index"`
	GuideNotes      string     `gorm:"type:text"`

	SyncedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (CachedBooking) TableName() string { return "external_bookings" }

// Booking — трансформ зеркальной строки в каноническую форму.
func (b CachedBooking) Booking() Booking {
	ext := b.ExternalID
	return Booking{
		ID:           b.ID,
		ExternalID:   &ext,
		Source:       BookingSourceExternal,
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
