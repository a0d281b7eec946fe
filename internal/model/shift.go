package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Статус смены гида.
type ShiftStatus string

const (
	ShiftStatusAvailable   ShiftStatus = "available"
	ShiftStatusAssigned    ShiftStatus = "assigned"
	ShiftStatusUnavailable ShiftStatus = "unavailable"
	ShiftStatusCompleted   ShiftStatus = "completed"
	ShiftStatusCancelled   ShiftStatus = "cancelled"
)

// shift_availabilities — смены, которые гиды выставляют сами.
// Уникальны по (employee_id, tour_type, shift_date, time_slot).
// Для назначения годятся только смены в статусе available; переход
// в assigned выполняется вместе с назначением гида на бронь.
type ShiftAvailability struct {
	ID uint `gorm:"primaryKey;autoIncrement"`

	EmployeeID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_shift_slot,priority:1"`
	TourType   string         `gorm:"type:varchar(128);not null;uniqueIndex:idx_shift_slot,priority:2"`
	ShiftDate  datatypes.Date `gorm:"type:date;not null;uniqueIndex:idx_shift_slot,priority:3"`
	TimeSlot   string         `gorm:"type:varchar(5);not null;uniqueIndex:idx_shift_slot,priority:4"`

	Status ShiftStatus `gorm:"type:varchar(32);not null;default:'available';index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Employee *Employee `gorm:"foreignKey:EmployeeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
