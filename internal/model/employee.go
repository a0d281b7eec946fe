package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// employees — гиды.
type Employee struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	FirstName string `gorm:"type:varchar(128);not null"`
	LastName  string `gorm:"type:varchar(128)"`
	Email     string `gorm:"type:varchar(255);uniqueIndex"`

	// Типы туров, которые гид имеет право вести.
	Qualifications datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	IsActive bool `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// QualifiedFor — проверка квалификации по типу тура.
func (e Employee) QualifiedFor(tourType string) bool {
	for _, q := range e.Qualifications {
		if q == tourType {
			return true
		}
	}
	return false
}
