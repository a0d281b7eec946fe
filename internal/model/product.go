package model

import "time"

// product_mappings — связка внешнего продукта провайдера с локальным
// типом тура. Таблица read-only для ядра, заполняется извне.
type ProductMapping struct {
	ID uint `gorm:"primaryKey;autoIncrement"`

	ExternalProductID string `gorm:"type:varchar(64);not null;uniqueIndex"`
	TourType          string `gorm:"type:varchar(128);not null;index"`

	IsActive bool `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}
