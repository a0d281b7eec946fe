package model

import (
	"time"

	"github.com/google/uuid"
)

// cache_sync_runs — метаданные прогонов полной синхронизации кеша.
// lastFullSync = completed_at последнего прогона.
type CacheSyncRun struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	StartedAt   time.Time `gorm:"not null"`
	CompletedAt time.Time `gorm:"not null;index"`

	ProductsSynced int `gorm:"not null;default:0"`
	ProductsFailed int `gorm:"not null;default:0"`
	BookingsCached int `gorm:"not null;default:0"`
}
