package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tourops/guide-scheduler/internal/model"
)

type CacheStore interface {
	// Выборка из зеркала по фильтру.
	Query(ctx context.Context, filter BookingFilter) ([]model.CachedBooking, error)
	// Подтверждённые внешние брони с гидом на точный (дата, слот).
	ListAssignedAt(ctx context.Context, date time.Time, slot string) ([]model.CachedBooking, error)
	// Найти зеркальную строку по external_id.
	GetByExternalID(ctx context.Context, externalID string) (*model.CachedBooking, error)
	// Upsert по external_id. Поля админки (assigned_guide_id,
	// guide_notes) при обновлении не трогаются.
	Upsert(ctx context.Context, bookings []model.CachedBooking) error
	// Назначить гида на внешнюю бронь.
	UpdateGuideAssignment(ctx context.Context, externalID string, guideID uuid.UUID, notes string) error
	// Снять назначение гида с внешней брони.
	ClearGuideAssignment(ctx context.Context, externalID string) error
	// Полная очистка зеркала и метаданных синхронизации.
	Clear(ctx context.Context) error
	// Последний завершённый прогон синхронизации, nil — если не было.
	LastSyncRun(ctx context.Context) (*model.CacheSyncRun, error)
	// Зафиксировать прогон синхронизации.
	RecordSyncRun(ctx context.Context, run *model.CacheSyncRun) error
}

// Реализация на GORM.
type GormCacheStore struct {
	db *gorm.DB
}

func NewGormCacheStore(db *gorm.DB) *GormCacheStore {
	return &GormCacheStore{db: db}
}

func (r *GormCacheStore) Query(ctx context.Context, filter BookingFilter) ([]model.CachedBooking, error) {
	var bookings []model.CachedBooking

	q := r.db.WithContext(ctx).Model(&model.CachedBooking{})
	if filter.From != nil {
		q = q.Where("booking_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("booking_date <= ?", *filter.To)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}

	if err := q.Order("booking_date ASC, booking_time ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormCacheStore) ListAssignedAt(ctx context.Context, date time.Time, slot string) ([]model.CachedBooking, error) {
	var bookings []model.CachedBooking
	err := r.db.WithContext(ctx).
		Model(&model.CachedBooking{}).
		Where("booking_date = ?", date).
		Where("booking_time = ?", slot).
		Where("status = ?", model.BookingStatusConfirmed).
		Where("assigned_guide_id IS NOT NULL").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormCacheStore) GetByExternalID(ctx context.Context, externalID string) (*model.CachedBooking, error) {
	var b model.CachedBooking
	if err := r.db.WithContext(ctx).First(&b, "external_id = ?", externalID).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormCacheStore) Upsert(ctx context.Context, bookings []model.CachedBooking) error {
	if len(bookings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"product_id",
				"tour_type",
				"booking_date",
				"booking_time",
				"status",
				"adults",
				"children",
				"infants",
				"total",
				"customer_name",
				"customer_email",
				"customer_phone",
				"synced_at",
				"updated_at",
			}),
		}).
		Create(&bookings).
		Error
}

func (r *GormCacheStore) UpdateGuideAssignment(ctx context.Context, externalID string, guideID uuid.UUID, notes string) error {
	return r.db.WithContext(ctx).
		Model(&model.CachedBooking{}).
		Where("external_id = ?", externalID).
		Updates(map[string]any{
			"assigned_guide_id": guideID,
			"guide_notes":       notes,
		}).
		Error
}

func (r *GormCacheStore) ClearGuideAssignment(ctx context.Context, externalID string) error {
	return r.db.WithContext(ctx).
		Model(&model.CachedBooking{}).
		Where("external_id = ?", externalID).
		Updates(map[string]any{
			"assigned_guide_id": nil,
			"guide_notes":       "",
		}).
		Error
}

func (r *GormCacheStore) Clear(ctx context.Context) error {
	if err := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.CachedBooking{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.CacheSyncRun{}).Error
}

func (r *GormCacheStore) LastSyncRun(ctx context.Context) (*model.CacheSyncRun, error) {
	var run model.CacheSyncRun
	err := r.db.WithContext(ctx).
		Order("completed_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *GormCacheStore) RecordSyncRun(ctx context.Context, run *model.CacheSyncRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}
