package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tourops/guide-scheduler/internal/model"
)

type LocalBookingStore interface {
	// Выборка по фильтру (интервал дат и статусы — на стороне БД).
	Query(ctx context.Context, filter BookingFilter) ([]model.LocalBooking, error)
	// Найти бронь по ID.
	GetByID(ctx context.Context, id uint) (*model.LocalBooking, error)
	// Подтверждённые брони без гида начиная с даты from.
	ListUnassignedConfirmed(ctx context.Context, from time.Time) ([]model.LocalBooking, error)
	// Брони с назначенным гидом на точный (дата, слот) в заданных статусах.
	ListAssignedAt(ctx context.Context, date time.Time, slot string, statuses []model.BookingStatus) ([]model.LocalBooking, error)
	// Назначить гида на бронь.
	UpdateGuideAssignment(ctx context.Context, id uint, guideID uuid.UUID, notes string) error
	// Снять назначение гида.
	ClearGuideAssignment(ctx context.Context, id uint) error
}

// Реализация на GORM.
type GormLocalBookingStore struct {
	db *gorm.DB
}

func NewGormLocalBookingStore(db *gorm.DB) *GormLocalBookingStore {
	return &GormLocalBookingStore{db: db}
}

func (r *GormLocalBookingStore) Query(ctx context.Context, filter BookingFilter) ([]model.LocalBooking, error) {
	var bookings []model.LocalBooking

	q := r.db.WithContext(ctx).Model(&model.LocalBooking{})
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

func (r *GormLocalBookingStore) GetByID(ctx context.Context, id uint) (*model.LocalBooking, error) {
	var b model.LocalBooking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormLocalBookingStore) ListUnassignedConfirmed(ctx context.Context, from time.Time) ([]model.LocalBooking, error) {
	var bookings []model.LocalBooking
	err := r.db.WithContext(ctx).
		Model(&model.LocalBooking{}).
		Where("status = ?", model.BookingStatusConfirmed).
		Where("assigned_guide_id IS NULL").
		Where("booking_date >= ?", from).
		Order("booking_date ASC, booking_time ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormLocalBookingStore) ListAssignedAt(
	ctx context.Context,
	date time.Time,
	slot string,
	statuses []model.BookingStatus,
) ([]model.LocalBooking, error) {
	var bookings []model.LocalBooking
	err := r.db.WithContext(ctx).
		Model(&model.LocalBooking{}).
		Where("booking_date = ?", date).
		Where("booking_time = ?", slot).
		Where("status IN ?", statuses).
		Where("assigned_guide_id IS NOT NULL").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormLocalBookingStore) UpdateGuideAssignment(ctx context.Context, id uint, guideID uuid.UUID, notes string) error {
	return r.db.WithContext(ctx).
		Model(&model.LocalBooking{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"assigned_guide_id": guideID,
			"guide_notes":       notes,
		}).
		Error
}

func (r *GormLocalBookingStore) ClearGuideAssignment(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&model.LocalBooking{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"assigned_guide_id": nil,
			"guide_notes":       "",
		}).
		Error
}
