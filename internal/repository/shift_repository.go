package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	scherrors "github.com/tourops/guide-scheduler/internal/errors"
	"github.com/tourops/guide-scheduler/internal/model"
)

type ShiftStore interface {
	// Смены в статусе available на точный (тип тура, дата, слот).
	ListAvailable(ctx context.Context, tourType string, date time.Time, slot string) ([]model.ShiftAvailability, error)
	// Создать смену (гид выставляет доступность сам).
	Create(ctx context.Context, shift *model.ShiftAvailability) error
	// Перевод available -> assigned. Условный апдейт: если смена уже
	// не available (гонка двух назначений), возвращает ConflictViolation.
	MarkAssigned(ctx context.Context, employeeID uuid.UUID, tourType string, date time.Time, slot string) error
	// Обратный перевод assigned -> available при снятии назначения.
	Release(ctx context.Context, employeeID uuid.UUID, tourType string, date time.Time, slot string) error
}

// Реализация на GORM.
type GormShiftStore struct {
	db *gorm.DB
}

func NewGormShiftStore(db *gorm.DB) *GormShiftStore {
	return &GormShiftStore{db: db}
}

func (r *GormShiftStore) ListAvailable(
	ctx context.Context,
	tourType string,
	date time.Time,
	slot string,
) ([]model.ShiftAvailability, error) {
	var shifts []model.ShiftAvailability
	err := r.db.WithContext(ctx).
		Model(&model.ShiftAvailability{}).
		Where("tour_type = ?", tourType).
		Where("shift_date = ?", date).
		Where("time_slot = ?", slot).
		Where("status = ?", model.ShiftStatusAvailable).
		Find(&shifts).Error
	if err != nil {
		return nil, err
	}
	return shifts, nil
}

func (r *GormShiftStore) Create(ctx context.Context, shift *model.ShiftAvailability) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *GormShiftStore) MarkAssigned(
	ctx context.Context,
	employeeID uuid.UUID,
	tourType string,
	date time.Time,
	slot string,
) error {
	res := r.db.WithContext(ctx).
		Model(&model.ShiftAvailability{}).
		Where("employee_id = ?", employeeID).
		Where("tour_type = ?", tourType).
		Where("shift_date = ?", date).
		Where("time_slot = ?", slot).
		Where("status = ?", model.ShiftStatusAvailable).
		Update("status", model.ShiftStatusAssigned)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return scherrors.ConflictViolation("mark_assigned",
			fmt.Errorf("shift %s/%s %s slot %s is not available", employeeID, tourType, date.Format("2006-01-02"), slot))
	}
	return nil
}

func (r *GormShiftStore) Release(
	ctx context.Context,
	employeeID uuid.UUID,
	tourType string,
	date time.Time,
	slot string,
) error {
	res := r.db.WithContext(ctx).
		Model(&model.ShiftAvailability{}).
		Where("employee_id = ?", employeeID).
		Where("tour_type = ?", tourType).
		Where("shift_date = ?", date).
		Where("time_slot = ?", slot).
		Where("status = ?", model.ShiftStatusAssigned).
		Update("status", model.ShiftStatusAvailable)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return scherrors.ConflictViolation("release_shift",
			fmt.Errorf("shift %s/%s %s slot %s is not assigned", employeeID, tourType, date.Format("2006-01-02"), slot))
	}
	return nil
}
