package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tourops/guide-scheduler/internal/model"
)

type EmployeeStore interface {
	// Активные сотрудники по списку ID.
	ListActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Employee, error)
	// Найти сотрудника по ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Employee, error)
}

// Реализация на GORM.
type GormEmployeeStore struct {
	db *gorm.DB
}

func NewGormEmployeeStore(db *gorm.DB) *GormEmployeeStore {
	return &GormEmployeeStore{db: db}
}

func (r *GormEmployeeStore) ListActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Employee, error) {
	if len(ids) == 0 {
		return []model.Employee{}, nil
	}
	var employees []model.Employee
	err := r.db.WithContext(ctx).
		Model(&model.Employee{}).
		Where("id IN ?", ids).
		Where("is_active = ?", true).
		Find(&employees).Error
	if err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *GormEmployeeStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	var e model.Employee
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}
