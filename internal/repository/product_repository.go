package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tourops/guide-scheduler/internal/model"
)

type ProductMappingStore interface {
	// Активные связки внешний продукт -> локальный тип тура.
	ListActive(ctx context.Context) ([]model.ProductMapping, error)
}

// Реализация на GORM.
type GormProductMappingStore struct {
	db *gorm.DB
}

func NewGormProductMappingStore(db *gorm.DB) *GormProductMappingStore {
	return &GormProductMappingStore{db: db}
}

func (r *GormProductMappingStore) ListActive(ctx context.Context) ([]model.ProductMapping, error) {
	var mappings []model.ProductMapping
	err := r.db.WithContext(ctx).
		Model(&model.ProductMapping{}).
		Where("is_active = ?", true).
		Order("external_product_id ASC").
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}
