package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/velotrack/workshop-api/internal/domain"
	"gorm.io/gorm"
)

type StoreRepository struct {
	db *gorm.DB
}

func NewStoreRepository(db *gorm.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) Create(ctx context.Context, store *domain.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *StoreRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	var store domain.Store
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}
