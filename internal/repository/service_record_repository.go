package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/velotrack/workshop-api/internal/domain"
	"gorm.io/gorm"
)

type ServiceRecordRepository struct {
	db *gorm.DB
}

func NewServiceRecordRepository(db *gorm.DB) *ServiceRecordRepository {
	return &ServiceRecordRepository{db: db}
}

func (r *ServiceRecordRepository) Create(ctx context.Context, record *domain.ServiceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *ServiceRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ServiceRecord, error) {
	var record domain.ServiceRecord
	err := r.db.WithContext(ctx).
		Preload("ServiceRequest").
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
