package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/velotrack/workshop-api/internal/domain"
	"gorm.io/gorm"
)

type ServiceRequestRepository struct {
	db *gorm.DB
}

func NewServiceRequestRepository(db *gorm.DB) *ServiceRequestRepository {
	return &ServiceRequestRepository{db: db}
}

func (r *ServiceRequestRepository) Create(ctx context.Context, request *domain.ServiceRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *ServiceRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ServiceRequest, error) {
	var request domain.ServiceRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// UpdateStatusTx updates the request status inside the given transaction so
// quotation transitions and their request side effects commit together
func (r *ServiceRequestRepository) UpdateStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status domain.ServiceRequestStatus) error {
	return tx.WithContext(ctx).Model(&domain.ServiceRequest{}).
		Where("id = ?", id).
		Update("status", status).Error
}
