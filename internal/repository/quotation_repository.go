package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/velotrack/workshop-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuotationFilter narrows quotation list queries
type QuotationFilter struct {
	StoreID          *uuid.UUID
	ServiceRequestID *uuid.UUID
	CustomerID       *uuid.UUID
	Status           *domain.QuotationStatus
}

type QuotationRepository struct {
	db *gorm.DB
}

func NewQuotationRepository(db *gorm.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

func (r *QuotationRepository) Create(ctx context.Context, quotation *domain.Quotation) error {
	return r.db.WithContext(ctx).Create(quotation).Error
}

func (r *QuotationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quotation, error) {
	var quotation domain.Quotation
	err := r.db.WithContext(ctx).
		Preload("ServiceRequest").
		Where("id = ?", id).
		First(&quotation).Error
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

// GetByIDForUpdate loads a quotation with a row lock. Must run inside the
// given transaction.
func (r *QuotationRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Quotation, error) {
	var quotation domain.Quotation
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&quotation).Error
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

func (r *QuotationRepository) Update(ctx context.Context, quotation *domain.Quotation) error {
	return r.db.WithContext(ctx).Save(quotation).Error
}

func (r *QuotationRepository) List(ctx context.Context, page, pageSize int, filter QuotationFilter) ([]domain.Quotation, int64, error) {
	var quotations []domain.Quotation
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Quotation{})

	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}
	if filter.ServiceRequestID != nil {
		query = query.Where("service_request_id = ?", *filter.ServiceRequestID)
	}
	if filter.CustomerID != nil {
		query = query.Where("service_request_id IN (?)",
			r.db.Model(&domain.ServiceRequest{}).Select("id").Where("customer_id = ?", *filter.CustomerID))
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&quotations).Error

	return quotations, total, err
}

// ExistsActiveForRequest reports whether a draft or sent quotation already
// occupies the service request. At most one active quotation may exist per
// request.
func (r *QuotationRepository) ExistsActiveForRequest(ctx context.Context, serviceRequestID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Quotation{}).
		Where("service_request_id = ?", serviceRequestID).
		Where("status IN ?", []domain.QuotationStatus{domain.QuotationStatusDraft, domain.QuotationStatusSent}).
		Count(&count).Error
	return count > 0, err
}

// ListExpired returns draft and sent quotations whose validity window has
// passed, oldest first. Used by the expiry sweep.
func (r *QuotationRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Quotation, error) {
	var quotations []domain.Quotation
	err := r.db.WithContext(ctx).
		Where("status IN ?", []domain.QuotationStatus{domain.QuotationStatusDraft, domain.QuotationStatusSent}).
		Where("valid_until < ?", now).
		Order("valid_until ASC").
		Limit(limit).
		Find(&quotations).Error
	return quotations, err
}
