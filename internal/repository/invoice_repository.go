package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/velotrack/workshop-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceFilter narrows invoice list queries
type InvoiceFilter struct {
	StoreID       *uuid.UUID
	CustomerID    *uuid.UUID
	PaymentStatus *domain.PaymentStatus
	OverdueOnly   bool
}

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.db.WithContext(ctx).
		Preload("ServiceRecord").
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetByIDForUpdate loads an invoice with a row lock. Must run inside the
// given transaction. Payments serialize on this lock so two concurrent
// payments can never both read the same paid amount.
func (r *InvoiceRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *InvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

func (r *InvoiceRepository) List(ctx context.Context, page, pageSize int, filter InvoiceFilter) ([]domain.Invoice, int64, error) {
	var invoices []domain.Invoice
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Invoice{})

	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}
	if filter.CustomerID != nil {
		query = query.Where("service_record_id IN (?)",
			r.db.Model(&domain.ServiceRecord{}).Select("service_records.id").
				Joins("JOIN service_requests ON service_requests.id = service_records.service_request_id").
				Where("service_requests.customer_id = ?", *filter.CustomerID))
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.OverdueOnly {
		query = query.Where("payment_status = ? OR (payment_status IN ? AND due_date < ?)",
			domain.PaymentStatusOverdue,
			[]domain.PaymentStatus{domain.PaymentStatusPending, domain.PaymentStatusPartial},
			time.Now())
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&invoices).Error

	return invoices, total, err
}

// ExistsForServiceRecord reports whether any non-cancelled invoice already
// bills the given service record
func (r *InvoiceRepository) ExistsForServiceRecord(ctx context.Context, serviceRecordID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("service_record_id = ?", serviceRecordID).
		Where("payment_status <> ?", domain.PaymentStatusCancelled).
		Count(&count).Error
	return count > 0, err
}

// ListOverdue returns pending and partial invoices past their due date,
// oldest first. Used by the overdue sweep.
func (r *InvoiceRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := r.db.WithContext(ctx).
		Where("payment_status IN ?", []domain.PaymentStatus{domain.PaymentStatusPending, domain.PaymentStatusPartial}).
		Where("due_date < ?", now).
		Order("due_date ASC").
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}
