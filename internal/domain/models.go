package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// RoleType represents a role an actor can have
type RoleType string

const (
	RoleAdmin      RoleType = "admin"
	RoleStoreOwner RoleType = "store_owner"
	RoleStoreStaff RoleType = "store_staff"
	RoleCustomer   RoleType = "customer"
)

// IsValid checks if the RoleType is a valid enum value
func (r RoleType) IsValid() bool {
	switch r {
	case RoleAdmin, RoleStoreOwner, RoleStoreStaff, RoleCustomer:
		return true
	}
	return false
}

// User represents an actor in the system (staff, store owner, customer, admin)
type User struct {
	BaseModel
	Email       string         `gorm:"type:varchar(255);not null;unique"`
	DisplayName string         `gorm:"type:varchar(200);not null;column:display_name"`
	Roles       pq.StringArray `gorm:"type:text[];not null"`
	IsActive    bool           `gorm:"not null;default:true;column:is_active"`
}

// Store represents a bicycle shop location
type Store struct {
	BaseModel
	Name     string    `gorm:"type:varchar(200);not null;index"`
	OwnerID  uuid.UUID `gorm:"type:uuid;not null;index;column:owner_id"`
	Owner    *User     `gorm:"foreignKey:OwnerID"`
	Email    string    `gorm:"type:varchar(255)"`
	Phone    string    `gorm:"type:varchar(50)"`
	Address  string    `gorm:"type:varchar(500)"`
	IsActive bool      `gorm:"not null;default:true;column:is_active"`
}

// ServiceRequestStatus represents the status of a customer service request
type ServiceRequestStatus string

const (
	ServiceRequestStatusPending    ServiceRequestStatus = "pending"
	ServiceRequestStatusQuoted     ServiceRequestStatus = "quoted"
	ServiceRequestStatusApproved   ServiceRequestStatus = "approved"
	ServiceRequestStatusInProgress ServiceRequestStatus = "in_progress"
	ServiceRequestStatusCompleted  ServiceRequestStatus = "completed"
	ServiceRequestStatusCancelled  ServiceRequestStatus = "cancelled"
	ServiceRequestStatusExpired    ServiceRequestStatus = "expired"
)

// IsValid checks if the ServiceRequestStatus is a valid enum value
func (s ServiceRequestStatus) IsValid() bool {
	switch s {
	case ServiceRequestStatusPending, ServiceRequestStatusQuoted, ServiceRequestStatusApproved,
		ServiceRequestStatusInProgress, ServiceRequestStatusCompleted, ServiceRequestStatusCancelled,
		ServiceRequestStatusExpired:
		return true
	}
	return false
}

// ServiceRequest represents a customer's request to have a bike serviced.
// Its full lifecycle is owned elsewhere; quotations only read it and apply
// the narrow status side effects of their own transitions.
type ServiceRequest struct {
	BaseModel
	StoreID     uuid.UUID            `gorm:"type:uuid;not null;index;column:store_id"`
	Store       *Store               `gorm:"foreignKey:StoreID"`
	CustomerID  uuid.UUID            `gorm:"type:uuid;not null;index;column:customer_id"`
	Customer    *User                `gorm:"foreignKey:CustomerID"`
	BikeID      uuid.UUID            `gorm:"type:uuid;not null;column:bike_id"`
	Description string               `gorm:"type:varchar(2000)"`
	Status      ServiceRequestStatus `gorm:"type:varchar(50);not null;default:'pending';index"`
}

// ServiceRecordStatus represents the status of a service work record
type ServiceRecordStatus string

const (
	ServiceRecordStatusInProgress ServiceRecordStatus = "in_progress"
	ServiceRecordStatusCompleted  ServiceRecordStatus = "completed"
)

// ServiceRecord represents the work performed for a service request.
// Only completed records can be invoiced.
type ServiceRecord struct {
	BaseModel
	StoreID          uuid.UUID           `gorm:"type:uuid;not null;index;column:store_id"`
	ServiceRequestID uuid.UUID           `gorm:"type:uuid;not null;index;column:service_request_id"`
	ServiceRequest   *ServiceRequest     `gorm:"foreignKey:ServiceRequestID"`
	TechnicianID     uuid.UUID           `gorm:"type:uuid;column:technician_id"`
	Status           ServiceRecordStatus `gorm:"type:varchar(50);not null;default:'in_progress';index"`
	CompletedAt      *time.Time          `gorm:"column:completed_at"`
}

// QuotationStatus represents the lifecycle state of a quotation
type QuotationStatus string

const (
	QuotationStatusDraft    QuotationStatus = "draft"
	QuotationStatusSent     QuotationStatus = "sent"
	QuotationStatusApproved QuotationStatus = "approved"
	QuotationStatusRejected QuotationStatus = "rejected"
	QuotationStatusExpired  QuotationStatus = "expired"
)

// IsValid checks if the QuotationStatus is a valid enum value
func (s QuotationStatus) IsValid() bool {
	switch s {
	case QuotationStatusDraft, QuotationStatusSent, QuotationStatusApproved,
		QuotationStatusRejected, QuotationStatusExpired:
		return true
	}
	return false
}

// IsEditable reports whether line items, tax rate and validity may still change
func (s QuotationStatus) IsEditable() bool {
	return s == QuotationStatusDraft || s == QuotationStatusSent
}

// IsTerminal reports whether the quotation can never transition again
func (s QuotationStatus) IsTerminal() bool {
	switch s {
	case QuotationStatusApproved, QuotationStatusRejected, QuotationStatusExpired:
		return true
	}
	return false
}

// IsActive reports whether the quotation still occupies its service request.
// At most one active quotation may exist per service request.
func (s QuotationStatus) IsActive() bool {
	return s == QuotationStatusDraft || s == QuotationStatusSent
}

// Quotation represents a priced proposal for a service request
type Quotation struct {
	BaseModel
	QuotationNumber  string          `gorm:"type:varchar(50);unique;index;column:quotation_number"`
	StoreID          uuid.UUID       `gorm:"type:uuid;not null;index;column:store_id"`
	Store            *Store          `gorm:"foreignKey:StoreID"`
	ServiceRequestID uuid.UUID       `gorm:"type:uuid;not null;index;column:service_request_id"`
	ServiceRequest   *ServiceRequest `gorm:"foreignKey:ServiceRequestID"`
	LineItems        LineItems       `gorm:"type:jsonb;not null;column:line_items"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	TaxRate          decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0;column:tax_rate"`
	TaxAmount        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0;column:tax_amount"`
	Total            decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	ValidUntil       time.Time       `gorm:"not null;column:valid_until;index"`
	Status           QuotationStatus `gorm:"type:varchar(50);not null;default:'draft';index"`
	Notes            string          `gorm:"type:varchar(2000)"`
	CreatedByID      uuid.UUID       `gorm:"type:uuid;not null;column:created_by_id"`
	SentAt           *time.Time      `gorm:"column:sent_at"`
	DecidedAt        *time.Time      `gorm:"column:decided_at"`
}

// IsExpiredAt reports whether the quotation's validity window has passed.
// An expired-by-time quotation must be swept to expired before any decision.
func (q *Quotation) IsExpiredAt(now time.Time) bool {
	return q.ValidUntil.Before(now)
}

// PaymentStatus represents the payment lifecycle state of an invoice
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPartial   PaymentStatus = "partial"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusOverdue   PaymentStatus = "overdue"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// IsValid checks if the PaymentStatus is a valid enum value
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPartial, PaymentStatusPaid,
		PaymentStatusOverdue, PaymentStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further payments or edits are possible
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusCancelled
}

// AcceptsPayments reports whether a payment may still be recorded
func (s PaymentStatus) AcceptsPayments() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPartial, PaymentStatusOverdue:
		return true
	}
	return false
}

// Invoice represents a bill for a completed service record
type Invoice struct {
	BaseModel
	InvoiceNumber   string          `gorm:"type:varchar(50);unique;index;column:invoice_number"`
	StoreID         uuid.UUID       `gorm:"type:uuid;not null;index;column:store_id"`
	Store           *Store          `gorm:"foreignKey:StoreID"`
	ServiceRecordID uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_invoices_one_active_per_record,where:payment_status <> 'cancelled';column:service_record_id"`
	ServiceRecord   *ServiceRecord  `gorm:"foreignKey:ServiceRecordID"`
	QuotationID     *uuid.UUID      `gorm:"type:uuid;index;column:quotation_id"`
	Quotation       *Quotation      `gorm:"foreignKey:QuotationID"`
	LineItems       LineItems       `gorm:"type:jsonb;not null;column:line_items"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0;column:tax_rate"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0;column:tax_amount"`
	Total           decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0;column:paid_amount"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(50);not null;default:'pending';column:payment_status;index"`
	DueDate         time.Time       `gorm:"not null;column:due_date;index"`
	PaidDate        *time.Time      `gorm:"column:paid_date"`
	Notes           string          `gorm:"type:varchar(2000)"`
	CreatedByID     uuid.UUID       `gorm:"type:uuid;not null;column:created_by_id"`
}

// RemainingAmount returns the unpaid balance, never negative
func (i *Invoice) RemainingAmount() decimal.Decimal {
	remaining := i.Total.Sub(i.PaidAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsOverdue reports whether the invoice is past due and still collectible
func (i *Invoice) IsOverdue(now time.Time) bool {
	if i.PaymentStatus == PaymentStatusOverdue {
		return true
	}
	if i.PaymentStatus.IsTerminal() {
		return false
	}
	return i.DueDate.Before(now)
}

// IsDueSoon reports whether the invoice is unpaid and due within the given
// number of days from now
func (i *Invoice) IsDueSoon(now time.Time, days int) bool {
	if i.PaymentStatus == PaymentStatusPaid || i.PaymentStatus == PaymentStatusCancelled {
		return false
	}
	until := i.DueDate.Sub(now)
	return until > 0 && until <= time.Duration(days)*24*time.Hour
}

// DocumentType identifies which numbered document a sequence belongs to
type DocumentType string

const (
	DocumentTypeQuotation DocumentType = "quotation"
	DocumentTypeInvoice   DocumentType = "invoice"
)

// NumberSequence tracks the last issued sequence per document type and year
type NumberSequence struct {
	DocumentType DocumentType `gorm:"type:varchar(50);primaryKey;column:document_type"`
	Year         int          `gorm:"primaryKey"`
	LastSequence int          `gorm:"not null;default:0;column:last_sequence"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}
