package domain

import (
	"time"

	"github.com/google/uuid"
)

// LineItemInput is a client-supplied line item; totals are always recomputed
// server side
type LineItemInput struct {
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
}

// CreateQuotationRequest is the body of POST /stores/{storeId}/quotations
type CreateQuotationRequest struct {
	ServiceRequestID uuid.UUID       `json:"serviceRequestId" validate:"required"`
	LineItems        []LineItemInput `json:"lineItems" validate:"required,min=1,dive"`
	TaxRate          float64         `json:"taxRate" validate:"gte=0,lte=100"`
	ValidityDays     *int            `json:"validityDays,omitempty" validate:"omitempty,gt=0"`
	Notes            string          `json:"notes,omitempty" validate:"max=2000"`
}

// UpdateQuotationRequest is the body of PATCH /quotations/{id}.
// Nil fields are left unchanged; line item or tax rate changes recompute totals.
type UpdateQuotationRequest struct {
	LineItems  *[]LineItemInput `json:"lineItems,omitempty" validate:"omitempty,min=1,dive"`
	TaxRate    *float64         `json:"taxRate,omitempty" validate:"omitempty,gte=0,lte=100"`
	ValidUntil *time.Time       `json:"validUntil,omitempty"`
	Notes      *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// RejectQuotationRequest carries the optional rejection reason
type RejectQuotationRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=2000"`
}

// CreateInvoiceRequest is the body of POST /stores/{storeId}/invoices.
// When LineItems is empty the invoice is seeded from the linked quotation.
type CreateInvoiceRequest struct {
	ServiceRecordID uuid.UUID       `json:"serviceRecordId" validate:"required"`
	QuotationID     *uuid.UUID      `json:"quotationId,omitempty"`
	LineItems       []LineItemInput `json:"lineItems,omitempty" validate:"omitempty,dive"`
	TaxRate         float64         `json:"taxRate" validate:"gte=0,lte=100"`
	DueDays         *int            `json:"dueDays,omitempty" validate:"omitempty,gt=0"`
	Notes           string          `json:"notes,omitempty" validate:"max=2000"`
}

// UpdateInvoiceRequest is the body of PATCH /invoices/{id}
type UpdateInvoiceRequest struct {
	LineItems *[]LineItemInput `json:"lineItems,omitempty" validate:"omitempty,min=1,dive"`
	TaxRate   *float64         `json:"taxRate,omitempty" validate:"omitempty,gte=0,lte=100"`
	DueDate   *time.Time       `json:"dueDate,omitempty"`
	Notes     *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// RecordPaymentRequest is the body of POST /invoices/{id}/payments
type RecordPaymentRequest struct {
	Amount      float64    `json:"amount" validate:"required,gt=0"`
	PaymentDate *time.Time `json:"paymentDate,omitempty"`
	Notes       string     `json:"notes,omitempty" validate:"max=2000"`
}

// LineItemDTO is the API representation of a line item, rounded for display
type LineItemDTO struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

// QuotationDTO is the API representation of a quotation
type QuotationDTO struct {
	ID               uuid.UUID       `json:"id"`
	QuotationNumber  string          `json:"quotationNumber"`
	StoreID          uuid.UUID       `json:"storeId"`
	ServiceRequestID uuid.UUID       `json:"serviceRequestId"`
	LineItems        []LineItemDTO   `json:"lineItems"`
	Subtotal         float64         `json:"subtotal"`
	TaxRate          float64         `json:"taxRate"`
	TaxAmount        float64         `json:"taxAmount"`
	Total            float64         `json:"total"`
	ValidUntil       time.Time       `json:"validUntil"`
	Status           QuotationStatus `json:"status"`
	Notes            string          `json:"notes,omitempty"`
	CreatedByID      uuid.UUID       `json:"createdById"`
	SentAt           *time.Time      `json:"sentAt,omitempty"`
	DecidedAt        *time.Time      `json:"decidedAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// InvoiceDTO is the API representation of an invoice
type InvoiceDTO struct {
	ID              uuid.UUID     `json:"id"`
	InvoiceNumber   string        `json:"invoiceNumber"`
	StoreID         uuid.UUID     `json:"storeId"`
	ServiceRecordID uuid.UUID     `json:"serviceRecordId"`
	QuotationID     *uuid.UUID    `json:"quotationId,omitempty"`
	LineItems       []LineItemDTO `json:"lineItems"`
	Subtotal        float64       `json:"subtotal"`
	TaxRate         float64       `json:"taxRate"`
	TaxAmount       float64       `json:"taxAmount"`
	Total           float64       `json:"total"`
	PaidAmount      float64       `json:"paidAmount"`
	RemainingAmount float64       `json:"remainingAmount"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	DueDate         time.Time     `json:"dueDate"`
	PaidDate        *time.Time    `json:"paidDate,omitempty"`
	IsOverdue       bool          `json:"isOverdue"`
	IsDueSoon       bool          `json:"isDueSoon"`
	Notes           string        `json:"notes,omitempty"`
	CreatedByID     uuid.UUID     `json:"createdById"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// PaginatedResponse wraps list results with paging metadata
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"totalPages"`
	HasNext    bool        `json:"hasNext"`
	HasPrev    bool        `json:"hasPrev"`
}

// NewPaginatedResponse computes paging metadata for a result set
func NewPaginatedResponse(items interface{}, page, limit int, total int64) *PaginatedResponse {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &PaginatedResponse{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}
}

// SweepErrorDTO reports a single row failure inside a sweep batch
type SweepErrorDTO struct {
	ID    uuid.UUID `json:"id"`
	Error string    `json:"error"`
}

// SweepResultDTO reports the outcome of a batch sweep
type SweepResultDTO struct {
	Processed int             `json:"processed"`
	Errors    []SweepErrorDTO `json:"errors,omitempty"`
}
