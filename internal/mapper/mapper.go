// Package mapper converts domain models into API DTOs. Monetary values are
// rounded to two decimals here and nowhere else; the database keeps full
// precision.
package mapper

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/velotrack/workshop-api/internal/domain"
)

// dueSoonDays is the window used for the isDueSoon convenience flag
const dueSoonDays = 7

func toMoney(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// ToLineItemDTOs converts line items for API output
func ToLineItemDTOs(items domain.LineItems) []domain.LineItemDTO {
	dtos := make([]domain.LineItemDTO, len(items))
	for i, item := range items {
		dtos[i] = domain.LineItemDTO{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity.InexactFloat64(),
			UnitPrice:   toMoney(item.UnitPrice),
			Total:       toMoney(item.Total),
		}
	}
	return dtos
}

// ToQuotationDTO converts a quotation for API output
func ToQuotationDTO(q *domain.Quotation) domain.QuotationDTO {
	return domain.QuotationDTO{
		ID:               q.ID,
		QuotationNumber:  q.QuotationNumber,
		StoreID:          q.StoreID,
		ServiceRequestID: q.ServiceRequestID,
		LineItems:        ToLineItemDTOs(q.LineItems),
		Subtotal:         toMoney(q.Subtotal),
		TaxRate:          q.TaxRate.InexactFloat64(),
		TaxAmount:        toMoney(q.TaxAmount),
		Total:            toMoney(q.Total),
		ValidUntil:       q.ValidUntil,
		Status:           q.Status,
		Notes:            q.Notes,
		CreatedByID:      q.CreatedByID,
		SentAt:           q.SentAt,
		DecidedAt:        q.DecidedAt,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
}

// ToInvoiceDTO converts an invoice for API output, including the derived
// remaining balance and due flags
func ToInvoiceDTO(inv *domain.Invoice) domain.InvoiceDTO {
	now := time.Now()
	return domain.InvoiceDTO{
		ID:              inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		StoreID:         inv.StoreID,
		ServiceRecordID: inv.ServiceRecordID,
		QuotationID:     inv.QuotationID,
		LineItems:       ToLineItemDTOs(inv.LineItems),
		Subtotal:        toMoney(inv.Subtotal),
		TaxRate:         inv.TaxRate.InexactFloat64(),
		TaxAmount:       toMoney(inv.TaxAmount),
		Total:           toMoney(inv.Total),
		PaidAmount:      toMoney(inv.PaidAmount),
		RemainingAmount: toMoney(inv.RemainingAmount()),
		PaymentStatus:   inv.PaymentStatus,
		DueDate:         inv.DueDate,
		PaidDate:        inv.PaidDate,
		IsOverdue:       inv.IsOverdue(now),
		IsDueSoon:       inv.IsDueSoon(now, dueSoonDays),
		Notes:           inv.Notes,
		CreatedByID:     inv.CreatedByID,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}
