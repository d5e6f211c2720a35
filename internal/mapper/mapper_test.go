package mapper

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velotrack/workshop-api/internal/domain"
)

func TestToQuotationDTORoundsMoney(t *testing.T) {
	q := &domain.Quotation{
		QuotationNumber: "Q-2026-0001",
		LineItems: domain.LineItems{{
			ID:          "item-1",
			Description: "Labor",
			Quantity:    decimal.NewFromFloat(1.5),
			UnitPrice:   decimal.NewFromFloat(33.333),
			Total:       decimal.NewFromFloat(49.9995),
		}},
		Subtotal:  decimal.NewFromFloat(49.9995),
		TaxRate:   decimal.NewFromInt(25),
		TaxAmount: decimal.NewFromFloat(12.499875),
		Total:     decimal.NewFromFloat(62.499375),
		Status:    domain.QuotationStatusDraft,
	}

	dto := ToQuotationDTO(q)

	assert.Equal(t, "Q-2026-0001", dto.QuotationNumber)
	assert.Equal(t, 50.0, dto.Subtotal)
	assert.Equal(t, 12.5, dto.TaxAmount)
	assert.Equal(t, 62.5, dto.Total)
	require.Len(t, dto.LineItems, 1)
	assert.Equal(t, 50.0, dto.LineItems[0].Total)
	assert.Equal(t, 1.5, dto.LineItems[0].Quantity)
}

func TestToInvoiceDTODerivedFields(t *testing.T) {
	quotationID := uuid.New()
	inv := &domain.Invoice{
		InvoiceNumber: "INV-2026-0001",
		QuotationID:   &quotationID,
		Total:         decimal.NewFromInt(100),
		PaidAmount:    decimal.NewFromInt(40),
		PaymentStatus: domain.PaymentStatusPartial,
		DueDate:       time.Now().Add(48 * time.Hour),
	}

	dto := ToInvoiceDTO(inv)

	assert.Equal(t, 60.0, dto.RemainingAmount)
	assert.False(t, dto.IsOverdue)
	assert.True(t, dto.IsDueSoon, "due in 2 days is within the due-soon window")
	require.NotNil(t, dto.QuotationID)
	assert.Equal(t, quotationID, *dto.QuotationID)
}

func TestToInvoiceDTOOverdue(t *testing.T) {
	inv := &domain.Invoice{
		Total:         decimal.NewFromInt(100),
		PaidAmount:    decimal.Zero,
		PaymentStatus: domain.PaymentStatusPending,
		DueDate:       time.Now().Add(-24 * time.Hour),
	}

	dto := ToInvoiceDTO(inv)

	assert.True(t, dto.IsOverdue)
	assert.False(t, dto.IsDueSoon)
	assert.Equal(t, 100.0, dto.RemainingAmount)
}
