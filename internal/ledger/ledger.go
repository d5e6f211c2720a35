// Package ledger implements the pure line-item arithmetic shared by
// quotations and invoices. It has no state and no database dependency:
// callers pass in value snapshots and persist the results themselves.
package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/velotrack/workshop-api/internal/domain"
)

const maxDescriptionLength = 500

var hundred = decimal.NewFromInt(100)

// Totals holds the derived amounts for a set of line items.
// Values are kept at full precision; rounding happens at the
// presentation boundary only.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeTotals derives subtotal, tax amount and total from line items and a
// tax rate in percent. Items must already be validated; invalid input returns
// a ValidationError.
func ComputeTotals(items []domain.LineItem, taxRate decimal.Decimal) (Totals, error) {
	if err := ValidateItems(items); err != nil {
		return Totals{}, err
	}
	if err := ValidateTaxRate(taxRate); err != nil {
		return Totals{}, err
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Quantity.Mul(item.UnitPrice))
	}

	taxAmount := subtotal.Mul(taxRate).Div(hundred)

	return Totals{
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     subtotal.Add(taxAmount),
	}, nil
}

// ValidateItems checks the line-item list against the ledger rules:
// non-empty list, non-empty description up to 500 chars, quantity > 0,
// unit price >= 0.
func ValidateItems(items []domain.LineItem) error {
	if len(items) == 0 {
		return domain.NewValidationError("at least one line item is required", map[string]string{
			"lineItems": "must contain at least one item",
		})
	}

	details := make(map[string]string)
	for i, item := range items {
		field := func(name string) string { return fmt.Sprintf("lineItems[%d].%s", i, name) }
		if strings.TrimSpace(item.Description) == "" {
			details[field("description")] = "description is required"
		} else if len(item.Description) > maxDescriptionLength {
			details[field("description")] = fmt.Sprintf("description must be at most %d characters", maxDescriptionLength)
		}
		if !item.Quantity.IsPositive() {
			details[field("quantity")] = "quantity must be greater than zero"
		}
		if item.UnitPrice.IsNegative() {
			details[field("unitPrice")] = "unit price must not be negative"
		}
	}
	if len(details) > 0 {
		return domain.NewValidationError("invalid line items", details)
	}
	return nil
}

// ValidateTaxRate checks that the tax rate percent lies within [0, 100]
func ValidateTaxRate(taxRate decimal.Decimal) error {
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return domain.NewValidationError("tax rate must be between 0 and 100", map[string]string{
			"taxRate": "must be between 0 and 100",
		})
	}
	return nil
}

// BuildItems converts client line-item input into domain line items, assigning
// ids and deriving each item's total. Totals on the input are ignored.
func BuildItems(inputs []domain.LineItemInput) domain.LineItems {
	items := make(domain.LineItems, len(inputs))
	for i, in := range inputs {
		quantity := decimal.NewFromFloat(in.Quantity)
		unitPrice := decimal.NewFromFloat(in.UnitPrice)
		items[i] = domain.LineItem{
			ID:          uuid.New().String(),
			Description: in.Description,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			Total:       quantity.Mul(unitPrice),
		}
	}
	return items
}

// CloneItems copies line items for seeding a new document, assigning fresh
// ids and rederiving totals
func CloneItems(items domain.LineItems) domain.LineItems {
	cloned := make(domain.LineItems, len(items))
	for i, item := range items {
		cloned[i] = domain.LineItem{
			ID:          uuid.New().String(),
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Quantity.Mul(item.UnitPrice),
		}
	}
	return cloned
}
