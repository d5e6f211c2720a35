package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// LineItem is a single priced line on a quotation or invoice.
// Total is always derived as Quantity x UnitPrice and never set directly.
type LineItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

// LineItems is the ordered list of line items, persisted as a JSONB column
type LineItems []LineItem

// Value implements driver.Valuer for JSONB storage
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		l = LineItems{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal line items: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSONB storage
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = LineItems{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported line items column type %T", value)
	}
	return json.Unmarshal(data, l)
}
