package ledger

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velotrack/workshop-api/internal/domain"
)

func item(desc string, qty, price float64) domain.LineItem {
	return domain.LineItem{
		ID:          "test-item",
		Description: desc,
		Quantity:    decimal.NewFromFloat(qty),
		UnitPrice:   decimal.NewFromFloat(price),
		Total:       decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(price)),
	}
}

func TestComputeTotals(t *testing.T) {
	t.Run("single item with tax", func(t *testing.T) {
		items := []domain.LineItem{item("Tune-up", 1, 75)}

		totals, err := ComputeTotals(items, decimal.NewFromInt(8))
		require.NoError(t, err)

		assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(75)), "subtotal = %s", totals.Subtotal)
		assert.True(t, totals.TaxAmount.Equal(decimal.NewFromInt(6)), "taxAmount = %s", totals.TaxAmount)
		assert.True(t, totals.Total.Equal(decimal.NewFromInt(81)), "total = %s", totals.Total)
	})

	t.Run("multiple items sum before tax", func(t *testing.T) {
		items := []domain.LineItem{
			item("Brake pads", 2, 24.50),
			item("Labor", 1.5, 60),
		}

		totals, err := ComputeTotals(items, decimal.NewFromInt(10))
		require.NoError(t, err)

		assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(139)), "subtotal = %s", totals.Subtotal)
		assert.True(t, totals.TaxAmount.Equal(decimal.NewFromFloat(13.9)), "taxAmount = %s", totals.TaxAmount)
	})

	t.Run("zero tax rate yields total equal to subtotal", func(t *testing.T) {
		items := []domain.LineItem{item("Chain", 1, 35)}

		totals, err := ComputeTotals(items, decimal.Zero)
		require.NoError(t, err)

		assert.True(t, totals.TaxAmount.IsZero())
		assert.True(t, totals.Total.Equal(totals.Subtotal))
	})

	t.Run("total always equals subtotal plus tax", func(t *testing.T) {
		cases := []struct {
			items   []domain.LineItem
			taxRate decimal.Decimal
		}{
			{[]domain.LineItem{item("A", 3, 9.99)}, decimal.NewFromFloat(25)},
			{[]domain.LineItem{item("A", 1, 0), item("B", 7, 1.25)}, decimal.NewFromFloat(12.5)},
			{[]domain.LineItem{item("A", 0.5, 199.95)}, decimal.NewFromInt(100)},
		}
		for _, tc := range cases {
			totals, err := ComputeTotals(tc.items, tc.taxRate)
			require.NoError(t, err)
			assert.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.TaxAmount)))
		}
	})

	t.Run("free item is allowed", func(t *testing.T) {
		items := []domain.LineItem{item("Courtesy check", 1, 0)}

		totals, err := ComputeTotals(items, decimal.NewFromInt(8))
		require.NoError(t, err)
		assert.True(t, totals.Total.IsZero())
	})
}

func TestComputeTotalsValidation(t *testing.T) {
	t.Run("empty item list", func(t *testing.T) {
		_, err := ComputeTotals(nil, decimal.NewFromInt(8))

		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Details, "lineItems")
	})

	t.Run("blank description", func(t *testing.T) {
		_, err := ComputeTotals([]domain.LineItem{item("   ", 1, 10)}, decimal.Zero)

		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Details, "lineItems[0].description")
	})

	t.Run("description over limit", func(t *testing.T) {
		long := strings.Repeat("x", maxDescriptionLength+1)
		_, err := ComputeTotals([]domain.LineItem{item(long, 1, 10)}, decimal.Zero)

		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Details, "lineItems[0].description")
	})

	t.Run("zero quantity", func(t *testing.T) {
		_, err := ComputeTotals([]domain.LineItem{item("Spoke", 0, 2)}, decimal.Zero)

		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Details, "lineItems[0].quantity")
	})

	t.Run("negative unit price", func(t *testing.T) {
		_, err := ComputeTotals([]domain.LineItem{item("Discount", 1, -5)}, decimal.Zero)

		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Details, "lineItems[0].unitPrice")
	})

	t.Run("faulty fields reported per item", func(t *testing.T) {
		items := []domain.LineItem{
			item("OK", 1, 10),
			item("", -1, -1),
		}
		_, err := ComputeTotals(items, decimal.Zero)

		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Details, "lineItems[1].description")
		assert.Contains(t, vErr.Details, "lineItems[1].quantity")
		assert.Contains(t, vErr.Details, "lineItems[1].unitPrice")
		assert.NotContains(t, vErr.Details, "lineItems[0].description")
	})

	t.Run("tax rate bounds", func(t *testing.T) {
		items := []domain.LineItem{item("Tube", 1, 8)}

		for _, rate := range []decimal.Decimal{decimal.NewFromFloat(-0.01), decimal.NewFromFloat(100.01)} {
			_, err := ComputeTotals(items, rate)
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr, "rate %s", rate)
			assert.Contains(t, vErr.Details, "taxRate")
		}

		_, err := ComputeTotals(items, decimal.NewFromInt(100))
		assert.NoError(t, err)
	})
}

func TestBuildItems(t *testing.T) {
	inputs := []domain.LineItemInput{
		{Description: "Wheel truing", Quantity: 2, UnitPrice: 20},
	}

	items := BuildItems(inputs)
	require.Len(t, items, 1)

	assert.NotEmpty(t, items[0].ID)
	assert.Equal(t, "Wheel truing", items[0].Description)
	assert.True(t, items[0].Total.Equal(decimal.NewFromInt(40)))
}

func TestCloneItems(t *testing.T) {
	source := domain.LineItems{item("Cassette", 1, 55)}

	cloned := CloneItems(source)
	require.Len(t, cloned, 1)

	assert.NotEqual(t, source[0].ID, cloned[0].ID, "clone must get a fresh id")
	assert.Equal(t, source[0].Description, cloned[0].Description)
	assert.True(t, cloned[0].Total.Equal(source[0].Total))
}
