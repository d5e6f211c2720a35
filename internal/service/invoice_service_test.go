package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velotrack/workshop-api/internal/domain"
	"github.com/velotrack/workshop-api/internal/service"
)

type invoiceTestEnv struct {
	fixtures *testFixtures
	invoices *service.InvoiceService
	quotes   *service.QuotationService
	staffCtx context.Context
	store    *domain.Store
	customer *domain.User
}

func setupInvoiceEnv(t *testing.T) *invoiceTestEnv {
	db := setupTestDB(t)
	quotes, invoices, fixtures := setupServices(t, db)

	staff := fixtures.createUser(t, domain.RoleStoreStaff)
	owner := fixtures.createUser(t, domain.RoleStoreOwner)
	customer := fixtures.createUser(t, domain.RoleCustomer)
	store := fixtures.createStore(t, owner.ID)

	return &invoiceTestEnv{
		fixtures: fixtures,
		invoices: invoices,
		quotes:   quotes,
		staffCtx: staffContext(staff.ID, store.ID),
		store:    store,
		customer: customer,
	}
}

// completedRecord creates a service request plus a completed record for it
func (e *invoiceTestEnv) completedRecord(t *testing.T) *domain.ServiceRecord {
	request := e.fixtures.createServiceRequest(t, e.store.ID, e.customer.ID, domain.ServiceRequestStatusCompleted)
	return e.fixtures.createServiceRecord(t, e.store.ID, request.ID, domain.ServiceRecordStatusCompleted)
}

func (e *invoiceTestEnv) createInvoice(t *testing.T, record *domain.ServiceRecord) *domain.InvoiceDTO {
	result, err := e.invoices.CreateInvoice(e.staffCtx, e.store.ID, &domain.CreateInvoiceRequest{
		ServiceRecordID: record.ID,
		LineItems:       tuneUpItems(),
		TaxRate:         8,
	})
	require.NoError(t, err)
	return result
}

func TestInvoiceService_CreateInvoice(t *testing.T) {
	env := setupInvoiceEnv(t)

	t.Run("bills a completed record with computed totals", func(t *testing.T) {
		record := env.completedRecord(t)

		result := env.createInvoice(t, record)
		assert.True(t, strings.HasPrefix(result.InvoiceNumber, "INV-"))
		assert.Equal(t, domain.PaymentStatusPending, result.PaymentStatus)
		assert.Equal(t, 75.0, result.Subtotal)
		assert.Equal(t, 6.0, result.TaxAmount)
		assert.Equal(t, 81.0, result.Total)
		assert.Equal(t, 0.0, result.PaidAmount)
		assert.Equal(t, 81.0, result.RemainingAmount)
		assert.WithinDuration(t, time.Now().AddDate(0, 0, 14), result.DueDate, time.Minute)
	})

	t.Run("in-progress records cannot be invoiced", func(t *testing.T) {
		request := env.fixtures.createServiceRequest(t, env.store.ID, env.customer.ID, domain.ServiceRequestStatusInProgress)
		record := env.fixtures.createServiceRecord(t, env.store.ID, request.ID, domain.ServiceRecordStatusInProgress)

		_, err := env.invoices.CreateInvoice(env.staffCtx, env.store.ID, &domain.CreateInvoiceRequest{
			ServiceRecordID: record.ID,
			LineItems:       tuneUpItems(),
		})
		var conflictErr *domain.ConflictError
		require.ErrorAs(t, err, &conflictErr)
	})

	t.Run("a record carries at most one non-cancelled invoice", func(t *testing.T) {
		record := env.completedRecord(t)
		first := env.createInvoice(t, record)

		_, err := env.invoices.CreateInvoice(env.staffCtx, env.store.ID, &domain.CreateInvoiceRequest{
			ServiceRecordID: record.ID,
			LineItems:       tuneUpItems(),
		})
		var conflictErr *domain.ConflictError
		require.ErrorAs(t, err, &conflictErr)

		// Cancelling the first frees the record for re-invoicing
		_, err = env.invoices.CancelInvoice(env.staffCtx, first.ID)
		require.NoError(t, err)

		_, err = env.invoices.CreateInvoice(env.staffCtx, env.store.ID, &domain.CreateInvoiceRequest{
			ServiceRecordID: record.ID,
			LineItems:       tuneUpItems(),
		})
		require.NoError(t, err)
	})

	t.Run("no items and no quotation falls back to a placeholder item", func(t *testing.T) {
		record := env.completedRecord(t)

		result, err := env.invoices.CreateInvoice(env.staffCtx, env.store.ID, &domain.CreateInvoiceRequest{
			ServiceRecordID: record.ID,
		})
		require.NoError(t, err)
		require.Len(t, result.LineItems, 1)
		assert.Equal(t, "Bicycle service", result.LineItems[0].Description)
		assert.Equal(t, 0.0, result.Total)
		assert.Equal(t, domain.PaymentStatusPending, result.PaymentStatus)
	})
}

func TestInvoiceService_CreateFromQuotation(t *testing.T) {
	env := setupInvoiceEnv(t)

	// Build an approved quotation, then complete the work
	request := env.fixtures.createServiceRequest(t, env.store.ID, env.customer.ID, domain.ServiceRequestStatusPending)
	quotation, err := env.quotes.CreateQuotation(env.staffCtx, env.store.ID, &domain.CreateQuotationRequest{
		ServiceRequestID: request.ID,
		LineItems: []domain.LineItemInput{
			{Description: "Tune-up", Quantity: 1, UnitPrice: 75},
			{Description: "Brake pads", Quantity: 2, UnitPrice: 12.5},
		},
		TaxRate: 8,
	})
	require.NoError(t, err)
	_, err = env.quotes.SendQuotation(env.staffCtx, quotation.ID)
	require.NoError(t, err)
	_, err = env.quotes.ApproveQuotation(customerContext(env.customer.ID), quotation.ID)
	require.NoError(t, err)

	record := env.fixtures.createServiceRecord(t, env.store.ID, request.ID, domain.ServiceRecordStatusCompleted)

	t.Run("seeds items and tax rate from the approved quotation", func(t *testing.T) {
		result, err := env.invoices.CreateInvoice(env.staffCtx, env.store.ID, &domain.CreateInvoiceRequest{
			ServiceRecordID: record.ID,
			QuotationID:     &quotation.ID,
		})
		require.NoError(t, err)
		require.Len(t, result.LineItems, 2)
		assert.Equal(t, quotation.Subtotal, result.Subtotal)
		assert.Equal(t, quotation.TaxRate, result.TaxRate)
		assert.Equal(t, quotation.Total, result.Total)
		require.NotNil(t, result.QuotationID)
		assert.Equal(t, quotation.ID, *result.QuotationID)

		// Cloned items get fresh identities
		for i, item := range result.LineItems {
			assert.NotEqual(t, quotation.LineItems[i].ID, item.ID)
		}
	})

	t.Run("an unapproved quotation cannot seed an invoice", func(t *testing.T) {
		otherRequest := env.fixtures.createServiceRequest(t, env.store.ID, env.customer.ID, domain.ServiceRequestStatusPending)
		draft, err := env.quotes.CreateQuotation(env.staffCtx, env.store.ID, &domain.CreateQuotationRequest{
			ServiceRequestID: otherRequest.ID,
			LineItems:        tuneUpItems(),
		})
		require.NoError(t, err)
		otherRecord := env.fixtures.createServiceRecord(t, env.store.ID, otherRequest.ID, domain.ServiceRecordStatusCompleted)

		_, err = env.invoices.CreateInvoice(env.staffCtx, env.store.ID, &domain.CreateInvoiceRequest{
			ServiceRecordID: otherRecord.ID,
			QuotationID:     &draft.ID,
		})
		var conflictErr *domain.ConflictError
		require.ErrorAs(t, err, &conflictErr)
	})
}

func TestInvoiceService_RecordPayment(t *testing.T) {
	env := setupInvoiceEnv(t)

	t.Run("partial payment moves the invoice to partial", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))

		result, err := env.invoices.RecordPayment(env.staffCtx, invoice.ID, &domain.RecordPaymentRequest{
			Amount: 50,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPartial, result.PaymentStatus)
		assert.Equal(t, 50.0, result.PaidAmount)
		assert.Equal(t, 31.0, result.RemainingAmount)
	})

	t.Run("full payment settles with the closing payment's date", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))

		first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		closing := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

		_, err := env.invoices.RecordPayment(env.staffCtx, invoice.ID, &domain.RecordPaymentRequest{
			Amount:      50,
			PaymentDate: &first,
		})
		require.NoError(t, err)

		result, err := env.invoices.RecordPayment(env.staffCtx, invoice.ID, &domain.RecordPaymentRequest{
			Amount:      31,
			PaymentDate: &closing,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPaid, result.PaymentStatus)
		assert.Equal(t, 0.0, result.RemainingAmount)
		require.NotNil(t, result.PaidDate)
		assert.True(t, result.PaidDate.Equal(closing))
	})

	t.Run("a future payment date is rejected", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))
		future := time.Now().Add(24 * time.Hour)

		_, err := env.invoices.RecordPayment(env.staffCtx, invoice.ID, &domain.RecordPaymentRequest{
			Amount:      10,
			PaymentDate: &future,
		})
		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("a payment cannot exceed the remaining balance", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))

		_, err := env.invoices.RecordPayment(env.staffCtx, invoice.ID, &domain.RecordPaymentRequest{
			Amount: 100,
		})
		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("paid invoices accept no further payments", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))

		_, err := env.invoices.RecordPayment(env.staffCtx, invoice.ID, &domain.RecordPaymentRequest{Amount: 81})
		require.NoError(t, err)

		_, err = env.invoices.RecordPayment(env.staffCtx, invoice.ID, &domain.RecordPaymentRequest{Amount: 1})
		var conflictErr *domain.ConflictError
		require.ErrorAs(t, err, &conflictErr)
	})

	t.Run("overdue invoices still accept payments", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))
		env.fixtures.forceDueDate(t, invoice.ID, time.Now().Add(-48*time.Hour))

		_, err := env.invoices.SweepOverdue(context.Background(), 100)
		require.NoError(t, err)

		result, err := env.invoices.RecordPayment(env.staffCtx, invoice.ID, &domain.RecordPaymentRequest{Amount: 81})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPaid, result.PaymentStatus)
	})
}

func TestInvoiceService_UpdateInvoice(t *testing.T) {
	env := setupInvoiceEnv(t)

	t.Run("the total cannot undercut what has been paid", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))
		_, err := env.invoices.RecordPayment(env.staffCtx, invoice.ID, &domain.RecordPaymentRequest{Amount: 50})
		require.NoError(t, err)

		cheap := []domain.LineItemInput{{Description: "Quick fix", Quantity: 1, UnitPrice: 10}}
		_, err = env.invoices.UpdateInvoice(env.staffCtx, invoice.ID, &domain.UpdateInvoiceRequest{
			LineItems: &cheap,
		})
		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("paid invoices are frozen", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))
		_, err := env.invoices.RecordPayment(env.staffCtx, invoice.ID, &domain.RecordPaymentRequest{Amount: 81})
		require.NoError(t, err)

		notes := "late edit"
		_, err = env.invoices.UpdateInvoice(env.staffCtx, invoice.ID, &domain.UpdateInvoiceRequest{Notes: &notes})
		var conflictErr *domain.ConflictError
		require.ErrorAs(t, err, &conflictErr)
	})

	t.Run("a notes-only edit keeps the first payment date", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))
		paid := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
		_, err := env.invoices.RecordPayment(env.staffCtx, invoice.ID, &domain.RecordPaymentRequest{
			Amount:      50,
			PaymentDate: &paid,
		})
		require.NoError(t, err)

		notes := "customer will settle the rest next visit"
		result, err := env.invoices.UpdateInvoice(env.staffCtx, invoice.ID, &domain.UpdateInvoiceRequest{Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPartial, result.PaymentStatus)
		require.NotNil(t, result.PaidDate)
		assert.True(t, result.PaidDate.Equal(paid))
	})

	t.Run("an edit does not flag a past-due invoice overdue", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))
		env.fixtures.forceDueDate(t, invoice.ID, time.Now().Add(-48*time.Hour))

		notes := "chasing payment"
		result, err := env.invoices.UpdateInvoice(env.staffCtx, invoice.ID, &domain.UpdateInvoiceRequest{Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPending, result.PaymentStatus)
	})

	t.Run("raising the total can reopen a settled balance", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))
		_, err := env.invoices.RecordPayment(env.staffCtx, invoice.ID, &domain.RecordPaymentRequest{Amount: 50})
		require.NoError(t, err)

		bigger := []domain.LineItemInput{
			{Description: "Tune-up", Quantity: 1, UnitPrice: 75},
			{Description: "Wheel truing", Quantity: 1, UnitPrice: 40},
		}
		result, err := env.invoices.UpdateInvoice(env.staffCtx, invoice.ID, &domain.UpdateInvoiceRequest{
			LineItems: &bigger,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPartial, result.PaymentStatus)
		assert.Equal(t, 50.0, result.PaidAmount)
	})
}

func TestInvoiceService_CancelInvoice(t *testing.T) {
	env := setupInvoiceEnv(t)

	t.Run("pending invoices can be cancelled", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))

		result, err := env.invoices.CancelInvoice(env.staffCtx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusCancelled, result.PaymentStatus)
	})

	t.Run("paid invoices cannot be cancelled", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))
		_, err := env.invoices.RecordPayment(env.staffCtx, invoice.ID, &domain.RecordPaymentRequest{Amount: 81})
		require.NoError(t, err)

		_, err = env.invoices.CancelInvoice(env.staffCtx, invoice.ID)
		var conflictErr *domain.ConflictError
		require.ErrorAs(t, err, &conflictErr)
	})

	t.Run("cancel is terminal", func(t *testing.T) {
		invoice := env.createInvoice(t, env.completedRecord(t))
		_, err := env.invoices.CancelInvoice(env.staffCtx, invoice.ID)
		require.NoError(t, err)

		_, err = env.invoices.CancelInvoice(env.staffCtx, invoice.ID)
		var conflictErr *domain.ConflictError
		require.ErrorAs(t, err, &conflictErr)
	})
}

func TestInvoiceService_SweepOverdue(t *testing.T) {
	env := setupInvoiceEnv(t)

	invoice := env.createInvoice(t, env.completedRecord(t))
	env.fixtures.forceDueDate(t, invoice.ID, time.Now().Add(-48*time.Hour))

	result, err := env.invoices.SweepOverdue(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Empty(t, result.Errors)

	swept, err := env.invoices.GetInvoice(adminContext(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusOverdue, swept.PaymentStatus)
	assert.True(t, swept.IsOverdue)

	// A second run finds nothing left to flag
	again, err := env.invoices.SweepOverdue(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Processed)
}

func TestInvoiceService_CustomerScoping(t *testing.T) {
	env := setupInvoiceEnv(t)

	invoice := env.createInvoice(t, env.completedRecord(t))
	other := env.fixtures.createUser(t, domain.RoleCustomer)

	t.Run("owning customer can read", func(t *testing.T) {
		result, err := env.invoices.GetInvoice(customerContext(env.customer.ID), invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, invoice.ID, result.ID)
	})

	t.Run("other customer is forbidden", func(t *testing.T) {
		_, err := env.invoices.GetInvoice(customerContext(other.ID), invoice.ID)
		var forbiddenErr *domain.ForbiddenError
		require.ErrorAs(t, err, &forbiddenErr)
	})

	t.Run("customers cannot record payments", func(t *testing.T) {
		_, err := env.invoices.RecordPayment(customerContext(env.customer.ID), invoice.ID, &domain.RecordPaymentRequest{Amount: 10})
		var forbiddenErr *domain.ForbiddenError
		require.ErrorAs(t, err, &forbiddenErr)
	})
}

func TestInvoiceService_NotFound(t *testing.T) {
	env := setupInvoiceEnv(t)

	_, err := env.invoices.GetInvoice(env.staffCtx, uuid.New())
	var notFoundErr *domain.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}
