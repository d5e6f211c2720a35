package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/velotrack/workshop-api/internal/auth"
	"github.com/velotrack/workshop-api/internal/authz"
	"github.com/velotrack/workshop-api/internal/domain"
	"github.com/velotrack/workshop-api/internal/ledger"
	"github.com/velotrack/workshop-api/internal/mapper"
	"github.com/velotrack/workshop-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InvoiceService owns invoicing of completed service records and the payment
// ledger on each invoice. Payments are serialized with row locks so the paid
// amount can never overshoot the total.
type InvoiceService struct {
	db            *gorm.DB
	invoiceRepo   *repository.InvoiceRepository
	recordRepo    *repository.ServiceRecordRepository
	quotationRepo *repository.QuotationRepository
	numberSvc     *NumberSequenceService
	gate          authz.Gate
	dueDays       int
	logger        *zap.Logger
}

// NewInvoiceService creates a new InvoiceService. dueDays is the default
// payment term applied when a create request does not set one.
func NewInvoiceService(
	db *gorm.DB,
	invoiceRepo *repository.InvoiceRepository,
	recordRepo *repository.ServiceRecordRepository,
	quotationRepo *repository.QuotationRepository,
	numberSvc *NumberSequenceService,
	gate authz.Gate,
	dueDays int,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		db:            db,
		invoiceRepo:   invoiceRepo,
		recordRepo:    recordRepo,
		quotationRepo: quotationRepo,
		numberSvc:     numberSvc,
		gate:          gate,
		dueDays:       dueDays,
		logger:        logger,
	}
}

// CreateInvoice bills a completed service record. A record can only carry
// one non-cancelled invoice. When the request has no line items they are
// seeded from the linked quotation.
func (s *InvoiceService) CreateInvoice(ctx context.Context, storeID uuid.UUID, req *domain.CreateInvoiceRequest) (*domain.InvoiceDTO, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if err := s.gate.CanAct(actor, storeID, authz.PermInvoicesCreate); err != nil {
		return nil, err
	}

	record, err := s.recordRepo.GetByID(ctx, req.ServiceRecordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("service record", req.ServiceRecordID.String())
		}
		return nil, fmt.Errorf("failed to get service record: %w", err)
	}
	if record.StoreID != storeID {
		return nil, domain.NewNotFoundError("service record", req.ServiceRecordID.String())
	}
	if record.Status != domain.ServiceRecordStatusCompleted {
		return nil, domain.NewConflictError("only completed service records can be invoiced")
	}

	exists, err := s.invoiceRepo.ExistsForServiceRecord(ctx, req.ServiceRecordID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing invoices: %w", err)
	}
	if exists {
		return nil, domain.NewConflictError("service record is already invoiced")
	}

	items, taxRate, err := s.resolveItems(ctx, req)
	if err != nil {
		return nil, err
	}

	totals, err := ledger.ComputeTotals(items, taxRate)
	if err != nil {
		return nil, err
	}

	dueDays := s.dueDays
	if req.DueDays != nil {
		dueDays = *req.DueDays
	}

	number, err := s.numberSvc.GenerateInvoiceNumber(ctx)
	if err != nil {
		return nil, err
	}

	invoice := &domain.Invoice{
		InvoiceNumber:   number,
		StoreID:         storeID,
		ServiceRecordID: req.ServiceRecordID,
		QuotationID:     req.QuotationID,
		LineItems:       items,
		Subtotal:        totals.Subtotal,
		TaxRate:         taxRate,
		TaxAmount:       totals.TaxAmount,
		Total:           totals.Total,
		PaidAmount:      decimal.Zero,
		PaymentStatus:   domain.PaymentStatusPending,
		DueDate:         time.Now().AddDate(0, 0, dueDays),
		Notes:           req.Notes,
		CreatedByID:     actor.UserID,
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.logger.Info("invoice created",
		zap.String("invoiceID", invoice.ID.String()),
		zap.String("invoiceNumber", invoice.InvoiceNumber),
		zap.String("serviceRecordID", req.ServiceRecordID.String()),
		zap.String("storeID", storeID.String()))

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// resolveItems decides where the invoice's line items come from: explicit
// items on the request win, otherwise the linked quotation seeds them with
// fresh ids, and without either a single placeholder item is used.
func (s *InvoiceService) resolveItems(ctx context.Context, req *domain.CreateInvoiceRequest) (domain.LineItems, decimal.Decimal, error) {
	if len(req.LineItems) > 0 {
		return ledger.BuildItems(req.LineItems), decimal.NewFromFloat(req.TaxRate), nil
	}

	if req.QuotationID == nil {
		// No explicit items and no quotation to seed from: a single
		// placeholder item the store fills in afterwards
		placeholder := domain.LineItems{{
			ID:          uuid.New().String(),
			Description: "Bicycle service",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.Zero,
			Total:       decimal.Zero,
		}}
		return placeholder, decimal.NewFromFloat(req.TaxRate), nil
	}

	quotation, err := s.quotationRepo.GetByID(ctx, *req.QuotationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, decimal.Zero, domain.NewNotFoundError("quotation", req.QuotationID.String())
		}
		return nil, decimal.Zero, fmt.Errorf("failed to get quotation: %w", err)
	}
	if quotation.Status != domain.QuotationStatusApproved {
		return nil, decimal.Zero, domain.NewConflictError("only approved quotations can seed an invoice")
	}

	return ledger.CloneItems(quotation.LineItems), quotation.TaxRate, nil
}

// GetInvoice returns an invoice. Customers only see invoices for their own
// service requests.
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	invoice, err := s.getInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CanAct(actor, invoice.StoreID, authz.PermInvoicesRead); err != nil {
		return nil, err
	}
	if err := s.checkDocumentAccess(ctx, actor, invoice); err != nil {
		return nil, err
	}

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// ListInvoices returns a page of invoices. Customers are implicitly scoped
// to their own documents.
func (s *InvoiceService) ListInvoices(ctx context.Context, page, pageSize int, filter repository.InvoiceFilter) (*domain.PaginatedResponse, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !actor.IsAdmin() && actor.HasRole(domain.RoleCustomer) && len(actor.StoreIDs) == 0 {
		filter.CustomerID = &actor.UserID
	}
	if filter.StoreID != nil {
		if err := s.gate.CanAct(actor, *filter.StoreID, authz.PermInvoicesRead); err != nil {
			return nil, err
		}
	}

	invoices, total, err := s.invoiceRepo.List(ctx, page, pageSize, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	dtos := make([]domain.InvoiceDTO, len(invoices))
	for i := range invoices {
		dtos[i] = mapper.ToInvoiceDTO(&invoices[i])
	}
	return domain.NewPaginatedResponse(dtos, page, pageSize, total), nil
}

// UpdateInvoice edits line items, tax rate, due date or notes. Paid and
// cancelled invoices are frozen. The new total may not undercut what has
// already been paid.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id uuid.UUID, req *domain.UpdateInvoiceRequest) (*domain.InvoiceDTO, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	var invoice *domain.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.invoiceRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("invoice", id.String())
			}
			return fmt.Errorf("failed to lock invoice: %w", err)
		}
		if err := s.gate.CanAct(actor, locked.StoreID, authz.PermInvoicesUpdate); err != nil {
			return err
		}
		if locked.PaymentStatus.IsTerminal() {
			return domain.NewTransitionError("invoice can no longer be edited", string(locked.PaymentStatus), "updated")
		}

		if req.LineItems != nil {
			locked.LineItems = ledger.BuildItems(*req.LineItems)
		}
		if req.TaxRate != nil {
			locked.TaxRate = decimal.NewFromFloat(*req.TaxRate)
		}
		if req.DueDate != nil {
			locked.DueDate = *req.DueDate
		}
		if req.Notes != nil {
			locked.Notes = *req.Notes
		}

		totals, err := ledger.ComputeTotals(locked.LineItems, locked.TaxRate)
		if err != nil {
			return err
		}
		if totals.Total.LessThan(locked.PaidAmount) {
			return domain.NewValidationError("total cannot be less than the amount already paid", map[string]string{
				"lineItems": fmt.Sprintf("new total %s is below paid amount %s", totals.Total, locked.PaidAmount),
			})
		}
		locked.Subtotal = totals.Subtotal
		locked.TaxAmount = totals.TaxAmount
		locked.Total = totals.Total

		// The total moved, so the derived status may change too. PaidDate
		// stays as set by the payments themselves.
		locked.PaymentStatus = derivePaymentStatus(locked)

		if err := tx.Save(locked).Error; err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		invoice = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// RecordPayment applies a payment to an invoice. The invoice row is locked
// for the duration so concurrent payments serialize and the paid amount can
// never exceed the total.
func (s *InvoiceService) RecordPayment(ctx context.Context, id uuid.UUID, req *domain.RecordPaymentRequest) (*domain.InvoiceDTO, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	amount := decimal.NewFromFloat(req.Amount)
	if !amount.IsPositive() {
		return nil, domain.NewValidationError("payment amount must be positive", map[string]string{
			"amount": "must be greater than zero",
		})
	}

	paymentDate := time.Now()
	if req.PaymentDate != nil {
		if req.PaymentDate.After(time.Now()) {
			return nil, domain.NewValidationError("payment date cannot be in the future", map[string]string{
				"paymentDate": "must not be in the future",
			})
		}
		paymentDate = *req.PaymentDate
	}

	var invoice *domain.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.invoiceRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("invoice", id.String())
			}
			return fmt.Errorf("failed to lock invoice: %w", err)
		}
		if err := s.gate.CanAct(actor, locked.StoreID, authz.PermPaymentsRecord); err != nil {
			return err
		}
		if !locked.PaymentStatus.AcceptsPayments() {
			return domain.NewTransitionError("invoice does not accept payments", string(locked.PaymentStatus), "payment")
		}

		remaining := locked.RemainingAmount()
		if amount.GreaterThan(remaining) {
			return domain.NewValidationError("payment exceeds the remaining balance", map[string]string{
				"amount": fmt.Sprintf("at most %s may be paid", remaining),
			})
		}

		locked.PaidAmount = locked.PaidAmount.Add(amount)
		if locked.PaidDate == nil {
			locked.PaidDate = &paymentDate
		}

		if locked.PaidAmount.GreaterThanOrEqual(locked.Total) {
			locked.PaymentStatus = domain.PaymentStatusPaid
			// The settled date is the date of the payment that closed the
			// invoice, not the first partial payment
			locked.PaidDate = &paymentDate
		} else {
			locked.PaymentStatus = derivePaymentStatus(locked)
		}

		if err := tx.Save(locked).Error; err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		invoice = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("invoiceID", invoice.ID.String()),
		zap.String("invoiceNumber", invoice.InvoiceNumber),
		zap.String("amount", amount.String()),
		zap.String("paymentStatus", string(invoice.PaymentStatus)))

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// CancelInvoice voids an invoice. Paid invoices cannot be cancelled and
// cancelled is terminal.
func (s *InvoiceService) CancelInvoice(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	var invoice *domain.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.invoiceRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("invoice", id.String())
			}
			return fmt.Errorf("failed to lock invoice: %w", err)
		}
		if err := s.gate.CanAct(actor, locked.StoreID, authz.PermInvoicesCancel); err != nil {
			return err
		}
		if locked.PaymentStatus == domain.PaymentStatusPaid {
			return domain.NewTransitionError("paid invoices cannot be cancelled", string(locked.PaymentStatus), string(domain.PaymentStatusCancelled))
		}
		if locked.PaymentStatus == domain.PaymentStatusCancelled {
			return domain.NewTransitionError("invoice is already cancelled", string(locked.PaymentStatus), string(domain.PaymentStatusCancelled))
		}

		locked.PaymentStatus = domain.PaymentStatusCancelled
		if err := tx.Save(locked).Error; err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		invoice = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice cancelled",
		zap.String("invoiceID", invoice.ID.String()),
		zap.String("invoiceNumber", invoice.InvoiceNumber))

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// SweepOverdue marks pending and partial invoices past their due date as
// overdue. Each row is processed in its own transaction and failures are
// captured per invoice. Idempotent: already overdue invoices are not listed.
func (s *InvoiceService) SweepOverdue(ctx context.Context, batchSize int) (*domain.SweepResultDTO, error) {
	now := time.Now()
	overdue, err := s.invoiceRepo.ListOverdue(ctx, now, batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue invoices: %w", err)
	}

	result := &domain.SweepResultDTO{}
	for i := range overdue {
		id := overdue[i].ID
		err := s.db.Transaction(func(tx *gorm.DB) error {
			locked, err := s.invoiceRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			// A concurrent payment or cancellation may have landed since
			// the list query
			if !locked.PaymentStatus.AcceptsPayments() || !locked.DueDate.Before(now) {
				return nil
			}

			locked.PaymentStatus = domain.PaymentStatusOverdue
			return tx.Save(locked).Error
		})
		if err != nil {
			s.logger.Error("failed to mark invoice overdue",
				zap.String("invoiceID", id.String()),
				zap.Error(err))
			result.Errors = append(result.Errors, domain.SweepErrorDTO{ID: id, Error: err.Error()})
			continue
		}
		result.Processed++
	}

	s.logger.Info("invoice overdue sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (s *InvoiceService) getInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("invoice", id.String())
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

// checkDocumentAccess enforces ownership for actors outside the store
func (s *InvoiceService) checkDocumentAccess(ctx context.Context, actor *auth.ActorContext, invoice *domain.Invoice) error {
	if actor.IsAdmin() || actor.IsMemberOf(invoice.StoreID) {
		return nil
	}
	record := invoice.ServiceRecord
	if record == nil {
		loaded, err := s.recordRepo.GetByID(ctx, invoice.ServiceRecordID)
		if err != nil {
			return domain.NewForbiddenError("invoice does not belong to this actor")
		}
		record = loaded
	}
	if record.ServiceRequest != nil && record.ServiceRequest.CustomerID == actor.UserID {
		return nil
	}
	return domain.NewForbiddenError("invoice does not belong to this actor")
}

// derivePaymentStatus recomputes a non-terminal status from the ledger.
// Overdue is set by the sweep only; with nothing paid the current status
// (pending or overdue) is kept.
func derivePaymentStatus(invoice *domain.Invoice) domain.PaymentStatus {
	if invoice.PaidAmount.GreaterThanOrEqual(invoice.Total) {
		return domain.PaymentStatusPaid
	}
	if invoice.PaidAmount.IsPositive() {
		return domain.PaymentStatusPartial
	}
	return invoice.PaymentStatus
}
