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

// QuotationService owns the quotation lifecycle: creation against a service
// request, the draft/sent/approved/rejected/expired state machine, and the
// status side effects on the parent service request. Transitions that touch
// both entities commit in a single transaction.
type QuotationService struct {
	db            *gorm.DB
	quotationRepo *repository.QuotationRepository
	requestRepo   *repository.ServiceRequestRepository
	numberSvc     *NumberSequenceService
	gate          authz.Gate
	validityDays  int
	logger        *zap.Logger
}

// NewQuotationService creates a new QuotationService. validityDays is the
// default validity window applied when a create request does not set one.
func NewQuotationService(
	db *gorm.DB,
	quotationRepo *repository.QuotationRepository,
	requestRepo *repository.ServiceRequestRepository,
	numberSvc *NumberSequenceService,
	gate authz.Gate,
	validityDays int,
	logger *zap.Logger,
) *QuotationService {
	return &QuotationService{
		db:            db,
		quotationRepo: quotationRepo,
		requestRepo:   requestRepo,
		numberSvc:     numberSvc,
		gate:          gate,
		validityDays:  validityDays,
		logger:        logger,
	}
}

// CreateQuotation creates a draft quotation for a service request. At most
// one active (draft or sent) quotation may exist per request.
func (s *QuotationService) CreateQuotation(ctx context.Context, storeID uuid.UUID, req *domain.CreateQuotationRequest) (*domain.QuotationDTO, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if err := s.gate.CanAct(actor, storeID, authz.PermQuotationsCreate); err != nil {
		return nil, err
	}

	request, err := s.requestRepo.GetByID(ctx, req.ServiceRequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("service request", req.ServiceRequestID.String())
		}
		return nil, fmt.Errorf("failed to get service request: %w", err)
	}
	if request.StoreID != storeID {
		return nil, domain.NewNotFoundError("service request", req.ServiceRequestID.String())
	}
	if request.Status == domain.ServiceRequestStatusCancelled || request.Status == domain.ServiceRequestStatusCompleted {
		return nil, domain.NewConflictError(fmt.Sprintf("service request is %s and cannot be quoted", request.Status))
	}

	exists, err := s.quotationRepo.ExistsActiveForRequest(ctx, req.ServiceRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active quotations: %w", err)
	}
	if exists {
		return nil, domain.NewConflictError("an active quotation already exists for this service request")
	}

	items := ledger.BuildItems(req.LineItems)
	taxRate := decimal.NewFromFloat(req.TaxRate)
	totals, err := ledger.ComputeTotals(items, taxRate)
	if err != nil {
		return nil, err
	}

	validityDays := s.validityDays
	if req.ValidityDays != nil {
		validityDays = *req.ValidityDays
	}

	number, err := s.numberSvc.GenerateQuotationNumber(ctx)
	if err != nil {
		return nil, err
	}

	quotation := &domain.Quotation{
		QuotationNumber:  number,
		StoreID:          storeID,
		ServiceRequestID: req.ServiceRequestID,
		LineItems:        items,
		Subtotal:         totals.Subtotal,
		TaxRate:          taxRate,
		TaxAmount:        totals.TaxAmount,
		Total:            totals.Total,
		ValidUntil:       time.Now().AddDate(0, 0, validityDays),
		Status:           domain.QuotationStatusDraft,
		Notes:            req.Notes,
		CreatedByID:      actor.UserID,
	}

	if err := s.quotationRepo.Create(ctx, quotation); err != nil {
		return nil, fmt.Errorf("failed to create quotation: %w", err)
	}

	s.logger.Info("quotation created",
		zap.String("quotationID", quotation.ID.String()),
		zap.String("quotationNumber", quotation.QuotationNumber),
		zap.String("serviceRequestID", req.ServiceRequestID.String()),
		zap.String("storeID", storeID.String()))

	dto := mapper.ToQuotationDTO(quotation)
	return &dto, nil
}

// GetQuotation returns a quotation. Customers only see quotations belonging
// to their own service requests.
func (s *QuotationService) GetQuotation(ctx context.Context, id uuid.UUID) (*domain.QuotationDTO, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	quotation, err := s.getQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CanAct(actor, quotation.StoreID, authz.PermQuotationsRead); err != nil {
		return nil, err
	}
	if err := s.checkDocumentAccess(actor, quotation.StoreID, quotation.ServiceRequest); err != nil {
		return nil, err
	}

	dto := mapper.ToQuotationDTO(quotation)
	return &dto, nil
}

// ListQuotations returns a page of quotations. Customers are implicitly
// scoped to their own documents.
func (s *QuotationService) ListQuotations(ctx context.Context, page, pageSize int, filter repository.QuotationFilter) (*domain.PaginatedResponse, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !actor.IsAdmin() && actor.HasRole(domain.RoleCustomer) && len(actor.StoreIDs) == 0 {
		filter.CustomerID = &actor.UserID
	}
	if filter.StoreID != nil {
		if err := s.gate.CanAct(actor, *filter.StoreID, authz.PermQuotationsRead); err != nil {
			return nil, err
		}
	}

	quotations, total, err := s.quotationRepo.List(ctx, page, pageSize, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}

	dtos := make([]domain.QuotationDTO, len(quotations))
	for i := range quotations {
		dtos[i] = mapper.ToQuotationDTO(&quotations[i])
	}
	return domain.NewPaginatedResponse(dtos, page, pageSize, total), nil
}

// UpdateQuotation edits line items, tax rate, validity or notes. Only draft
// and sent quotations are editable; any pricing change recomputes totals.
func (s *QuotationService) UpdateQuotation(ctx context.Context, id uuid.UUID, req *domain.UpdateQuotationRequest) (*domain.QuotationDTO, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	var quotation *domain.Quotation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.quotationRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("quotation", id.String())
			}
			return fmt.Errorf("failed to lock quotation: %w", err)
		}
		if err := s.gate.CanAct(actor, locked.StoreID, authz.PermQuotationsUpdate); err != nil {
			return err
		}
		if !locked.Status.IsEditable() {
			return domain.NewTransitionError("quotation can no longer be edited", string(locked.Status), "updated")
		}
		if locked.IsExpiredAt(time.Now()) {
			return domain.NewExpiredError("quotation validity window has passed")
		}

		if req.LineItems != nil {
			locked.LineItems = ledger.BuildItems(*req.LineItems)
		}
		if req.TaxRate != nil {
			locked.TaxRate = decimal.NewFromFloat(*req.TaxRate)
		}
		if req.ValidUntil != nil {
			if req.ValidUntil.Before(time.Now()) {
				return domain.NewValidationError("validUntil must be in the future", map[string]string{
					"validUntil": "must be in the future",
				})
			}
			locked.ValidUntil = *req.ValidUntil
		}
		if req.Notes != nil {
			locked.Notes = *req.Notes
		}

		totals, err := ledger.ComputeTotals(locked.LineItems, locked.TaxRate)
		if err != nil {
			return err
		}
		locked.Subtotal = totals.Subtotal
		locked.TaxAmount = totals.TaxAmount
		locked.Total = totals.Total

		if err := tx.Save(locked).Error; err != nil {
			return fmt.Errorf("failed to update quotation: %w", err)
		}
		quotation = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToQuotationDTO(quotation)
	return &dto, nil
}

// SendQuotation transitions a draft quotation to sent and marks the parent
// service request as quoted. Both writes commit together.
func (s *QuotationService) SendQuotation(ctx context.Context, id uuid.UUID) (*domain.QuotationDTO, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	quotation, err := s.getQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CanAct(actor, quotation.StoreID, authz.PermQuotationsSend); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.quotationRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to lock quotation: %w", err)
		}
		if locked.Status != domain.QuotationStatusDraft {
			return domain.NewTransitionError("only draft quotations can be sent", string(locked.Status), string(domain.QuotationStatusSent))
		}
		if locked.IsExpiredAt(time.Now()) {
			return domain.NewExpiredError("quotation validity window has passed")
		}

		now := time.Now()
		locked.Status = domain.QuotationStatusSent
		locked.SentAt = &now

		if err := tx.Save(locked).Error; err != nil {
			return fmt.Errorf("failed to update quotation: %w", err)
		}
		if err := s.requestRepo.UpdateStatusTx(ctx, tx, locked.ServiceRequestID, domain.ServiceRequestStatusQuoted); err != nil {
			return fmt.Errorf("failed to update service request status: %w", err)
		}
		quotation = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quotation sent",
		zap.String("quotationID", quotation.ID.String()),
		zap.String("quotationNumber", quotation.QuotationNumber))

	dto := mapper.ToQuotationDTO(quotation)
	return &dto, nil
}

// ApproveQuotation records the customer's approval of a sent quotation and
// moves the parent service request to approved. A quotation whose validity
// window has passed cannot be approved even if the sweep has not yet run.
func (s *QuotationService) ApproveQuotation(ctx context.Context, id uuid.UUID) (*domain.QuotationDTO, error) {
	return s.decide(ctx, id, domain.QuotationStatusApproved, "")
}

// RejectQuotation records the customer's rejection of a sent quotation and
// returns the parent service request to pending so the store can re-quote.
func (s *QuotationService) RejectQuotation(ctx context.Context, id uuid.UUID, req *domain.RejectQuotationRequest) (*domain.QuotationDTO, error) {
	return s.decide(ctx, id, domain.QuotationStatusRejected, req.Reason)
}

func (s *QuotationService) decide(ctx context.Context, id uuid.UUID, decision domain.QuotationStatus, reason string) (*domain.QuotationDTO, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	quotation, err := s.getQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	// The decision belongs to the requesting customer; store members
	// cannot accept or decline the quotation they sent
	if !actor.IsAdmin() {
		request := quotation.ServiceRequest
		if request == nil || request.CustomerID != actor.UserID {
			return nil, domain.NewForbiddenError("only the requesting customer can decide a quotation")
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.quotationRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to lock quotation: %w", err)
		}
		if locked.Status != domain.QuotationStatusSent {
			return domain.NewTransitionError("only sent quotations can be decided", string(locked.Status), string(decision))
		}
		if locked.IsExpiredAt(time.Now()) {
			return domain.NewExpiredError("quotation validity window has passed")
		}

		now := time.Now()
		locked.Status = decision
		locked.DecidedAt = &now
		if reason != "" {
			if locked.Notes != "" {
				locked.Notes = fmt.Sprintf("%s\n\nRejection reason: %s", locked.Notes, reason)
			} else {
				locked.Notes = fmt.Sprintf("Rejection reason: %s", reason)
			}
		}

		if err := tx.Save(locked).Error; err != nil {
			return fmt.Errorf("failed to update quotation: %w", err)
		}

		requestStatus := domain.ServiceRequestStatusApproved
		if decision == domain.QuotationStatusRejected {
			requestStatus = domain.ServiceRequestStatusPending
		}
		if err := s.requestRepo.UpdateStatusTx(ctx, tx, locked.ServiceRequestID, requestStatus); err != nil {
			return fmt.Errorf("failed to update service request status: %w", err)
		}
		quotation = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quotation decided",
		zap.String("quotationID", quotation.ID.String()),
		zap.String("quotationNumber", quotation.QuotationNumber),
		zap.String("decision", string(decision)))

	dto := mapper.ToQuotationDTO(quotation)
	return &dto, nil
}

// SweepExpired marks lapsed draft and sent quotations as expired. Each row
// is processed in its own transaction: a failure on one quotation is
// recorded and the sweep moves on. Running the sweep twice is harmless
// because expired is terminal.
func (s *QuotationService) SweepExpired(ctx context.Context, batchSize int) (*domain.SweepResultDTO, error) {
	now := time.Now()
	expired, err := s.quotationRepo.ListExpired(ctx, now, batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired quotations: %w", err)
	}

	result := &domain.SweepResultDTO{}
	for i := range expired {
		id := expired[i].ID
		err := s.db.Transaction(func(tx *gorm.DB) error {
			locked, err := s.quotationRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			// A concurrent decision may have landed since the list query
			if !locked.Status.IsActive() || !locked.IsExpiredAt(now) {
				return nil
			}

			locked.Status = domain.QuotationStatusExpired
			if err := tx.Save(locked).Error; err != nil {
				return err
			}

			// A quoted request goes back to expired; requests the customer
			// already decided keep their status
			var request domain.ServiceRequest
			if err := tx.Where("id = ?", locked.ServiceRequestID).First(&request).Error; err != nil {
				return err
			}
			if request.Status == domain.ServiceRequestStatusQuoted {
				if err := s.requestRepo.UpdateStatusTx(ctx, tx, request.ID, domain.ServiceRequestStatusExpired); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Error("failed to expire quotation",
				zap.String("quotationID", id.String()),
				zap.Error(err))
			result.Errors = append(result.Errors, domain.SweepErrorDTO{ID: id, Error: err.Error()})
			continue
		}
		result.Processed++
	}

	s.logger.Info("quotation expiry sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (s *QuotationService) getQuotation(ctx context.Context, id uuid.UUID) (*domain.Quotation, error) {
	quotation, err := s.quotationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("quotation", id.String())
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	return quotation, nil
}

// checkDocumentAccess enforces ownership for actors outside the store:
// admins and store members pass, customers must own the service request
func (s *QuotationService) checkDocumentAccess(actor *auth.ActorContext, storeID uuid.UUID, request *domain.ServiceRequest) error {
	if actor.IsAdmin() || actor.IsMemberOf(storeID) {
		return nil
	}
	if request != nil && request.CustomerID == actor.UserID {
		return nil
	}
	return domain.NewForbiddenError("quotation does not belong to this actor")
}
