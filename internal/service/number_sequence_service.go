package service

import (
	"context"
	"fmt"
	"time"

	"github.com/velotrack/workshop-api/internal/domain"
	"github.com/velotrack/workshop-api/internal/repository"
	"go.uber.org/zap"
)

// NumberSequenceService generates unique, formatted document numbers.
// Quotations and invoices keep separate sequences that restart at 1 each
// calendar year.
//
// Format: {PREFIX}-{YEAR}-{SEQUENCE}
// Example: Q-2026-0001, INV-2026-0042
type NumberSequenceService struct {
	repo   *repository.NumberSequenceRepository
	logger *zap.Logger
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(
	repo *repository.NumberSequenceRepository,
	logger *zap.Logger,
) *NumberSequenceService {
	return &NumberSequenceService{
		repo:   repo,
		logger: logger,
	}
}

// GenerateQuotationNumber generates a unique quotation number, assigned once
// at creation and never reused
func (s *NumberSequenceService) GenerateQuotationNumber(ctx context.Context) (string, error) {
	return s.generateNumber(ctx, domain.DocumentTypeQuotation, "Q")
}

// GenerateInvoiceNumber generates a unique invoice number
func (s *NumberSequenceService) GenerateInvoiceNumber(ctx context.Context) (string, error) {
	return s.generateNumber(ctx, domain.DocumentTypeInvoice, "INV")
}

func (s *NumberSequenceService) generateNumber(ctx context.Context, docType domain.DocumentType, prefix string) (string, error) {
	year := time.Now().Year()

	nextSeq, err := s.repo.GetNextNumber(ctx, docType, year)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("documentType", string(docType)),
			zap.Int("year", year),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate %s number: %w", docType, err)
	}

	// Format: PREFIX-YYYY-NNNN (zero-padded to 4 digits)
	number := fmt.Sprintf("%s-%d-%04d", prefix, year, nextSeq)

	s.logger.Info("generated document number",
		zap.String("number", number),
		zap.String("documentType", string(docType)),
		zap.Int("year", year),
		zap.Int("sequence", nextSeq))

	return number, nil
}

// GetCurrentSequence returns the current sequence value for a document type
// and year without incrementing it. Returns 0 if no sequence exists.
func (s *NumberSequenceService) GetCurrentSequence(ctx context.Context, docType domain.DocumentType, year int) (int, error) {
	return s.repo.GetCurrentSequence(ctx, docType, year)
}
