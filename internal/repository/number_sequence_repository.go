package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/velotrack/workshop-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberSequenceRepository handles database operations for number sequences.
// Sequences are partitioned per document type and year so quotation and
// invoice numbers each restart at 1 every year.
type NumberSequenceRepository struct {
	db *gorm.DB
}

// NewNumberSequenceRepository creates a new NumberSequenceRepository
func NewNumberSequenceRepository(db *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: db}
}

// GetNextNumber atomically retrieves and increments the sequence for a
// document type and year. Uses SELECT FOR UPDATE so concurrent callers can
// never be handed the same number. Creates the sequence at 1 when none
// exists yet.
func (r *NumberSequenceRepository) GetNextNumber(ctx context.Context, docType domain.DocumentType, year int) (int, error) {
	var seq domain.NumberSequence
	var nextSeq int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("document_type = ? AND year = ?", docType, year).
			First(&seq)

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			seq = domain.NumberSequence{
				DocumentType: docType,
				Year:         year,
				LastSequence: 1,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}
			if err := tx.Create(&seq).Error; err != nil {
				return fmt.Errorf("failed to create number sequence: %w", err)
			}
			nextSeq = 1
		} else if result.Error != nil {
			return fmt.Errorf("failed to get number sequence: %w", result.Error)
		} else {
			nextSeq = seq.LastSequence + 1
			if err := tx.Model(&seq).
				Where("document_type = ? AND year = ?", docType, year).
				Updates(map[string]interface{}{
					"last_sequence": nextSeq,
					"updated_at":    time.Now(),
				}).Error; err != nil {
				return fmt.Errorf("failed to update number sequence: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		return 0, err
	}

	return nextSeq, nil
}

// GetCurrentSequence retrieves the current sequence value without
// incrementing. Returns 0 if no sequence exists yet.
func (r *NumberSequenceRepository) GetCurrentSequence(ctx context.Context, docType domain.DocumentType, year int) (int, error) {
	var seq domain.NumberSequence
	result := r.db.WithContext(ctx).
		Where("document_type = ? AND year = ?", docType, year).
		First(&seq)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if result.Error != nil {
		return 0, fmt.Errorf("failed to get number sequence: %w", result.Error)
	}

	return seq.LastSequence, nil
}

// ListSequences returns all sequences, useful for admin inspection
func (r *NumberSequenceRepository) ListSequences(ctx context.Context) ([]domain.NumberSequence, error) {
	var sequences []domain.NumberSequence
	err := r.db.WithContext(ctx).
		Order("document_type ASC, year DESC").
		Find(&sequences).Error
	return sequences, err
}
