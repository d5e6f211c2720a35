package jobs

import (
	"context"
	"time"

	"github.com/velotrack/workshop-api/internal/domain"
	"go.uber.org/zap"
)

// Job names for the lifecycle sweeps
const (
	QuotationSweepJobName = "quotation_expiry_sweep"
	InvoiceSweepJobName   = "invoice_overdue_sweep"
)

// DefaultSweepBatchSize bounds how many rows a single sweep run touches
const DefaultSweepBatchSize = 500

// QuotationSweeper marks lapsed quotations as expired. The interface keeps
// the job from importing the service package directly.
type QuotationSweeper interface {
	SweepExpired(ctx context.Context, batchSize int) (*domain.SweepResultDTO, error)
}

// InvoiceSweeper marks past-due invoices as overdue.
type InvoiceSweeper interface {
	SweepOverdue(ctx context.Context, batchSize int) (*domain.SweepResultDTO, error)
}

// SweepJob runs both lifecycle sweeps on a schedule. Each run is bounded by
// a timeout and logs per-sweep counts; the scheduler's SkipIfStillRunning
// chain prevents overlapping runs.
type SweepJob struct {
	quotations QuotationSweeper
	invoices   InvoiceSweeper
	logger     *zap.Logger
	timeout    time.Duration
	batchSize  int
}

// NewSweepJob creates a new sweep job. The timeout controls how long a
// single run is allowed to take.
func NewSweepJob(quotations QuotationSweeper, invoices InvoiceSweeper, logger *zap.Logger, timeout time.Duration) *SweepJob {
	return &SweepJob{
		quotations: quotations,
		invoices:   invoices,
		logger:     logger,
		timeout:    timeout,
		batchSize:  DefaultSweepBatchSize,
	}
}

// RunQuotationSweep executes the quotation expiry sweep.
// This is called by the scheduler according to the cron expression.
func (j *SweepJob) RunQuotationSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	result, err := j.quotations.SweepExpired(ctx, j.batchSize)
	if err != nil {
		j.logger.Error("quotation expiry sweep failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("quotation expiry sweep completed",
		zap.Int("processed", result.Processed),
		zap.Int("failed", len(result.Errors)),
		zap.Duration("duration", time.Since(start)))
}

// RunInvoiceSweep executes the invoice overdue sweep.
func (j *SweepJob) RunInvoiceSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	result, err := j.invoices.SweepOverdue(ctx, j.batchSize)
	if err != nil {
		j.logger.Error("invoice overdue sweep failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("invoice overdue sweep completed",
		zap.Int("processed", result.Processed),
		zap.Int("failed", len(result.Errors)),
		zap.Duration("duration", time.Since(start)))
}

// Register adds both sweeps to the scheduler with the given cron expressions
func (j *SweepJob) Register(scheduler *Scheduler, quotationCron, invoiceCron string) error {
	if err := scheduler.AddJob(QuotationSweepJobName, quotationCron, j.RunQuotationSweep); err != nil {
		return err
	}
	return scheduler.AddJob(InvoiceSweepJobName, invoiceCron, j.RunInvoiceSweep)
}
