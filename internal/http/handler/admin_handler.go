package handler

import (
	"net/http"

	"github.com/velotrack/workshop-api/internal/jobs"
	"github.com/velotrack/workshop-api/internal/service"
	"go.uber.org/zap"
)

// AdminHandler exposes manual triggers for the lifecycle sweeps. The router
// mounts these behind the admin-only middleware; the cron scheduler runs the
// same sweeps unattended.
type AdminHandler struct {
	quotationService *service.QuotationService
	invoiceService   *service.InvoiceService
	logger           *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(quotationService *service.QuotationService, invoiceService *service.InvoiceService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		quotationService: quotationService,
		invoiceService:   invoiceService,
		logger:           logger,
	}
}

// @Summary Run quotation expiry sweep
// @Tags Admin
// @Produce json
// @Success 200 {object} domain.SweepResultDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/sweeps/quotations [post]
func (h *AdminHandler) SweepQuotations(w http.ResponseWriter, r *http.Request) {
	result, err := h.quotationService.SweepExpired(r.Context(), jobs.DefaultSweepBatchSize)
	if err != nil {
		h.logger.Error("manual quotation sweep failed", zap.Error(err))
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, result)
}

// @Summary Run invoice overdue sweep
// @Tags Admin
// @Produce json
// @Success 200 {object} domain.SweepResultDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/sweeps/invoices [post]
func (h *AdminHandler) SweepInvoices(w http.ResponseWriter, r *http.Request) {
	result, err := h.invoiceService.SweepOverdue(r.Context(), jobs.DefaultSweepBatchSize)
	if err != nil {
		h.logger.Error("manual invoice sweep failed", zap.Error(err))
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, result)
}
