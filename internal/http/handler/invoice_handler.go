package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/velotrack/workshop-api/internal/domain"
	"github.com/velotrack/workshop-api/internal/repository"
	"github.com/velotrack/workshop-api/internal/service"
	"go.uber.org/zap"
)

// InvoiceHandler exposes invoicing and the payment ledger over HTTP
type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	logger         *zap.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *service.InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// @Summary Create invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param storeId path string true "Store ID"
// @Param request body domain.CreateInvoiceRequest true "Invoice data"
// @Success 201 {object} domain.InvoiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stores/{storeId}/invoices [post]
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "storeId"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid store ID: must be a valid UUID", nil)
		return
	}

	var req domain.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid request body: malformed JSON", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, r, err)
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(r.Context(), storeID, &req)
	if err != nil {
		h.logger.Error("failed to create invoice", zap.Error(err), zap.String("store_id", storeID.String()))
		respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/invoices/"+invoice.ID.String())
	respondData(w, http.StatusCreated, invoice)
}

// @Summary Get invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} domain.InvoiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid invoice ID: must be a valid UUID", nil)
		return
	}

	invoice, err := h.invoiceService.GetInvoice(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, invoice)
}

// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param storeId query string false "Filter by store"
// @Param paymentStatus query string false "Filter by payment status"
// @Param overdue query bool false "Only overdue invoices"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [get]
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	var filter repository.InvoiceFilter
	if v := r.URL.Query().Get("storeId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid storeId filter", nil)
			return
		}
		filter.StoreID = &id
	}
	if v := r.URL.Query().Get("paymentStatus"); v != "" {
		status := domain.PaymentStatus(v)
		if !status.IsValid() {
			respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid paymentStatus filter", nil)
			return
		}
		filter.PaymentStatus = &status
	}
	filter.OverdueOnly = r.URL.Query().Get("overdue") == "true"

	result, err := h.invoiceService.ListInvoices(r.Context(), page, pageSize, filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, result)
}

// @Summary Update invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body domain.UpdateInvoiceRequest true "Invoice data"
// @Success 200 {object} domain.InvoiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id} [patch]
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid invoice ID: must be a valid UUID", nil)
		return
	}

	var req domain.UpdateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid request body: malformed JSON", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, r, err)
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update invoice", zap.Error(err), zap.String("invoice_id", id.String()))
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, invoice)
}

// @Summary Record payment
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body domain.RecordPaymentRequest true "Payment data"
// @Success 200 {object} domain.InvoiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/payments [post]
func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid invoice ID: must be a valid UUID", nil)
		return
	}

	var req domain.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid request body: malformed JSON", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, r, err)
		return
	}

	invoice, err := h.invoiceService.RecordPayment(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to record payment", zap.Error(err), zap.String("invoice_id", id.String()))
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, invoice)
}

// @Summary Cancel invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} domain.InvoiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid invoice ID: must be a valid UUID", nil)
		return
	}

	invoice, err := h.invoiceService.CancelInvoice(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to cancel invoice", zap.Error(err), zap.String("invoice_id", id.String()))
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, invoice)
}
