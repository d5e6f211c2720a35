package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/velotrack/workshop-api/internal/domain"
	"github.com/velotrack/workshop-api/internal/repository"
	"github.com/velotrack/workshop-api/internal/service"
	"go.uber.org/zap"
)

// QuotationHandler exposes the quotation lifecycle over HTTP
type QuotationHandler struct {
	quotationService *service.QuotationService
	logger           *zap.Logger
}

// NewQuotationHandler creates a new QuotationHandler
func NewQuotationHandler(quotationService *service.QuotationService, logger *zap.Logger) *QuotationHandler {
	return &QuotationHandler{
		quotationService: quotationService,
		logger:           logger,
	}
}

// @Summary Create quotation
// @Tags Quotations
// @Accept json
// @Produce json
// @Param storeId path string true "Store ID"
// @Param request body domain.CreateQuotationRequest true "Quotation data"
// @Success 201 {object} domain.QuotationDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stores/{storeId}/quotations [post]
func (h *QuotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "storeId"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid store ID: must be a valid UUID", nil)
		return
	}

	var req domain.CreateQuotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid request body: malformed JSON", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, r, err)
		return
	}

	quotation, err := h.quotationService.CreateQuotation(r.Context(), storeID, &req)
	if err != nil {
		h.logger.Error("failed to create quotation", zap.Error(err), zap.String("store_id", storeID.String()))
		respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/quotations/"+quotation.ID.String())
	respondData(w, http.StatusCreated, quotation)
}

// @Summary Get quotation
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 200 {object} domain.QuotationDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id} [get]
func (h *QuotationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid quotation ID: must be a valid UUID", nil)
		return
	}

	quotation, err := h.quotationService.GetQuotation(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, quotation)
}

// @Summary List quotations
// @Tags Quotations
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param storeId query string false "Filter by store"
// @Param serviceRequestId query string false "Filter by service request"
// @Param status query string false "Filter by status"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations [get]
func (h *QuotationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	var filter repository.QuotationFilter
	if v := r.URL.Query().Get("storeId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid storeId filter", nil)
			return
		}
		filter.StoreID = &id
	}
	if v := r.URL.Query().Get("serviceRequestId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid serviceRequestId filter", nil)
			return
		}
		filter.ServiceRequestID = &id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.QuotationStatus(v)
		if !status.IsValid() {
			respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid status filter", nil)
			return
		}
		filter.Status = &status
	}

	result, err := h.quotationService.ListQuotations(r.Context(), page, pageSize, filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, result)
}

// @Summary Update quotation
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Quotation ID"
// @Param request body domain.UpdateQuotationRequest true "Quotation data"
// @Success 200 {object} domain.QuotationDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id} [patch]
func (h *QuotationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid quotation ID: must be a valid UUID", nil)
		return
	}

	var req domain.UpdateQuotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid request body: malformed JSON", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, r, err)
		return
	}

	quotation, err := h.quotationService.UpdateQuotation(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update quotation", zap.Error(err), zap.String("quotation_id", id.String()))
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, quotation)
}

// @Summary Send quotation to customer
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 200 {object} domain.QuotationDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id}/send [post]
func (h *QuotationHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid quotation ID: must be a valid UUID", nil)
		return
	}

	quotation, err := h.quotationService.SendQuotation(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to send quotation", zap.Error(err), zap.String("quotation_id", id.String()))
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, quotation)
}

// @Summary Approve quotation
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 200 {object} domain.QuotationDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id}/approve [post]
func (h *QuotationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid quotation ID: must be a valid UUID", nil)
		return
	}

	quotation, err := h.quotationService.ApproveQuotation(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to approve quotation", zap.Error(err), zap.String("quotation_id", id.String()))
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, quotation)
}

// @Summary Reject quotation
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Quotation ID"
// @Param request body domain.RejectQuotationRequest false "Rejection reason"
// @Success 200 {object} domain.QuotationDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id}/reject [post]
func (h *QuotationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid quotation ID: must be a valid UUID", nil)
		return
	}

	// The body is optional; an empty body means no reason given
	var req domain.RejectQuotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "invalid request body: malformed JSON", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, r, err)
		return
	}

	quotation, err := h.quotationService.RejectQuotation(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to reject quotation", zap.Error(err), zap.String("quotation_id", id.String()))
		respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, quotation)
}
