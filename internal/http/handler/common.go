package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/velotrack/workshop-api/internal/domain"
	"github.com/velotrack/workshop-api/internal/service"
)

var validate = validator.New()

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

// Envelope is the uniform response wrapper for every API endpoint
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}

// ErrorBody carries the failure details inside an envelope
type ErrorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Path      string            `json:"path"`
}

// Meta carries response metadata
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Success: true,
		Data:    data,
		Meta:    Meta{Timestamp: time.Now().UTC()},
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:      code,
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC(),
			Path:      r.URL.Path,
		},
		Meta: Meta{Timestamp: time.Now().UTC()},
	})
}

// respondServiceError maps service and domain errors onto HTTP statuses and
// envelope error codes
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	var notFoundErr *domain.NotFoundError
	var forbiddenErr *domain.ForbiddenError
	var conflictErr *domain.ConflictError

	switch {
	case errors.As(err, &validationErr):
		respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, validationErr.Message, validationErr.Details)
	case errors.As(err, &notFoundErr):
		respondError(w, r, http.StatusNotFound, domain.ErrorCodeNotFound, notFoundErr.Error(), nil)
	case errors.As(err, &forbiddenErr):
		respondError(w, r, http.StatusForbidden, domain.ErrorCodeForbidden, forbiddenErr.Message, nil)
	case errors.As(err, &conflictErr):
		respondError(w, r, http.StatusConflict, conflictErr.Code(), conflictErr.Error(), nil)
	case errors.Is(err, service.ErrUnauthorized):
		respondError(w, r, http.StatusUnauthorized, domain.ErrorCodeUnauthorized, "authentication required", nil)
	default:
		respondError(w, r, http.StatusInternalServerError, domain.ErrorCodeInternal, "an internal error occurred", nil)
	}
}

// respondValidationError converts validator errors into the envelope's
// validation shape with per-field messages
func respondValidationError(w http.ResponseWriter, r *http.Request, err error) {
	details := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			details[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}
	respondError(w, r, http.StatusBadRequest, domain.ErrorCodeValidation, "one or more fields failed validation", details)
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must contain at least %s items", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())
	case "uuid":
		return "Must be a valid UUID"
	default:
		return "Invalid value"
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// parsePagination reads page and limit query parameters with bounds applied
func parsePagination(r *http.Request) (page, pageSize int) {
	page = defaultPage
	pageSize = defaultPageSize

	if v := r.URL.Query().Get("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
