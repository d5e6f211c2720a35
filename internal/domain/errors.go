package domain

import "fmt"

// Error codes carried in the API error envelope
const (
	ErrorCodeValidation      = "validation_error"
	ErrorCodeNotFound        = "not_found"
	ErrorCodeForbidden       = "forbidden"
	ErrorCodeConflict        = "conflict"
	ErrorCodeExpired         = "expired"
	ErrorCodeUnauthorized    = "unauthorized"
	ErrorCodeInternal        = "internal_error"
	ErrorCodeTooManyRequests = "rate_limited"
)

// ValidationError reports malformed client input: bad line items, tax rate
// out of range, dates in the wrong order. Always client-fixable, mapped to 400.
type ValidationError struct {
	Message string
	Details map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with optional field details
func NewValidationError(message string, details map[string]string) *ValidationError {
	return &ValidationError{Message: message, Details: details}
}

// NotFoundError reports a missing resource, mapped to 404
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NewNotFoundError creates a NotFoundError for the given resource
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ForbiddenError reports a permission or ownership failure, mapped to 403
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

// NewForbiddenError creates a ForbiddenError
func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

// ConflictError reports an invalid state transition or a uniqueness conflict
// (duplicate active quotation, already-invoiced record, payment exceeding
// balance), mapped to 409. Expired carries the distinct expired code so
// callers can tell "validity window passed" apart from a generic conflict.
type ConflictError struct {
	Message   string
	Current   string
	Requested string
	Expired   bool
}

func (e *ConflictError) Error() string {
	if e.Current != "" && e.Requested != "" {
		return fmt.Sprintf("%s (current: %s, requested: %s)", e.Message, e.Current, e.Requested)
	}
	return e.Message
}

// Code returns the envelope error code for this conflict
func (e *ConflictError) Code() string {
	if e.Expired {
		return ErrorCodeExpired
	}
	return ErrorCodeConflict
}

// NewConflictError creates a generic ConflictError
func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// NewTransitionError creates a ConflictError naming the current vs requested state
func NewTransitionError(message, current, requested string) *ConflictError {
	return &ConflictError{Message: message, Current: current, Requested: requested}
}

// NewExpiredError creates a ConflictError for actions on a lapsed document
func NewExpiredError(message string) *ConflictError {
	return &ConflictError{Message: message, Expired: true}
}
