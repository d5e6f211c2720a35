package service

import "errors"

// Common service errors
var (
	// ErrUnauthorized is returned when no actor is present on the context
	ErrUnauthorized = errors.New("unauthorized")
)
