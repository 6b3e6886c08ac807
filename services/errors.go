package services

import "errors"

// Error classes surfaced to the transport layer. Handlers classify with
// errors.Is and map them to HTTP status codes.
var (
	ErrValidation   = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrConflict     = errors.New("already decided")
	ErrUnavailable  = errors.New("temporarily unavailable")
)
