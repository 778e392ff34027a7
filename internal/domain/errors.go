package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidInput      = errors.New("invalid input")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrVendorUnavailable = errors.New("vendor unavailable")
	ErrAlreadyAttached   = errors.New("external id already attached")
	ErrConflict          = errors.New("status conflict")
)
