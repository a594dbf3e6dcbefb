package domain

import "errors"

// Domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInternalError = errors.New("internal error")
	ErrGymNotFound   = errors.New("gym not found")
	ErrInvalidGymID  = errors.New("invalid gym ID")
)

// Validation constants
const (
	MinBillingYear = 2000
	MaxBillingYear = 2100
)
