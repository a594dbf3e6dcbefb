package handler

import (
	"errors"
	"net/http"

	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/gymcrm/gymcrm-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://gymcrm.app/errors/validation"
	ErrorTypeNotFound     = "https://gymcrm.app/errors/not-found"
	ErrorTypeUnauthorized = "https://gymcrm.app/errors/unauthorized"
	ErrorTypeForbidden    = "https://gymcrm.app/errors/forbidden"
	ErrorTypeConflict     = "https://gymcrm.app/errors/conflict"
	ErrorTypeInternal     = "https://gymcrm.app/errors/internal"
)

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return c.JSON(http.StatusNotFound, ProblemDetails{
		Type:     ErrorTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, ProblemDetails{
		Type:     ErrorTypeUnauthorized,
		Title:    "Unauthorized",
		Status:   http.StatusUnauthorized,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewForbiddenError creates a forbidden error response
func NewForbiddenError(c echo.Context, detail string) error {
	return c.JSON(http.StatusForbidden, ProblemDetails{
		Type:     ErrorTypeForbidden,
		Title:    "Forbidden",
		Status:   http.StatusForbidden,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewConflictError creates a conflict error response for state conflicts such as a running sweep
func NewConflictError(c echo.Context, detail string) error {
	return c.JSON(http.StatusConflict, ProblemDetails{
		Type:     ErrorTypeConflict,
		Title:    "Conflict",
		Status:   http.StatusConflict,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewBusinessRuleError rejects a request that conflicts with stored billing state.
// It is a 400 whose type tells it apart from input validation.
func NewBusinessRuleError(c echo.Context, detail string) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeConflict,
		Title:    "Business Rule Violation",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return c.JSON(http.StatusInternalServerError, ProblemDetails{
		Type:     ErrorTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// SweepProblemDetails reports a sweep that stopped early together with the counts it reached
type SweepProblemDetails struct {
	ProblemDetails
	Sweep *service.SweepResult `json:"sweep"`
}

// NewSweepFailedError creates an internal error response carrying a partial sweep result
func NewSweepFailedError(c echo.Context, detail string, result *service.SweepResult) error {
	return c.JSON(http.StatusInternalServerError, SweepProblemDetails{
		ProblemDetails: ProblemDetails{
			Type:     ErrorTypeInternal,
			Title:    "Sweep Interrupted",
			Status:   http.StatusInternalServerError,
			Detail:   detail,
			Instance: c.Request().URL.Path,
		},
		Sweep: result,
	})
}

// respondBillingError maps billing errors onto problem details.
// Anything unrecognized is logged and reported as a 500.
func respondBillingError(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, domain.ErrGymNotFound):
		return NewNotFoundError(c, "Gym not found")
	case errors.Is(err, domain.ErrBillingNotFound):
		return NewNotFoundError(c, "No billing found for this month")
	case errors.Is(err, domain.ErrInvalidBillingPeriod):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "billingMonth", Message: "Month must be 1-12 and year 2000-2100"}})
	case errors.Is(err, domain.ErrFutureBillingPeriod):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "billingMonth", Message: "Must not be in the future"}})
	case errors.Is(err, domain.ErrInvalidDueDate):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "dueDate", Message: err.Error()}})
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "paymentMethod", Message: "Unsupported payment method"}})
	case errors.Is(err, domain.ErrPaymentSignatureInvalid):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "razorpaySignature", Message: "Signature does not match"}})
	case errors.Is(err, domain.ErrInvalidInput):
		return NewValidationError(c, err.Error(), nil)
	case errors.Is(err, domain.ErrBillingAlreadyExists),
		errors.Is(err, domain.ErrBillingAlreadyPaid),
		errors.Is(err, domain.ErrBillingAlreadyFinalized),
		errors.Is(err, domain.ErrNoBillableMembers):
		return NewBusinessRuleError(c, err.Error())
	}

	log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Failed to " + action)
	return NewInternalError(c, err.Error())
}
