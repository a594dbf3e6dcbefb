package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/gymcrm/gymcrm-backend/internal/middleware"
	"github.com/gymcrm/gymcrm-backend/internal/scheduler"
	"github.com/gymcrm/gymcrm-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// SweepRunner runs the month finalization sweep on demand
type SweepRunner interface {
	RunOnce(ctx context.Context) (*service.SweepResult, error)
}

// AdminBillingHandler handles platform administrator billing requests
type AdminBillingHandler struct {
	billingService *service.BillingService
	sweeper        SweepRunner
}

// NewAdminBillingHandler creates a new AdminBillingHandler
func NewAdminBillingHandler(billingService *service.BillingService, sweeper SweepRunner) *AdminBillingHandler {
	return &AdminBillingHandler{
		billingService: billingService,
		sweeper:        sweeper,
	}
}

// CreateBillingRequest represents the request body for creating a month's bill
type CreateBillingRequest struct {
	GymID           string  `json:"gymId"`
	BillingMonth    int     `json:"billingMonth"`
	BillingYear     int     `json:"billingYear"`
	DueDate         *string `json:"dueDate"`
	PaymentDeadline *string `json:"paymentDeadline"`
}

// CreateAllRequest represents the request body for billing every gym
type CreateAllRequest struct {
	BillingMonth int `json:"billingMonth"`
	BillingYear  int `json:"billingYear"`
}

// CreateBilling handles POST /api/v1/admin/billing/create
func (h *AdminBillingHandler) CreateBilling(c echo.Context) error {
	var req CreateBillingRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	gymID, err := uuid.Parse(req.GymID)
	if err != nil {
		return NewValidationError(c, "Invalid gym ID", []ValidationError{
			{Field: "gymId", Message: "Must be a valid UUID"},
		})
	}
	if errs := validatePeriodBody(req.BillingYear, req.BillingMonth); len(errs) > 0 {
		return NewValidationError(c, "Invalid billing period", errs)
	}

	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		return NewValidationError(c, "Invalid due date", []ValidationError{
			{Field: "dueDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	deadline, err := parseOptionalDate(req.PaymentDeadline)
	if err != nil {
		return NewValidationError(c, "Invalid payment deadline", []ValidationError{
			{Field: "paymentDeadline", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	billing, err := h.billingService.CreateBilling(c.Request().Context(), service.CreateBillingInput{
		GymID:           gymID,
		Year:            req.BillingYear,
		Month:           req.BillingMonth,
		DueDate:         dueDate,
		PaymentDeadline: deadline,
		CreatedBy:       middleware.GetAuth0ID(c),
	})
	if err != nil {
		return respondBillingError(c, err, "create billing")
	}

	return c.JSON(http.StatusCreated, BillingEnvelope{Billing: toBillingResponse(billing)})
}

// CreateAll handles POST /api/v1/admin/billing/create-all
func (h *AdminBillingHandler) CreateAll(c echo.Context) error {
	var req CreateAllRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if errs := validatePeriodBody(req.BillingYear, req.BillingMonth); len(errs) > 0 {
		return NewValidationError(c, "Invalid billing period", errs)
	}

	result, err := h.billingService.CreateBillingForAllGyms(c.Request().Context(), req.BillingYear, req.BillingMonth)
	if err != nil && result != nil {
		log.Error().Err(err).Int("processed", result.Processed()).Msg("Billing sweep for all gyms interrupted")
		return NewSweepFailedError(c, err.Error(), result)
	}
	if err != nil {
		return respondBillingError(c, err, "create billing for all gyms")
	}

	return c.JSON(http.StatusOK, result)
}

// AddPayment handles POST /api/v1/admin/billing/:billingId/payment for any gym
func (h *AdminBillingHandler) AddPayment(c echo.Context) error {
	input, ok, err := bindPayment(c)
	if !ok {
		return err
	}

	billing, err := h.billingService.AddPayment(c.Request().Context(), input)
	if err != nil {
		return respondBillingError(c, err, "add payment")
	}

	return c.JSON(http.StatusOK, BillingEnvelope{Billing: toBillingResponse(billing)})
}

// Finalize handles POST /api/v1/admin/billing/:billingId/finalize
func (h *AdminBillingHandler) Finalize(c echo.Context) error {
	recordID, ok, err := parseUUIDParam(c, "billingId")
	if !ok {
		return err
	}

	billing, err := h.billingService.FinalizeBilling(c.Request().Context(), recordID)
	if err != nil {
		return respondBillingError(c, err, "finalize billing")
	}

	return c.JSON(http.StatusOK, BillingEnvelope{Billing: toBillingResponse(billing)})
}

// FinalizePreviousMonth handles POST /api/v1/admin/billing/finalize-previous-month
func (h *AdminBillingHandler) FinalizePreviousMonth(c echo.Context) error {
	return runSweep(c, h.sweeper)
}

// ListForMonth handles GET /api/v1/admin/billing/month/:year/:month
func (h *AdminBillingHandler) ListForMonth(c echo.Context) error {
	year, month, ok, err := parsePeriodParams(c)
	if !ok {
		return err
	}

	billings, err := h.billingService.ListBillingsForMonth(c.Request().Context(), year, month)
	if err != nil {
		return respondBillingError(c, err, "list billings")
	}

	resp := BillingListResponse{Year: year, Month: month, Billings: make([]BillingResponse, len(billings))}
	for i, b := range billings {
		resp.Billings[i] = *toBillingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetGymMonth handles GET /api/v1/admin/billing/gyms/:gymId/month/:year/:month
func (h *AdminBillingHandler) GetGymMonth(c echo.Context) error {
	gymID, ok, err := parseUUIDParam(c, "gymId")
	if !ok {
		return err
	}
	year, month, ok, err := parsePeriodParams(c)
	if !ok {
		return err
	}

	view, err := h.billingService.GetMonthBilling(c.Request().Context(), gymID, year, month)
	if err != nil {
		return respondBillingError(c, err, "get gym month billing")
	}

	return c.JSON(http.StatusOK, toBillingViewResponse(view))
}

// runSweep triggers the finalization sweep and reports its result
func runSweep(c echo.Context, sweeper SweepRunner) error {
	result, err := sweeper.RunOnce(c.Request().Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrSweepInProgress) {
			return NewConflictError(c, err.Error())
		}
		log.Error().Err(err).Msg("Failed to finalize previous month")
		if result != nil {
			return NewSweepFailedError(c, err.Error(), result)
		}
		return NewInternalError(c, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func validatePeriodBody(year, month int) []ValidationError {
	var errs []ValidationError
	if year < domain.MinBillingYear || year > domain.MaxBillingYear {
		errs = append(errs, ValidationError{Field: "billingYear", Message: "Year must be between 2000 and 2100"})
	}
	if month < 1 || month > 12 {
		errs = append(errs, ValidationError{Field: "billingMonth", Message: "Month must be between 1 and 12"})
	}
	return errs
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
