package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/gymcrm/gymcrm-backend/internal/middleware"
	"github.com/gymcrm/gymcrm-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// BillingHandler handles gym-facing billing requests
type BillingHandler struct {
	billingService *service.BillingService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// AddPaymentRequest represents the request body for settling a bill
type AddPaymentRequest struct {
	PaymentMethod     string `json:"paymentMethod"`
	TransactionID     string `json:"transactionId"`
	Description       string `json:"description"`
	RazorpayOrderID   string `json:"razorpayOrderId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature"`
}

// GetCurrentMonth handles GET /api/v1/billing/current-month
func (h *BillingHandler) GetCurrentMonth(c echo.Context) error {
	gymID := middleware.GetGymID(c)
	if gymID == uuid.Nil {
		return NewUnauthorizedError(c, "Gym required")
	}

	view, err := h.billingService.GetCurrentMonthBilling(c.Request().Context(), gymID)
	if err != nil {
		return respondBillingError(c, err, "get current month billing")
	}

	return c.JSON(http.StatusOK, toBillingViewResponse(view))
}

// GetMonth handles GET /api/v1/billing/month/:year/:month
func (h *BillingHandler) GetMonth(c echo.Context) error {
	gymID := middleware.GetGymID(c)
	if gymID == uuid.Nil {
		return NewUnauthorizedError(c, "Gym required")
	}

	year, month, ok, err := parsePeriodParams(c)
	if !ok {
		return err
	}

	view, err := h.billingService.GetMonthBilling(c.Request().Context(), gymID, year, month)
	if err != nil {
		return respondBillingError(c, err, "get month billing")
	}

	return c.JSON(http.StatusOK, toBillingViewResponse(view))
}

// GetHistory handles GET /api/v1/billing/history?months=N
func (h *BillingHandler) GetHistory(c echo.Context) error {
	gymID := middleware.GetGymID(c)
	if gymID == uuid.Nil {
		return NewUnauthorizedError(c, "Gym required")
	}

	months := 0
	if raw := c.QueryParam("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return NewValidationError(c, "Invalid months", []ValidationError{
				{Field: "months", Message: "Must be a positive integer"},
			})
		}
		months = parsed
	}

	entries, err := h.billingService.GetBillingHistory(c.Request().Context(), gymID, months)
	if err != nil {
		return respondBillingError(c, err, "get billing history")
	}

	return c.JSON(http.StatusOK, toHistoryResponse(entries))
}

// AddPayment handles POST /api/v1/billing/:billingId/payment for the caller's own gym
func (h *BillingHandler) AddPayment(c echo.Context) error {
	gymID := middleware.GetGymID(c)
	if gymID == uuid.Nil {
		return NewUnauthorizedError(c, "Gym required")
	}

	input, ok, err := bindPayment(c)
	if !ok {
		return err
	}
	input.GymID = &gymID

	billing, err := h.billingService.AddPayment(c.Request().Context(), input)
	if err != nil {
		return respondBillingError(c, err, "add payment")
	}

	return c.JSON(http.StatusOK, BillingEnvelope{Billing: toBillingResponse(billing)})
}

// parsePeriodParams reads :year and :month. When ok is false the validation
// response has already been written and err is its result.
func parsePeriodParams(c echo.Context) (year, month int, ok bool, err error) {
	year, convErr := strconv.Atoi(c.Param("year"))
	if convErr != nil || year < domain.MinBillingYear || year > domain.MaxBillingYear {
		return 0, 0, false, NewValidationError(c, "Invalid year", []ValidationError{
			{Field: "year", Message: "Year must be between 2000 and 2100"},
		})
	}

	month, convErr = strconv.Atoi(c.Param("month"))
	if convErr != nil || month < 1 || month > 12 {
		return 0, 0, false, NewValidationError(c, "Invalid month", []ValidationError{
			{Field: "month", Message: "Month must be between 1 and 12"},
		})
	}
	return year, month, true, nil
}

func parseUUIDParam(c echo.Context, name string) (uuid.UUID, bool, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, false, NewValidationError(c, "Invalid "+name, []ValidationError{
			{Field: name, Message: "Must be a valid UUID"},
		})
	}
	return id, true, nil
}

// bindPayment parses the billing record ID and payment body shared by gym and admin routes
func bindPayment(c echo.Context) (service.AddPaymentInput, bool, error) {
	recordID, ok, err := parseUUIDParam(c, "billingId")
	if !ok {
		return service.AddPaymentInput{}, false, err
	}

	var req AddPaymentRequest
	if err := c.Bind(&req); err != nil {
		return service.AddPaymentInput{}, false, NewValidationError(c, "Invalid request body", nil)
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if !method.IsValid() {
		return service.AddPaymentInput{}, false, NewValidationError(c, "Invalid payment method", []ValidationError{
			{Field: "paymentMethod", Message: "Must be one of cash, upi, card, bank_transfer, cheque, razorpay"},
		})
	}
	if method == domain.PaymentMethodRazorpay && (req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "") {
		return service.AddPaymentInput{}, false, NewValidationError(c, "Missing Razorpay payment details", []ValidationError{
			{Field: "razorpaySignature", Message: "Order ID, payment ID and signature are required"},
		})
	}

	return service.AddPaymentInput{
		BillingRecordID:   recordID,
		PaymentMethod:     method,
		TransactionID:     req.TransactionID,
		Description:       req.Description,
		RecordedBy:        middleware.GetAuth0ID(c),
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
		RazorpaySignature: req.RazorpaySignature,
	}, true, nil
}
