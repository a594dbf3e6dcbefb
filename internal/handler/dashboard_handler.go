package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/gymcrm/gymcrm-backend/internal/middleware"
	"github.com/gymcrm/gymcrm-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// DashboardHandler handles dashboard-related HTTP requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// TypeCountResponse represents a membership type count in API response
type TypeCountResponse struct {
	MembershipType string `json:"membershipType"`
	Count          int    `json:"count"`
}

// CurrentBillResponse represents the running bill of the current month
type CurrentBillResponse struct {
	Year              int    `json:"year"`
	Month             int    `json:"month"`
	BilledMembers     int    `json:"billedMembers"`
	TotalBillAmount   string `json:"totalBillAmount"`
	CalculatedThrough string `json:"calculatedThrough"`
}

// DashboardSummaryResponse represents the dashboard summary API response
type DashboardSummaryResponse struct {
	GymID            string               `json:"gymId"`
	TotalMembers     int                  `json:"totalMembers"`
	ActiveMembers    int                  `json:"activeMembers"`
	ExpiredMembers   int                  `json:"expiredMembers"`
	ExpiringSoon     int                  `json:"expiringSoon"`
	NewThisMonth     int                  `json:"newThisMonth"`
	ByMembershipType []TypeCountResponse  `json:"byMembershipType"`
	CurrentBill      *CurrentBillResponse `json:"currentBill"`
	GeneratedAt      string               `json:"generatedAt"`
}

// GetSummary handles GET /api/v1/dashboard/summary
func (h *DashboardHandler) GetSummary(c echo.Context) error {
	gymID := middleware.GetGymID(c)
	if gymID == uuid.Nil {
		return NewUnauthorizedError(c, "Gym required")
	}

	summary, err := h.dashboardService.GetSummary(c.Request().Context(), gymID)
	if err != nil {
		return h.respondError(c, err, gymID)
	}

	return c.JSON(http.StatusOK, toDashboardSummaryResponse(summary))
}

// Refresh handles POST /api/v1/dashboard/refresh
func (h *DashboardHandler) Refresh(c echo.Context) error {
	gymID := middleware.GetGymID(c)
	if gymID == uuid.Nil {
		return NewUnauthorizedError(c, "Gym required")
	}

	summary, err := h.dashboardService.Refresh(c.Request().Context(), gymID)
	if err != nil {
		return h.respondError(c, err, gymID)
	}

	return c.JSON(http.StatusOK, toDashboardSummaryResponse(summary))
}

func (h *DashboardHandler) respondError(c echo.Context, err error, gymID uuid.UUID) error {
	if errors.Is(err, domain.ErrGymNotFound) {
		return NewNotFoundError(c, "Gym not found")
	}
	log.Error().Err(err).Str("gym_id", gymID.String()).Msg("Failed to get dashboard summary")
	return NewInternalError(c, "Failed to get dashboard summary")
}

func toDashboardSummaryResponse(s *domain.DashboardSummary) DashboardSummaryResponse {
	resp := DashboardSummaryResponse{
		GymID:            s.GymID,
		TotalMembers:     s.TotalMembers,
		ActiveMembers:    s.ActiveMembers,
		ExpiredMembers:   s.ExpiredMembers,
		ExpiringSoon:     s.ExpiringSoon,
		NewThisMonth:     s.NewThisMonth,
		ByMembershipType: make([]TypeCountResponse, len(s.ByMembershipType)),
		GeneratedAt:      s.GeneratedAt.Format(time.RFC3339),
	}
	for i, tc := range s.ByMembershipType {
		resp.ByMembershipType[i] = TypeCountResponse{MembershipType: string(tc.MembershipType), Count: tc.Count}
	}
	if s.CurrentBill != nil {
		resp.CurrentBill = &CurrentBillResponse{
			Year:              s.CurrentBill.Year,
			Month:             s.CurrentBill.Month,
			BilledMembers:     s.CurrentBill.BilledMembers,
			TotalBillAmount:   s.CurrentBill.TotalBillAmount.StringFixed(2),
			CalculatedThrough: s.CurrentBill.CalculatedThrough.Format(dateLayout),
		}
	}
	return resp
}
