package handler

import (
	"github.com/gymcrm/gymcrm-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, internalAPIKey string, billingHandler *BillingHandler, adminBillingHandler *AdminBillingHandler, dashboardHandler *DashboardHandler, internalHandler *InternalHandler) {
	// API version 1
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	api.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Billing routes (gym owners)
	billing := api.Group("/billing")
	billing.Use(authMiddleware.RequireGym())
	billing.GET("/current-month", billingHandler.GetCurrentMonth)
	billing.GET("/month/:year/:month", billingHandler.GetMonth)
	billing.GET("/history", billingHandler.GetHistory)
	billing.POST("/:billingId/payment", billingHandler.AddPayment)

	// Dashboard routes (gym owners)
	dashboard := api.Group("/dashboard")
	dashboard.Use(authMiddleware.RequireGym())
	dashboard.GET("/summary", dashboardHandler.GetSummary)
	dashboard.POST("/refresh", dashboardHandler.Refresh)

	// Admin billing routes
	admin := api.Group("/admin/billing")
	admin.Use(authMiddleware.RequireAdmin())
	admin.POST("/create", adminBillingHandler.CreateBilling)
	admin.POST("/create-all", adminBillingHandler.CreateAll)
	admin.POST("/finalize-previous-month", adminBillingHandler.FinalizePreviousMonth)
	admin.POST("/:billingId/payment", adminBillingHandler.AddPayment)
	admin.POST("/:billingId/finalize", adminBillingHandler.Finalize)
	admin.GET("/month/:year/:month", adminBillingHandler.ListForMonth)
	admin.GET("/gyms/:gymId/month/:year/:month", adminBillingHandler.GetGymMonth)

	// Internal routes (cron and other services)
	internal := e.Group("/internal")
	internal.Use(middleware.InternalAPIKey(internalAPIKey))
	internal.POST("/billing/finalize-previous-month", internalHandler.FinalizePreviousMonth)
}
