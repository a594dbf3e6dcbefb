package handler

import (
	"github.com/labstack/echo/v4"
)

// InternalHandler serves machine-to-machine triggers such as the monthly cron
type InternalHandler struct {
	sweeper SweepRunner
}

// NewInternalHandler creates a new InternalHandler
func NewInternalHandler(sweeper SweepRunner) *InternalHandler {
	return &InternalHandler{sweeper: sweeper}
}

// FinalizePreviousMonth handles POST /internal/billing/finalize-previous-month
func (h *InternalHandler) FinalizePreviousMonth(c echo.Context) error {
	return runSweep(c, h.sweeper)
}
