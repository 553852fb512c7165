package handlers

import (
	"net/http"
	"strconv"

	"botbase/internal/http/middleware"
	"botbase/internal/services"

	"github.com/labstack/echo/v4"
)

// UsageHandler handles dashboard usage endpoints
type UsageHandler struct {
	usageService *services.UsageService
	planLimits   *services.PlanLimitService
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(usageService *services.UsageService, planLimits *services.PlanLimitService) *UsageHandler {
	return &UsageHandler{
		usageService: usageService,
		planLimits:   planLimits,
	}
}

// GetCurrentUsage godoc
// @Summary Current usage
// @Description Current period's usage counters plus a live chatbot count
// @Tags usage
// @Produce json
// @Success 200 {object} models.UsageSnapshot
// @Router /usage [get]
func (h *UsageHandler) GetCurrentUsage(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	snapshot, err := h.usageService.GetCurrentUsage(orgID)
	if err != nil {
		if services.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get usage"})
	}

	return c.JSON(http.StatusOK, snapshot)
}

// GetHistory godoc
// @Summary Usage history
// @Description Per-period usage for the trailing months, oldest first.
// @Description Months with no recorded usage are zero-valued, never omitted.
// @Tags usage
// @Produce json
// @Param months query int false "Months back (default 12)"
// @Success 200 {array} models.UsageSnapshot
// @Router /usage/history [get]
func (h *UsageHandler) GetHistory(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	months := 12
	if v := c.QueryParam("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 36 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "months must be between 1 and 36"})
		}
		months = n
	}

	history, err := h.usageService.GetUsageHistory(orgID, months)
	if err != nil {
		if services.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get usage history"})
	}

	return c.JSON(http.StatusOK, history)
}

// GetLimits godoc
// @Summary Usage versus plan limits
// @Description Current usage evaluated against the organization's plan
// @Tags usage
// @Produce json
// @Success 200 {object} models.UsageLimitReport
// @Router /usage/limits [get]
func (h *UsageHandler) GetLimits(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	report, err := h.planLimits.CheckUsageLimits(orgID)
	if err != nil {
		if services.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to check limits"})
	}

	return c.JSON(http.StatusOK, report)
}
