package handlers

import (
	"net/http"

	"botbase/internal/http/middleware"
	"botbase/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// OrganizationHandler handles organization profile and admin endpoints
type OrganizationHandler struct {
	orgService   *services.OrganizationService
	usageService *services.UsageService
	planLimits   *services.PlanLimitService
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(orgService *services.OrganizationService, usageService *services.UsageService, planLimits *services.PlanLimitService) *OrganizationHandler {
	return &OrganizationHandler{
		orgService:   orgService,
		usageService: usageService,
		planLimits:   planLimits,
	}
}

// GetProfile godoc
// @Summary Get organization profile
// @Tags organization
// @Produce json
// @Success 200 {object} models.Organization
// @Router /organization [get]
func (h *OrganizationHandler) GetProfile(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	org, err := h.orgService.Get(orgID)
	if err != nil {
		if services.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get organization"})
	}

	return c.JSON(http.StatusOK, org)
}

// AdminList godoc
// @Summary List organizations
// @Description List all organizations (system admin)
// @Tags admin
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} models.PaginationResult[models.Organization]
// @Router /admin/organizations [get]
func (h *OrganizationHandler) AdminList(c echo.Context) error {
	limit, offset := paginationParams(c)

	result, err := h.orgService.List(limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list organizations"})
	}

	return c.JSON(http.StatusOK, result)
}

// AdminGetUsage godoc
// @Summary Get an organization's usage
// @Description Usage-versus-plan report for any organization (system admin)
// @Tags admin
// @Produce json
// @Param id path string true "Organization ID"
// @Success 200 {object} models.UsageLimitReport
// @Failure 404 {object} map[string]string
// @Router /admin/organizations/{id}/usage [get]
func (h *OrganizationHandler) AdminGetUsage(c echo.Context) error {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid organization ID"})
	}

	report, err := h.planLimits.CheckUsageLimits(orgID)
	if err != nil {
		if services.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get usage"})
	}

	return c.JSON(http.StatusOK, report)
}

// AdminResetUsage godoc
// @Summary Reset an organization's usage
// @Description Zero the current period's counters (support remediation).
// @Description Prior periods stay untouched.
// @Tags admin
// @Produce json
// @Param id path string true "Organization ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/organizations/{id}/usage/reset [post]
func (h *OrganizationHandler) AdminResetUsage(c echo.Context) error {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid organization ID"})
	}

	if err := h.usageService.ResetUsage(orgID); err != nil {
		if services.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to reset usage"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Usage reset"})
}
