package handlers

import (
	"net/http"

	"botbase/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// BillingHandler handles billing webhook endpoints
type BillingHandler struct {
	orgService *services.OrganizationService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(orgService *services.OrganizationService) *BillingHandler {
	return &BillingHandler{orgService: orgService}
}

// billingEvent is a subscription-change notification from the billing provider
type billingEvent struct {
	OrganizationID uuid.UUID `json:"organization_id" validate:"required"`
	Tier           string    `json:"tier" validate:"required"`
	EventID        string    `json:"event_id"`
}

// HandleWebhook godoc
// @Summary Billing webhook
// @Description Apply a subscription change from the billing provider. The new
// @Description tier takes effect on the next limit evaluation; idempotency of
// @Description redelivered events is the sender's concern.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param request body billingEvent true "Subscription event"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /webhooks/billing [post]
func (h *BillingHandler) HandleWebhook(c echo.Context) error {
	var event billingEvent
	if err := c.Bind(&event); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&event); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.orgService.UpdateSubscription(event.OrganizationID, event.Tier); err != nil {
		if services.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	log.Info().
		Str("organization_id", event.OrganizationID.String()).
		Str("tier", event.Tier).
		Str("event_id", event.EventID).
		Msg("Subscription updated from billing webhook")

	return c.JSON(http.StatusOK, map[string]string{"message": "Subscription updated"})
}
