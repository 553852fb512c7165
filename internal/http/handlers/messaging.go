package handlers

import (
	"errors"
	"net/http"

	"botbase/internal/services"
	"botbase/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// MessagingHandler handles the public widget/inbound message endpoint
type MessagingHandler struct {
	conversationService *services.ConversationService
}

// NewMessagingHandler creates a new messaging handler
func NewMessagingHandler(conversationService *services.ConversationService) *MessagingHandler {
	return &MessagingHandler{conversationService: conversationService}
}

// HandleInbound godoc
// @Summary Send a message to a chatbot
// @Description Public endpoint for chat surfaces: routes a visitor message
// @Description into the active conversation, creating one when needed, and
// @Description returns the assistant reply when AI is configured
// @Tags public
// @Accept json
// @Produce json
// @Param id path string true "Chatbot ID"
// @Param request body services.InboundMessage true "Message"
// @Success 200 {object} services.InboundResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 429 {object} map[string]interface{}
// @Router /public/chatbots/{id}/messages [post]
func (h *MessagingHandler) HandleInbound(c echo.Context) error {
	chatbotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid chatbot ID"})
	}

	var req services.InboundMessage
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if !models.ValidPlatform(req.Platform) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid platform"})
	}

	result, err := h.conversationService.HandleInbound(c.Request().Context(), chatbotID, req)
	if err != nil {
		var limitErr *services.LimitExceededError
		switch {
		case errors.As(err, &limitErr):
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"error":       "plan_limit_exceeded",
				"reason":      limitErr.Decision.Reason,
				"usage":       limitErr.Decision.Usage,
				"limits":      limitErr.Decision.Limits,
				"upgrade_url": "/settings/billing",
			})
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Chatbot not found"})
		case errors.Is(err, services.ErrChatbotInactive):
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Chatbot is not active"})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process message"})
		}
	}

	return c.JSON(http.StatusOK, result)
}
