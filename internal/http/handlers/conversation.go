package handlers

import (
	"net/http"

	"botbase/internal/http/middleware"
	"botbase/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ConversationHandler handles dashboard conversation endpoints
type ConversationHandler struct {
	conversationService *services.ConversationService
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversationService *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// List godoc
// @Summary List conversations
// @Description List the organization's conversations, most recently active first
// @Tags conversations
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} models.PaginationResult[models.Conversation]
// @Router /conversations [get]
func (h *ConversationHandler) List(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	limit, offset := paginationParams(c)
	result, err := h.conversationService.List(orgID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list conversations"})
	}

	return c.JSON(http.StatusOK, result)
}

// GetByID godoc
// @Summary Get conversation
// @Description Get a conversation with its messages in insertion order
// @Tags conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} models.Conversation
// @Failure 404 {object} map[string]string
// @Router /conversations/{id} [get]
func (h *ConversationHandler) GetByID(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid conversation ID"})
	}

	conv, err := h.conversationService.Get(id, orgID)
	if err != nil {
		if services.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get conversation"})
	}

	return c.JSON(http.StatusOK, conv)
}

// GetActive godoc
// @Summary Find active conversation
// @Description Find the active conversation for (chatbot, user, platform)
// @Tags conversations
// @Produce json
// @Param chatbot_id query string true "Chatbot ID"
// @Param user_identifier query string true "User identifier"
// @Param platform query string true "Platform"
// @Success 200 {object} models.Conversation
// @Failure 404 {object} map[string]string
// @Router /conversations/active [get]
func (h *ConversationHandler) GetActive(c echo.Context) error {
	chatbotID, err := uuid.Parse(c.QueryParam("chatbot_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid chatbot ID"})
	}

	userIdentifier := c.QueryParam("user_identifier")
	platform := c.QueryParam("platform")
	if userIdentifier == "" || platform == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_identifier and platform are required"})
	}

	conv, err := h.conversationService.GetActive(chatbotID, userIdentifier, platform)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to look up conversation"})
	}
	if conv == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No active conversation"})
	}

	return c.JSON(http.StatusOK, conv)
}

// AddMessage godoc
// @Summary Append message
// @Description Append a message to a conversation from the dashboard
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param request body map[string]string true "Role and content"
// @Success 201 {object} models.Message
// @Failure 404 {object} map[string]string
// @Router /conversations/{id}/messages [post]
func (h *ConversationHandler) AddMessage(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid conversation ID"})
	}

	var req struct {
		Role    string `json:"role" validate:"required"`
		Content string `json:"content" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	msg, err := h.conversationService.AddAgentMessage(id, orgID, req.Role, req.Content)
	if err != nil {
		if services.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, msg)
}

// UpdateStatus godoc
// @Summary Update conversation status
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param request body map[string]string true "New status"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /conversations/{id}/status [put]
func (h *ConversationHandler) UpdateStatus(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid conversation ID"})
	}

	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.conversationService.UpdateStatus(id, orgID, req.Status); err != nil {
		if services.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": req.Status})
}

// Rate godoc
// @Summary Rate conversation
// @Description Record a satisfaction rating (1-5) with optional feedback
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param request body map[string]interface{} true "Rating and feedback"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /conversations/{id}/rate [post]
func (h *ConversationHandler) Rate(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid conversation ID"})
	}

	var req struct {
		Rating   int    `json:"rating" validate:"required,min=1,max=5"`
		Feedback string `json:"feedback"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.conversationService.Rate(id, orgID, req.Rating, req.Feedback); err != nil {
		if services.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Rating recorded"})
}
