package handlers

import (
	"net/http"
	"strconv"

	"botbase/internal/http/middleware"
	"botbase/internal/repo"
	"botbase/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// ChatbotHandler handles chatbot CRUD endpoints
type ChatbotHandler struct {
	chatbotRepo *repo.ChatbotRepository
}

// NewChatbotHandler creates a new chatbot handler
func NewChatbotHandler(chatbotRepo *repo.ChatbotRepository) *ChatbotHandler {
	return &ChatbotHandler{chatbotRepo: chatbotRepo}
}

// chatbotRequest is the create/update payload
type chatbotRequest struct {
	Name           string `json:"name" validate:"required"`
	Description    string `json:"description"`
	WelcomeMessage string `json:"welcome_message"`
	SystemPrompt   string `json:"system_prompt"`
	Model          string `json:"model"`
	IsActive       *bool  `json:"is_active"`
}

// List godoc
// @Summary List chatbots
// @Description List the organization's chatbots with pagination
// @Tags chatbots
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} models.PaginationResult[models.Chatbot]
// @Router /chatbots [get]
func (h *ChatbotHandler) List(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	limit, offset := paginationParams(c)
	result, err := h.chatbotRepo.ListByOrg(orgID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list chatbots"})
	}

	return c.JSON(http.StatusOK, result)
}

// Create godoc
// @Summary Create chatbot
// @Description Create a new chatbot (gated by the plan's chatbot limit)
// @Tags chatbots
// @Accept json
// @Produce json
// @Param request body chatbotRequest true "Chatbot data"
// @Success 201 {object} models.Chatbot
// @Failure 400 {object} map[string]string
// @Failure 429 {object} map[string]interface{}
// @Router /chatbots [post]
func (h *ChatbotHandler) Create(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	var req chatbotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	chatbot := &models.Chatbot{
		BaseOrgModel:   models.BaseOrgModel{OrganizationID: orgID},
		Name:           req.Name,
		Description:    req.Description,
		WelcomeMessage: req.WelcomeMessage,
		SystemPrompt:   req.SystemPrompt,
		Model:          req.Model,
		IsActive:       true,
	}
	if req.IsActive != nil {
		chatbot.IsActive = *req.IsActive
	}

	if err := h.chatbotRepo.Create(chatbot); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create chatbot"})
	}

	return c.JSON(http.StatusCreated, chatbot)
}

// GetByID godoc
// @Summary Get chatbot
// @Tags chatbots
// @Produce json
// @Param id path string true "Chatbot ID"
// @Success 200 {object} models.Chatbot
// @Failure 404 {object} map[string]string
// @Router /chatbots/{id} [get]
func (h *ChatbotHandler) GetByID(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid chatbot ID"})
	}

	chatbot, err := h.chatbotRepo.GetByIDAndOrg(id, orgID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Chatbot not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get chatbot"})
	}

	return c.JSON(http.StatusOK, chatbot)
}

// Update godoc
// @Summary Update chatbot
// @Tags chatbots
// @Accept json
// @Produce json
// @Param id path string true "Chatbot ID"
// @Param request body chatbotRequest true "Chatbot data"
// @Success 200 {object} models.Chatbot
// @Failure 404 {object} map[string]string
// @Router /chatbots/{id} [put]
func (h *ChatbotHandler) Update(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid chatbot ID"})
	}

	chatbot, err := h.chatbotRepo.GetByIDAndOrg(id, orgID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Chatbot not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get chatbot"})
	}

	var req chatbotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	chatbot.Name = req.Name
	chatbot.Description = req.Description
	chatbot.WelcomeMessage = req.WelcomeMessage
	chatbot.SystemPrompt = req.SystemPrompt
	if req.Model != "" {
		chatbot.Model = req.Model
	}
	if req.IsActive != nil {
		chatbot.IsActive = *req.IsActive
	}

	if err := h.chatbotRepo.Update(chatbot); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update chatbot"})
	}

	return c.JSON(http.StatusOK, chatbot)
}

// Delete godoc
// @Summary Delete chatbot
// @Tags chatbots
// @Param id path string true "Chatbot ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /chatbots/{id} [delete]
func (h *ChatbotHandler) Delete(c echo.Context) error {
	orgID := middleware.OrganizationID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid chatbot ID"})
	}

	if err := h.chatbotRepo.Delete(id, orgID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Chatbot not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete chatbot"})
	}

	return c.NoContent(http.StatusNoContent)
}

// paginationParams reads limit/offset query parameters with sane defaults
func paginationParams(c echo.Context) (int, int) {
	limit := 20
	offset := 0

	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
