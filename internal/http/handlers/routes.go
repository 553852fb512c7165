package handlers

import (
	"botbase/internal/app"
	"botbase/internal/http/middleware"
	"botbase/internal/services"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all API routes
func SetupRoutes(api *echo.Group, svc *app.Services) {
	wsHandler := NewWebSocketHandler(svc.AuthService)
	svc.ConversationService.SetBroadcaster(wsHandler)

	authHandler := NewAuthHandler(svc.AuthService, svc.OrganizationService)
	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Public widget endpoint: no JWT. The conversation limit is enforced
	// inside the service, which resolves the organization from the chatbot.
	messagingHandler := NewMessagingHandler(svc.ConversationService)
	api.POST("/public/chatbots/:id/messages", messagingHandler.HandleInbound)

	// Billing provider webhook (authenticated at the edge, not via JWT)
	billingHandler := NewBillingHandler(svc.OrganizationService)
	api.POST("/webhooks/billing", billingHandler.HandleWebhook)

	// WebSocket endpoint (authenticates via token query parameter)
	api.GET("/ws", wsHandler.HandleWebSocket)

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(svc.AuthService))
	protected.Use(middleware.OrganizationResolver())

	profileAuth := protected.Group("/auth")
	profileAuth.PUT("/profile", authHandler.UpdateProfile)
	profileAuth.PUT("/change-password", authHandler.ChangePassword)

	// System admin routes
	orgHandler := NewOrganizationHandler(svc.OrganizationService, svc.UsageService, svc.PlanLimitService)
	admin := protected.Group("/admin")
	admin.Use(middleware.SystemAdminOnly())
	admin.GET("/organizations", orgHandler.AdminList)
	admin.GET("/organizations/:id/usage", orgHandler.AdminGetUsage)
	admin.POST("/organizations/:id/usage/reset", orgHandler.AdminResetUsage)

	// Organization routes (require org context)
	org := protected.Group("")
	org.Use(middleware.OrgUserOrAbove())
	org.Use(middleware.RequireOrganization())

	org.GET("/organization", orgHandler.GetProfile)

	chatbotHandler := NewChatbotHandler(svc.ChatbotRepo)
	chatbots := org.Group("/chatbots")
	chatbots.GET("", chatbotHandler.List)
	chatbots.POST("", chatbotHandler.Create,
		middleware.TrackUsage(services.ResourceChatbot, svc.PlanLimitService, svc.UsageService))
	chatbots.GET("/:id", chatbotHandler.GetByID)
	chatbots.PUT("/:id", chatbotHandler.Update)
	chatbots.DELETE("/:id", chatbotHandler.Delete)

	conversationHandler := NewConversationHandler(svc.ConversationService)
	conversations := org.Group("/conversations")
	conversations.GET("", conversationHandler.List)
	conversations.GET("/active", conversationHandler.GetActive)
	conversations.GET("/:id", conversationHandler.GetByID)
	conversations.POST("/:id/messages", conversationHandler.AddMessage)
	conversations.PUT("/:id/status", conversationHandler.UpdateStatus)
	conversations.POST("/:id/rate", conversationHandler.Rate)

	usageHandler := NewUsageHandler(svc.UsageService, svc.PlanLimitService)
	usage := org.Group("/usage")
	usage.GET("", usageHandler.GetCurrentUsage)
	usage.GET("/history", usageHandler.GetHistory)
	usage.GET("/limits", usageHandler.GetLimits)

	// Metered API surface for programmatic clients: same reads, gated and
	// recorded as api_calls
	apiV1 := org.Group("/api")
	apiV1.Use(middleware.TrackUsage(services.ResourceAPICall, svc.PlanLimitService, svc.UsageService))
	apiV1.GET("/chatbots", chatbotHandler.List)
	apiV1.GET("/conversations", conversationHandler.List)
	apiV1.GET("/conversations/:id", conversationHandler.GetByID)
	apiV1.POST("/conversations/:id/messages", conversationHandler.AddMessage)
}
