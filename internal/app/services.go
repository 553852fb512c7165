package app

import (
	"botbase/internal/ai"
	"botbase/internal/auth"
	"botbase/internal/repo"
	"botbase/internal/services"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Services holds all application services
type Services struct {
	DB                  *gorm.DB
	AuthService         *auth.Service
	UserRepo            *repo.UserRepository
	OrganizationRepo    *repo.OrganizationRepository
	ChatbotRepo         *repo.ChatbotRepository
	ConversationRepo    *repo.ConversationRepository
	UsageRepo           *repo.UsageRepository
	OrganizationService *services.OrganizationService
	UsageService        *services.UsageService
	PlanLimitService    *services.PlanLimitService
	ConversationService *services.ConversationService
	UsageReconciler     *services.UsageReconciler
	Memory              *ai.Memory
	Responder           *ai.Responder
}

// NewServices creates a new services container
func NewServices(db *gorm.DB) *Services {
	userRepo := repo.NewUserRepository(db)
	orgRepo := repo.NewOrganizationRepository(db)
	chatbotRepo := repo.NewChatbotRepository(db)
	conversationRepo := repo.NewConversationRepository(db)
	usageRepo := repo.NewUsageRepository(db)

	authService := auth.NewService(userRepo)
	orgService := services.NewOrganizationService(orgRepo, userRepo, authService)
	usageService := services.NewUsageService(usageRepo, chatbotRepo, orgRepo)
	planLimitService := services.NewPlanLimitService(usageService, orgRepo)

	// Semantic memory and the AI responder are optional; without the env
	// configuration the platform logs conversations but never answers.
	memory, err := ai.NewMemoryFromEnv()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize semantic memory, continuing without it")
		memory = nil
	}
	responder := ai.NewResponderFromEnv(memory)

	conversationService := services.NewConversationService(chatbotRepo, conversationRepo, planLimitService, usageService, responder)

	usageReconciler := services.NewUsageReconciler(orgRepo, conversationRepo, usageRepo)

	return &Services{
		DB:                  db,
		AuthService:         authService,
		UserRepo:            userRepo,
		OrganizationRepo:    orgRepo,
		ChatbotRepo:         chatbotRepo,
		ConversationRepo:    conversationRepo,
		UsageRepo:           usageRepo,
		OrganizationService: orgService,
		UsageService:        usageService,
		PlanLimitService:    planLimitService,
		ConversationService: conversationService,
		UsageReconciler:     usageReconciler,
		Memory:              memory,
		Responder:           responder,
	}
}
