package services

import (
	"context"
	"errors"
	"fmt"

	"botbase/internal/ai"
	"botbase/internal/repo"
	"botbase/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrChatbotInactive is returned when an inbound message targets a disabled chatbot
var ErrChatbotInactive = errors.New("chatbot is not active")

// LimitExceededError signals a denied plan-limit gate. Denial is data: the
// decision carries the reason, current usage and limits for the response body.
type LimitExceededError struct {
	Decision *models.LimitDecision
}

func (e *LimitExceededError) Error() string {
	return e.Decision.Reason
}

// EventBroadcaster pushes conversation events to connected dashboard clients
type EventBroadcaster interface {
	BroadcastToOrganization(orgID string, messageType string, data interface{})
}

// InboundMessage is a visitor message arriving from a chat surface
type InboundMessage struct {
	UserIdentifier string                      `json:"user_identifier" validate:"required"`
	Platform       string                      `json:"platform" validate:"required"`
	Content        string                      `json:"content" validate:"required"`
	Context        *models.ConversationContext `json:"context,omitempty"`
}

// InboundResult is what the widget gets back: the conversation it landed in
// and, when the AI responder is configured, the assistant's reply
type InboundResult struct {
	ConversationID uuid.UUID       `json:"conversation_id"`
	Message        *models.Message `json:"message"`
	Reply          *models.Message `json:"reply,omitempty"`
}

// ConversationService routes inbound visitor messages into conversations:
// find-or-create the active conversation, append, answer, broadcast.
type ConversationService struct {
	chatbotRepo      *repo.ChatbotRepository
	conversationRepo *repo.ConversationRepository
	planLimits       *PlanLimitService
	usage            *UsageService
	responder        *ai.Responder
	broadcaster      EventBroadcaster
}

// NewConversationService creates a new conversation service. responder may be
// nil; the broadcaster is wired later via SetBroadcaster.
func NewConversationService(
	chatbotRepo *repo.ChatbotRepository,
	conversationRepo *repo.ConversationRepository,
	planLimits *PlanLimitService,
	usage *UsageService,
	responder *ai.Responder,
) *ConversationService {
	return &ConversationService{
		chatbotRepo:      chatbotRepo,
		conversationRepo: conversationRepo,
		planLimits:       planLimits,
		usage:            usage,
		responder:        responder,
	}
}

// SetBroadcaster wires the event feed after construction. The websocket hub
// lives in the handler layer, which is built after the services.
func (s *ConversationService) SetBroadcaster(b EventBroadcaster) {
	s.broadcaster = b
}

// HandleInbound processes a visitor message for a chatbot. Every call is
// metered as an API call against the chatbot's organization; an existing
// active conversation for (chatbot, user, platform) is reused, otherwise a
// new one is started, additionally gated by the plan's conversation limit.
func (s *ConversationService) HandleInbound(ctx context.Context, chatbotID uuid.UUID, in InboundMessage) (*InboundResult, error) {
	chatbot, err := s.chatbotRepo.GetByID(chatbotID)
	if err != nil {
		return nil, err
	}
	if !chatbot.IsActive {
		return nil, ErrChatbotInactive
	}

	// The widget endpoint carries no org context, so the API-call gate runs
	// here with the organization resolved from the chatbot
	apiDecision, err := s.planLimits.CheckLimit(chatbot.OrganizationID, ResourceAPICall)
	if err != nil {
		return nil, err
	}
	if !apiDecision.Allowed {
		return nil, &LimitExceededError{Decision: apiDecision}
	}

	conv, err := s.conversationRepo.GetActive(chatbotID, in.UserIdentifier, in.Platform)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active conversation: %w", err)
	}

	var userMsg *models.Message
	created := false

	if conv == nil {
		decision, err := s.planLimits.CheckLimit(chatbot.OrganizationID, ResourceConversation)
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			return nil, &LimitExceededError{Decision: decision}
		}

		conv = &models.Conversation{
			BaseOrgModel:   models.BaseOrgModel{OrganizationID: chatbot.OrganizationID},
			ChatbotID:      chatbotID,
			UserIdentifier: in.UserIdentifier,
			Platform:       in.Platform,
		}
		if in.Context != nil {
			conv.Context = *in.Context
		}

		userMsg, err = s.conversationRepo.CreateWithSeed(conv, in.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
		created = true
	} else {
		userMsg, err = s.conversationRepo.AddMessage(conv.ID, models.RoleUser, in.Content, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to append message: %w", err)
		}
	}

	s.recordInbound(chatbot.OrganizationID, created)

	if created {
		s.broadcastEvent(chatbot.OrganizationID, "conversation.created", conv)
	}
	s.broadcastEvent(chatbot.OrganizationID, "message.created", userMsg)

	result := &InboundResult{
		ConversationID: conv.ID,
		Message:        userMsg,
	}

	if s.responder != nil {
		reply, err := s.generateReply(ctx, chatbot, conv, in.Content)
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("Failed to generate assistant reply")
		} else {
			result.Reply = reply
		}
	}

	return result, nil
}

// generateReply asks the responder for an answer and appends it to the conversation
func (s *ConversationService) generateReply(ctx context.Context, chatbot *models.Chatbot, conv *models.Conversation, userMessage string) (*models.Message, error) {
	full, err := s.conversationRepo.GetByID(conv.ID, conv.OrganizationID)
	if err != nil {
		return nil, err
	}

	content, metadata, err := s.responder.Reply(ctx, chatbot, conv, full.Messages, userMessage)
	if err != nil {
		return nil, err
	}

	reply, err := s.conversationRepo.AddMessage(conv.ID, models.RoleAssistant, content, metadata)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := s.usage.RecordMessages(conv.OrganizationID, 1); err != nil {
			log.Warn().Err(err).Str("organization_id", conv.OrganizationID.String()).Msg("Failed to record assistant message usage")
		}
	}()

	s.responder.Remember(context.Background(), conv, userMessage, content)
	s.broadcastEvent(conv.OrganizationID, "message.created", reply)

	return reply, nil
}

// recordInbound registers the ledger deltas for an inbound message: the
// conversation or message count plus one API call. Best-effort: the message is
// already stored, so a metering failure is logged and swallowed.
func (s *ConversationService) recordInbound(orgID uuid.UUID, createdConversation bool) {
	go func() {
		var err error
		if createdConversation {
			err = s.usage.Record(ResourceConversation, orgID)
		} else {
			err = s.usage.RecordMessages(orgID, 1)
		}
		if err != nil {
			log.Warn().Err(err).Str("organization_id", orgID.String()).Msg("Failed to record conversation usage")
		}

		if err := s.usage.Record(ResourceAPICall, orgID); err != nil {
			log.Warn().Err(err).Str("organization_id", orgID.String()).Msg("Failed to record API call usage")
		}
	}()
}

func (s *ConversationService) broadcastEvent(orgID uuid.UUID, eventType string, data interface{}) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToOrganization(orgID.String(), eventType, data)
}

// Get returns a conversation with its ordered messages
func (s *ConversationService) Get(id, orgID uuid.UUID) (*models.Conversation, error) {
	return s.conversationRepo.GetByID(id, orgID)
}

// List returns an organization's conversations, most recently active first
func (s *ConversationService) List(orgID uuid.UUID, limit, offset int) (models.PaginationResult[models.Conversation], error) {
	return s.conversationRepo.ListByOrg(orgID, limit, offset)
}

// GetActive returns the active conversation for (chatbot, user, platform), or nil
func (s *ConversationService) GetActive(chatbotID uuid.UUID, userIdentifier, platform string) (*models.Conversation, error) {
	return s.conversationRepo.GetActive(chatbotID, userIdentifier, platform)
}

// UpdateStatus applies a status transition
func (s *ConversationService) UpdateStatus(id, orgID uuid.UUID, status string) error {
	if !models.ValidConversationStatus(status) {
		return fmt.Errorf("invalid conversation status: %s", status)
	}
	return s.conversationRepo.UpdateStatus(id, orgID, status)
}

// Rate records a satisfaction rating (1-5) with optional feedback
func (s *ConversationService) Rate(id, orgID uuid.UUID, rating int, feedback string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	return s.conversationRepo.Rate(id, orgID, rating, feedback)
}

// AddAgentMessage appends a message from a human agent through the dashboard
func (s *ConversationService) AddAgentMessage(id, orgID uuid.UUID, role, content string) (*models.Message, error) {
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("invalid message role: %s", role)
	}

	if _, err := s.conversationRepo.GetByID(id, orgID); err != nil {
		return nil, err
	}

	msg, err := s.conversationRepo.AddMessage(id, role, content, nil)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := s.usage.RecordMessages(orgID, 1); err != nil {
			log.Warn().Err(err).Str("organization_id", orgID.String()).Msg("Failed to record message usage")
		}
	}()

	s.broadcastEvent(orgID, "message.created", msg)
	return msg, nil
}

// IsNotFound reports whether err is the record-not-found signal
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
