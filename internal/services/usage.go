package services

import (
	"fmt"
	"time"

	"botbase/internal/repo"
	"botbase/pkg/models"
	"botbase/pkg/period"

	"github.com/google/uuid"
)

// overridable in tests
var timeNow = time.Now

// Metered resource kinds
type Resource string

const (
	ResourceChatbot      Resource = "chatbot"
	ResourceConversation Resource = "conversation"
	ResourceAPICall      Resource = "api_call"
)

// UsageService exposes the usage ledger: snapshots, trailing history, the
// post-success increments recorded by the tracking middleware, and the
// administrative reset.
type UsageService struct {
	usageRepo   *repo.UsageRepository
	chatbotRepo *repo.ChatbotRepository
	orgRepo     *repo.OrganizationRepository
}

// NewUsageService creates a new usage service
func NewUsageService(usageRepo *repo.UsageRepository, chatbotRepo *repo.ChatbotRepository, orgRepo *repo.OrganizationRepository) *UsageService {
	return &UsageService{
		usageRepo:   usageRepo,
		chatbotRepo: chatbotRepo,
		orgRepo:     orgRepo,
	}
}

// GetCurrentUsage returns the current period's counters plus a live chatbot
// count. A period with no ledger row reads as all zeroes.
func (s *UsageService) GetCurrentUsage(orgID uuid.UUID) (*models.UsageSnapshot, error) {
	if _, err := s.orgRepo.GetByID(orgID); err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	currentPeriod := period.Current()
	entry, err := s.usageRepo.GetEntry(orgID, currentPeriod)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage ledger: %w", err)
	}

	chatbots, err := s.chatbotRepo.CountByOrg(orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to count chatbots: %w", err)
	}

	return &models.UsageSnapshot{
		Chatbots:      int(chatbots),
		Conversations: entry.Conversations,
		Messages:      entry.Messages,
		APICalls:      entry.APICalls,
		Period:        currentPeriod,
	}, nil
}

// GetUsageHistory returns exactly monthsBack per-period snapshots, oldest
// first. Periods without a ledger row are zero-valued, never omitted.
func (s *UsageService) GetUsageHistory(orgID uuid.UUID, monthsBack int) ([]models.UsageSnapshot, error) {
	if monthsBack <= 0 {
		monthsBack = 12
	}

	if _, err := s.orgRepo.GetByID(orgID); err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	keys := period.Trailing(timeNow(), monthsBack)
	entries, err := s.usageRepo.GetEntries(orgID, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage ledger: %w", err)
	}

	history := make([]models.UsageSnapshot, 0, len(keys))
	for _, key := range keys {
		snapshot := models.UsageSnapshot{Period: key}
		if entry, ok := entries[key]; ok {
			snapshot.Conversations = entry.Conversations
			snapshot.Messages = entry.Messages
			snapshot.APICalls = entry.APICalls
		}
		history = append(history, snapshot)
	}
	return history, nil
}

// Record registers a consumed unit of the given resource in the ledger.
// Chatbots are counted live from their table, so there is no ledger delta
// for them. Called by the tracking middleware after a successful request.
// The organization must exist; the ledger never materializes rows for
// unknown tenants.
func (s *UsageService) Record(resource Resource, orgID uuid.UUID) error {
	if _, err := s.orgRepo.GetByID(orgID); err != nil {
		return fmt.Errorf("failed to get organization: %w", err)
	}

	switch resource {
	case ResourceConversation:
		return s.usageRepo.IncrementConversation(orgID, 1)
	case ResourceAPICall:
		return s.usageRepo.IncrementAPICall(orgID)
	case ResourceChatbot:
		return nil
	default:
		return fmt.Errorf("unknown resource type: %s", resource)
	}
}

// RecordMessages registers messages appended to existing conversations
func (s *UsageService) RecordMessages(orgID uuid.UUID, count int) error {
	if _, err := s.orgRepo.GetByID(orgID); err != nil {
		return fmt.Errorf("failed to get organization: %w", err)
	}
	return s.usageRepo.IncrementMessages(orgID, count)
}

// ResetUsage zeroes the current period's counters in place. Prior periods
// are untouched and remain visible in history. System-admin only; the route
// layer enforces that.
func (s *UsageService) ResetUsage(orgID uuid.UUID) error {
	if _, err := s.orgRepo.GetByID(orgID); err != nil {
		return fmt.Errorf("failed to get organization: %w", err)
	}
	return s.usageRepo.Reset(orgID, period.Current())
}
