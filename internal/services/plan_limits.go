package services

import (
	"fmt"

	"botbase/internal/repo"
	"botbase/pkg/models"
	"botbase/pkg/period"

	"github.com/google/uuid"
)

// planCatalog is the authoritative mapping from subscription tier to limits.
// models.Unlimited (-1) means no cap on that resource.
var planCatalog = map[string]models.PlanLimits{
	models.TierFree: {
		MaxChatbots:               2,
		MaxConversationsPerPeriod: 100,
		MaxAPICallsPerPeriod:      1000,
	},
	models.TierPro: {
		MaxChatbots:               10,
		MaxConversationsPerPeriod: 10000,
		MaxAPICallsPerPeriod:      50000,
	},
	models.TierEnterprise: {
		MaxChatbots:               models.Unlimited,
		MaxConversationsPerPeriod: models.Unlimited,
		MaxAPICallsPerPeriod:      models.Unlimited,
	},
}

// LimitsFor returns the plan limits for a tier. Unknown tiers fall back to
// the free plan rather than failing open.
func LimitsFor(tier string) models.PlanLimits {
	if limits, ok := planCatalog[tier]; ok {
		return limits
	}
	return planCatalog[models.TierFree]
}

// PlanLimitService evaluates current usage against an organization's plan
type PlanLimitService struct {
	usageService *UsageService
	orgRepo      *repo.OrganizationRepository
}

// NewPlanLimitService creates a new plan limit service
func NewPlanLimitService(usageService *UsageService, orgRepo *repo.OrganizationRepository) *PlanLimitService {
	return &PlanLimitService{
		usageService: usageService,
		orgRepo:      orgRepo,
	}
}

// evaluate compares a current counter against its plan limit. A resource is
// exceeded only when current is strictly greater than the limit; sitting
// exactly at the limit is still within plan.
func evaluate(current, limit int) models.ResourceUsage {
	usage := models.ResourceUsage{
		Current: current,
		Limit:   limit,
	}
	if limit == models.Unlimited {
		usage.Unlimited = true
		return usage
	}
	usage.Exceeded = current > limit
	if limit > 0 {
		usage.Percentage = float64(current) / float64(limit) * 100
	} else if current > 0 {
		usage.Percentage = 100
	}
	return usage
}

// CheckUsageLimits builds the full usage-versus-plan report for an
// organization's current period
func (s *PlanLimitService) CheckUsageLimits(orgID uuid.UUID) (*models.UsageLimitReport, error) {
	org, err := s.orgRepo.GetByID(orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	snapshot, err := s.usageService.GetCurrentUsage(orgID)
	if err != nil {
		return nil, err
	}

	limits := LimitsFor(org.Tier)
	return &models.UsageLimitReport{
		Tier:          org.Tier,
		Period:        period.Current(),
		Chatbots:      evaluate(snapshot.Chatbots, limits.MaxChatbots),
		Conversations: evaluate(snapshot.Conversations, limits.MaxConversationsPerPeriod),
		APICalls:      evaluate(snapshot.APICalls, limits.MaxAPICallsPerPeriod),
	}, nil
}

// CheckLimit decides whether one more unit of the given resource fits the
// organization's plan. The denial reason names the plan and suggests an
// upgrade.
func (s *PlanLimitService) CheckLimit(orgID uuid.UUID, resource Resource) (*models.LimitDecision, error) {
	report, err := s.CheckUsageLimits(orgID)
	if err != nil {
		return nil, err
	}

	limits := LimitsFor(report.Tier)
	decision := &models.LimitDecision{
		Allowed: true,
		Usage:   report,
		Limits:  limits,
	}

	switch resource {
	case ResourceChatbot:
		// The next chatbot would push the count past the cap, so deny at
		// current >= limit rather than current > limit.
		if !report.Chatbots.Unlimited && report.Chatbots.Current >= report.Chatbots.Limit {
			decision.Allowed = false
			decision.Reason = fmt.Sprintf(
				"Chatbot limit reached: your %s plan allows %d chatbots and you have %d. Upgrade your plan to add more.",
				report.Tier, report.Chatbots.Limit, report.Chatbots.Current)
		}
	case ResourceConversation:
		if !report.Conversations.Unlimited && report.Conversations.Current >= report.Conversations.Limit {
			decision.Allowed = false
			decision.Reason = fmt.Sprintf(
				"Conversation limit reached: your %s plan allows %d conversations per month and you have used %d. Upgrade your plan for a higher limit.",
				report.Tier, report.Conversations.Limit, report.Conversations.Current)
		}
	case ResourceAPICall:
		if !report.APICalls.Unlimited && report.APICalls.Current >= report.APICalls.Limit {
			decision.Allowed = false
			decision.Reason = fmt.Sprintf(
				"API call limit reached: your %s plan allows %d API calls per month and you have used %d. Upgrade your plan for a higher limit.",
				report.Tier, report.APICalls.Limit, report.APICalls.Current)
		}
	default:
		return nil, fmt.Errorf("unknown resource type: %s", resource)
	}

	return decision, nil
}
