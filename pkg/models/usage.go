package models

import (
	"github.com/google/uuid"
)

// Unlimited is the sentinel limit for unmetered resources
const Unlimited = -1

// PlanLimits is the set of numeric limits attached to a subscription tier.
// Static configuration, not persisted state; the catalog lives in the plan
// limit service.
type PlanLimits struct {
	MaxChatbots               int `json:"max_chatbots"`
	MaxConversationsPerPeriod int `json:"max_conversations_per_period"`
	MaxAPICallsPerPeriod      int `json:"max_api_calls_per_period"`
}

// UsageLedgerEntry is the per-(organization, period) counter row. Counts are
// monotonically non-decreasing within a period; the only decrement is an
// explicit administrative reset, which zeroes counts without deleting the row.
type UsageLedgerEntry struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_org_period;constraint:OnDelete:RESTRICT" json:"organization_id"`
	Period         string    `gorm:"size:7;not null;uniqueIndex:idx_usage_org_period" json:"period"`

	Conversations int `gorm:"default:0" json:"conversations"`
	Messages      int `gorm:"default:0" json:"messages"`
	APICalls      int `gorm:"default:0" json:"api_calls"`
}

// UsageSnapshot is the point-in-time view of an organization's consumption:
// the current period's ledger counts plus a live chatbot count.
type UsageSnapshot struct {
	Chatbots      int    `json:"chatbots"`
	Conversations int    `json:"conversations"`
	Messages      int    `json:"messages"`
	APICalls      int    `json:"api_calls"`
	Period        string `json:"period"`
}

// ResourceUsage is the evaluation of one metered resource against its limit.
// Exceeded is strict: usage equal to the limit is not exceeding.
type ResourceUsage struct {
	Current    int     `json:"current"`
	Limit      int     `json:"limit"`
	Exceeded   bool    `json:"exceeded"`
	Percentage float64 `json:"percentage"`
	Unlimited  bool    `json:"unlimited"`
}

// UsageLimitReport is the full limit evaluation for an organization
type UsageLimitReport struct {
	Tier          string        `json:"tier"`
	Period        string        `json:"period"`
	Chatbots      ResourceUsage `json:"chatbots"`
	Conversations ResourceUsage `json:"conversations"`
	APICalls      ResourceUsage `json:"api_calls"`
}

// LimitDecision is an allow/deny decision for one resource, with the usage
// report the client needs to render an upgrade prompt
type LimitDecision struct {
	Allowed bool              `json:"allowed"`
	Reason  string            `json:"reason,omitempty"`
	Usage   *UsageLimitReport `json:"usage,omitempty"`
	Limits  PlanLimits        `json:"limits"`
}
