package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription tiers. The tier determines which PlanLimits entry applies to
// all limit evaluations for the organization.
const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// ValidTier reports whether s is a known subscription tier
func ValidTier(s string) bool {
	return s == TierFree || s == TierPro || s == TierEnterprise
}

// Organization represents a tenant: the billing and ownership unit
type Organization struct {
	BaseModel
	Name   string `gorm:"not null" json:"name" validate:"required"`
	Tier   string `gorm:"default:'free'" json:"tier"`
	Status string `gorm:"default:'active'" json:"status"`

	// External billing references (Stripe customer/subscription)
	BillingCustomerID     *string `gorm:"index" json:"billing_customer_id,omitempty"`
	BillingSubscriptionID *string `json:"billing_subscription_id,omitempty"`
}

// User represents a dashboard user belonging to an organization.
// System admins have no organization.
type User struct {
	BaseModel
	OrganizationID *uuid.UUID `gorm:"type:uuid;index;constraint:OnDelete:SET NULL" json:"organization_id,omitempty"`
	Email          string     `gorm:"unique;not null" json:"email" validate:"required,email"`
	Password       string     `gorm:"not null" json:"-"`
	Name           string     `gorm:"not null" json:"name" validate:"required"`
	Role           string     `gorm:"not null" json:"role" validate:"required"`
	IsActive       bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at"`
}

// UpdateProfileRequest represents a request to update user profile
type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}
