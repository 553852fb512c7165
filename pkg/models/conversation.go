package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Platforms a conversation can originate from
const (
	PlatformWebsite   = "website"
	PlatformWhatsApp  = "whatsapp"
	PlatformMessenger = "messenger"
	PlatformInstagram = "instagram"
)

// ValidPlatform reports whether s is a known messaging platform
func ValidPlatform(s string) bool {
	switch s {
	case PlatformWebsite, PlatformWhatsApp, PlatformMessenger, PlatformInstagram:
		return true
	}
	return false
}

// Conversation statuses. Transitions are externally driven.
const (
	ConversationActive    = "active"
	ConversationResolved  = "resolved"
	ConversationEscalated = "escalated"
	ConversationAbandoned = "abandoned"
)

// ValidConversationStatus reports whether s is a known conversation status
func ValidConversationStatus(s string) bool {
	switch s {
	case ConversationActive, ConversationResolved, ConversationEscalated, ConversationAbandoned:
		return true
	}
	return false
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ValidRole reports whether s is a known message role
func ValidRole(s string) bool {
	return s == RoleUser || s == RoleAssistant
}

// ConversationContext carries session information supplied by the platform
type ConversationContext struct {
	Location     string            `json:"location,omitempty"`
	Language     string            `json:"language,omitempty"`
	ReferrerPage string            `json:"referrer_page,omitempty"`
	Session      map[string]string `json:"session,omitempty"`
}

// Implement driver.Valuer interface for JSONB
func (c ConversationContext) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *ConversationContext) Scan(value interface{}) error {
	if value == nil {
		*c = ConversationContext{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}

	return json.Unmarshal(bytes, c)
}

// Conversation represents an ordered exchange of messages between one
// platform user and one chatbot. At most one conversation per
// (chatbot, user identifier, platform) is active at a time; the active
// lookup enforces this by convention, picking the most recently started.
type Conversation struct {
	BaseOrgModel
	ChatbotID      uuid.UUID           `gorm:"type:uuid;not null;index:idx_conversations_active_lookup;constraint:OnDelete:CASCADE" json:"chatbot_id"`
	UserIdentifier string              `gorm:"not null;index:idx_conversations_active_lookup" json:"user_identifier" validate:"required"`
	Platform       string              `gorm:"not null;index:idx_conversations_active_lookup" json:"platform" validate:"required"`
	Status         string              `gorm:"default:'active'" json:"status"`
	Context        ConversationContext `gorm:"type:jsonb;default:'{}'" json:"context"`
	StartedAt      time.Time           `gorm:"not null" json:"started_at"`
	LastMessageAt  time.Time           `gorm:"not null" json:"last_message_at"`

	// LastSequence is the sequence number of the most recently appended
	// message. Claimed with an atomic increment on append, so message order
	// is authoritative even when timestamps collide.
	LastSequence int `gorm:"default:0" json:"last_sequence"`

	Rating   *int   `gorm:"check:rating >= 1 AND rating <= 5" json:"rating,omitempty"`
	Feedback string `gorm:"type:text" json:"feedback,omitempty"`

	// Relations
	Chatbot  *Chatbot  `gorm:"foreignKey:ChatbotID" json:"chatbot,omitempty"`
	Messages []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

// MessageMetadata carries generation details for assistant messages
type MessageMetadata struct {
	Model          string   `json:"model,omitempty"`
	ResponseTimeMs int64    `json:"response_time_ms,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
}

func (m MessageMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *MessageMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = MessageMetadata{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}

	return json.Unmarshal(bytes, m)
}

// Message represents a single message in a conversation. Immutable once
// appended; Sequence is the authoritative display order.
type Message struct {
	BaseOrgModel
	ConversationID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_messages_conversation_seq;constraint:OnDelete:CASCADE" json:"conversation_id"`
	Sequence       int              `gorm:"not null;uniqueIndex:idx_messages_conversation_seq" json:"sequence"`
	Role           string           `gorm:"not null" json:"role"`
	Content        string           `gorm:"type:text;not null" json:"content"`
	Metadata       *MessageMetadata `gorm:"type:jsonb" json:"metadata,omitempty"`

	// Relations
	Conversation *Conversation `gorm:"foreignKey:ConversationID" json:"conversation,omitempty"`
}
