package repo

import (
	"time"

	"botbase/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationRepository handles conversation and message data access.
// Message appends go through an atomic sequence claim on the conversation
// row, so concurrent senders can never lose each other's messages.
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateWithSeed creates a conversation together with its first user message
// in one transaction. The seed message gets sequence 1 and both timestamps
// are aligned.
func (r *ConversationRepository) CreateWithSeed(conv *models.Conversation, content string) (*models.Message, error) {
	now := time.Now()
	conv.Status = models.ConversationActive
	conv.StartedAt = now
	conv.LastMessageAt = now
	conv.LastSequence = 1

	seed := &models.Message{
		BaseOrgModel: models.BaseOrgModel{
			OrganizationID: conv.OrganizationID,
			CreatedAt:      now,
		},
		Sequence: 1,
		Role:     models.RoleUser,
		Content:  content,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		seed.ConversationID = conv.ID
		return tx.Create(seed).Error
	})
	if err != nil {
		return nil, err
	}
	return seed, nil
}

// AddMessage appends a message to a conversation. The sequence number is
// claimed with a single increment on the conversation row; the row lock the
// update takes serializes concurrent appends to the same conversation.
// Returns gorm.ErrRecordNotFound if the conversation does not exist.
// Appends are accepted regardless of conversation status, so a resolved
// conversation can be reopened by a late message.
func (r *ConversationRepository) AddMessage(conversationID uuid.UUID, role, content string, metadata *models.MessageMetadata) (*models.Message, error) {
	var msg *models.Message

	err := r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		result := tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Updates(map[string]interface{}{
				"last_sequence":   gorm.Expr("last_sequence + 1"),
				"last_message_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		// The update above holds the row lock, so this read sees the
		// sequence we just claimed.
		var conv models.Conversation
		if err := tx.First(&conv, "id = ?", conversationID).Error; err != nil {
			return err
		}

		msg = &models.Message{
			BaseOrgModel: models.BaseOrgModel{
				OrganizationID: conv.OrganizationID,
				CreatedAt:      now,
			},
			ConversationID: conversationID,
			Sequence:       conv.LastSequence,
			Role:           role,
			Content:        content,
			Metadata:       metadata,
		}
		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetByID gets a conversation with its messages in sequence order
func (r *ConversationRepository) GetByID(id, orgID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence ASC")
	}).Where("id = ? AND organization_id = ?", id, orgID).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetActive returns the active conversation for (chatbot, user, platform), or
// nil when none exists. Uniqueness is by convention only, so ties are broken
// deterministically in favor of the most recently started conversation.
func (r *ConversationRepository) GetActive(chatbotID uuid.UUID, userIdentifier, platform string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.Where(
		"chatbot_id = ? AND user_identifier = ? AND platform = ? AND status = ?",
		chatbotID, userIdentifier, platform, models.ConversationActive,
	).Order("started_at DESC, id DESC").First(&conv).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListByOrg lists conversations for an organization with pagination, most
// recently active first
func (r *ConversationRepository) ListByOrg(orgID uuid.UUID, limit, offset int) (models.PaginationResult[models.Conversation], error) {
	var conversations []models.Conversation
	var total int64

	if err := r.db.Model(&models.Conversation{}).Where("organization_id = ?", orgID).Count(&total).Error; err != nil {
		return models.PaginationResult[models.Conversation]{}, err
	}

	err := r.db.Where("organization_id = ?", orgID).
		Order("last_message_at DESC").
		Limit(limit).Offset(offset).
		Find(&conversations).Error
	if err != nil {
		return models.PaginationResult[models.Conversation]{}, err
	}

	page := 1
	totalPages := 1
	if limit > 0 {
		page = (offset / limit) + 1
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	return models.PaginationResult[models.Conversation]{
		Data:       conversations,
		Total:      total,
		Page:       page,
		PerPage:    limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateStatus applies an externally driven status transition
func (r *ConversationRepository) UpdateStatus(id, orgID uuid.UUID, status string) error {
	result := r.db.Model(&models.Conversation{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Rate records a satisfaction rating and optional feedback text
func (r *ConversationRepository) Rate(id, orgID uuid.UUID, rating int, feedback string) error {
	result := r.db.Model(&models.Conversation{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Updates(map[string]interface{}{
			"rating":   rating,
			"feedback": feedback,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountCreatedBetween counts conversations an organization started in a time
// window (used by the usage reconciler)
func (r *ConversationRepository) CountCreatedBetween(orgID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Conversation{}).
		Where("organization_id = ? AND started_at >= ? AND started_at < ?", orgID, from, to).
		Count(&count).Error
	return count, err
}

// CountMessagesBetween counts messages created for an organization in a time
// window (used by the usage reconciler)
func (r *ConversationRepository) CountMessagesBetween(orgID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("organization_id = ? AND created_at >= ? AND created_at < ?", orgID, from, to).
		Count(&count).Error
	return count, err
}
