package repo

import (
	"botbase/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatbotRepository handles chatbot data access
type ChatbotRepository struct {
	db *gorm.DB
}

// NewChatbotRepository creates a new chatbot repository
func NewChatbotRepository(db *gorm.DB) *ChatbotRepository {
	return &ChatbotRepository{db: db}
}

// GetByID gets a chatbot by ID (any organization; used by the public widget endpoint)
func (r *ChatbotRepository) GetByID(id uuid.UUID) (*models.Chatbot, error) {
	var chatbot models.Chatbot
	err := r.db.Where("id = ?", id).First(&chatbot).Error
	if err != nil {
		return nil, err
	}
	return &chatbot, nil
}

// GetByIDAndOrg gets a chatbot by ID and organization ID for security
func (r *ChatbotRepository) GetByIDAndOrg(id, orgID uuid.UUID) (*models.Chatbot, error) {
	var chatbot models.Chatbot
	err := r.db.Where("id = ? AND organization_id = ?", id, orgID).First(&chatbot).Error
	if err != nil {
		return nil, err
	}
	return &chatbot, nil
}

// Create creates a new chatbot
func (r *ChatbotRepository) Create(chatbot *models.Chatbot) error {
	return r.db.Create(chatbot).Error
}

// Update updates a chatbot
func (r *ChatbotRepository) Update(chatbot *models.Chatbot) error {
	return r.db.Save(chatbot).Error
}

// Delete deletes a chatbot (soft delete); conversations cascade
func (r *ChatbotRepository) Delete(id, orgID uuid.UUID) error {
	result := r.db.Where("id = ? AND organization_id = ?", id, orgID).Delete(&models.Chatbot{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByOrg lists chatbots for an organization with pagination
func (r *ChatbotRepository) ListByOrg(orgID uuid.UUID, limit, offset int) (models.PaginationResult[models.Chatbot], error) {
	var chatbots []models.Chatbot
	var total int64

	if err := r.db.Model(&models.Chatbot{}).Where("organization_id = ?", orgID).Count(&total).Error; err != nil {
		return models.PaginationResult[models.Chatbot]{}, err
	}

	err := r.db.Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&chatbots).Error
	if err != nil {
		return models.PaginationResult[models.Chatbot]{}, err
	}

	page := 1
	totalPages := 1
	if limit > 0 {
		page = (offset / limit) + 1
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	return models.PaginationResult[models.Chatbot]{
		Data:       chatbots,
		Total:      total,
		Page:       page,
		PerPage:    limit,
		TotalPages: totalPages,
	}, nil
}

// CountByOrg counts live chatbots for an organization
func (r *ChatbotRepository) CountByOrg(orgID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.Chatbot{}).Where("organization_id = ?", orgID).Count(&count).Error
	return count, err
}
