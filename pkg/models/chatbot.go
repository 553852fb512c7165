package models

// Chatbot represents a deployable AI chatbot owned by an organization
type Chatbot struct {
	BaseOrgModel
	Name           string `gorm:"not null" json:"name" validate:"required"`
	Description    string `gorm:"type:text" json:"description"`
	WelcomeMessage string `gorm:"type:text" json:"welcome_message"`
	SystemPrompt   string `gorm:"type:text" json:"system_prompt"`
	Model          string `gorm:"default:'gpt-4o-mini'" json:"model"`
	IsActive       bool   `gorm:"default:true" json:"is_active"`
}
