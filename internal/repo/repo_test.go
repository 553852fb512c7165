package repo

import (
	"fmt"
	"testing"

	"botbase/pkg/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB opens an in-memory database named after the test so parallel
// packages never share state
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(models.GetAllModels()...))
	return db
}

// seedOrg creates an organization on the given tier
func seedOrg(t *testing.T, db *gorm.DB, tier string) *models.Organization {
	t.Helper()

	org := &models.Organization{Name: "Acme", Tier: tier}
	require.NoError(t, db.Create(org).Error)
	return org
}

// seedChatbot creates an active chatbot for the organization
func seedChatbot(t *testing.T, db *gorm.DB, org *models.Organization) *models.Chatbot {
	t.Helper()

	chatbot := &models.Chatbot{
		BaseOrgModel: models.BaseOrgModel{OrganizationID: org.ID},
		Name:         "Support Bot",
		IsActive:     true,
	}
	require.NoError(t, db.Create(chatbot).Error)
	return chatbot
}
