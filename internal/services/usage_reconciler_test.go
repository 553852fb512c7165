package services

import (
	"context"
	"testing"

	"botbase/internal/repo"
	"botbase/pkg/models"
	"botbase/pkg/period"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileAllRepairsUndercount(t *testing.T) {
	env := setupTestEnv(t)
	org := env.seedOrg(t, models.TierFree)

	chatbot := &models.Chatbot{
		BaseOrgModel: models.BaseOrgModel{OrganizationID: org.ID},
		Name:         "Support Bot",
		IsActive:     true,
	}
	require.NoError(t, env.db.Create(chatbot).Error)

	convRepo := repo.NewConversationRepository(env.db)
	for i := 0; i < 2; i++ {
		conv := &models.Conversation{
			BaseOrgModel:   models.BaseOrgModel{OrganizationID: org.ID},
			ChatbotID:      chatbot.ID,
			UserIdentifier: "visitor",
			Platform:       models.PlatformWebsite,
		}
		_, err := convRepo.CreateWithSeed(conv, "hello")
		require.NoError(t, err)
		_, err = convRepo.AddMessage(conv.ID, models.RoleAssistant, "hi", nil)
		require.NoError(t, err)
	}

	// The ledger missed every event
	reconciler := NewUsageReconciler(env.orgRepo, convRepo, env.usageRepo)
	reconciler.ReconcileAll(context.Background())

	entry, err := env.usageRepo.GetEntry(org.ID, period.Current())
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Conversations)
	assert.Equal(t, 4, entry.Messages)

	// A second pass changes nothing
	reconciler.ReconcileAll(context.Background())
	entry, err = env.usageRepo.GetEntry(org.ID, period.Current())
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Conversations)
	assert.Equal(t, 4, entry.Messages)
}

func TestReconcilerStartStop(t *testing.T) {
	env := setupTestEnv(t)
	reconciler := NewUsageReconciler(env.orgRepo, repo.NewConversationRepository(env.db), env.usageRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconciler.Start(ctx)
	status := reconciler.Status()
	assert.Equal(t, true, status["is_running"])

	reconciler.Stop()
	status = reconciler.Status()
	assert.Equal(t, false, status["is_running"])
}
