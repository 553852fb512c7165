package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"botbase/internal/repo"
	"botbase/pkg/models"
	"botbase/pkg/period"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConversationEnv(t *testing.T) (*testEnv, *ConversationService) {
	t.Helper()

	env := setupTestEnv(t)
	chatbotRepo := repo.NewChatbotRepository(env.db)
	convRepo := repo.NewConversationRepository(env.db)
	svc := NewConversationService(chatbotRepo, convRepo, env.planLimits, env.usage, nil)
	return env, svc
}

func seedActiveChatbot(t *testing.T, env *testEnv, org *models.Organization) *models.Chatbot {
	t.Helper()

	chatbot := &models.Chatbot{
		BaseOrgModel: models.BaseOrgModel{OrganizationID: org.ID},
		Name:         "Support Bot",
		IsActive:     true,
	}
	require.NoError(t, env.db.Create(chatbot).Error)
	return chatbot
}

func TestHandleInboundMetersAPICalls(t *testing.T) {
	env, svc := newConversationEnv(t)
	org := env.seedOrg(t, models.TierFree)
	chatbot := seedActiveChatbot(t, env, org)

	in := InboundMessage{UserIdentifier: "visitor-1", Platform: models.PlatformWebsite, Content: "hello"}
	result, err := svc.HandleInbound(context.Background(), chatbot.ID, in)
	require.NoError(t, err)
	require.NotNil(t, result.Message)

	// Recording is asynchronous
	assert.Eventually(t, func() bool {
		entry, err := env.usageRepo.GetEntry(org.ID, period.Current())
		return err == nil && entry.Conversations == 1 && entry.Messages == 1 && entry.APICalls == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A follow-up message reuses the conversation but is still an API call
	in.Content = "anyone there?"
	_, err = svc.HandleInbound(context.Background(), chatbot.ID, in)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		entry, err := env.usageRepo.GetEntry(org.ID, period.Current())
		return err == nil && entry.Conversations == 1 && entry.Messages == 2 && entry.APICalls == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandleInboundDeniedAtAPICallCap(t *testing.T) {
	env, svc := newConversationEnv(t)
	org := env.seedOrg(t, models.TierFree)
	chatbot := seedActiveChatbot(t, env, org)

	// Free plan allows 1000 API calls per period
	require.NoError(t, env.usageRepo.RaiseFloor(org.ID, period.Current(), 0, 0))
	require.NoError(t, env.db.Model(&models.UsageLedgerEntry{}).
		Where("organization_id = ?", org.ID).
		Update("api_calls", 1000).Error)

	in := InboundMessage{UserIdentifier: "visitor-1", Platform: models.PlatformWebsite, Content: "hello"}
	_, err := svc.HandleInbound(context.Background(), chatbot.ID, in)

	var limitErr *LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.False(t, limitErr.Decision.Allowed)
	assert.Contains(t, limitErr.Decision.Reason, "API call limit reached")

	// Nothing was stored for the denied call
	var count int64
	require.NoError(t, env.db.Model(&models.Conversation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestHandleInboundDeniedAtConversationCap(t *testing.T) {
	env, svc := newConversationEnv(t)
	org := env.seedOrg(t, models.TierFree)
	chatbot := seedActiveChatbot(t, env, org)

	for i := 0; i < 100; i++ {
		require.NoError(t, env.usageRepo.IncrementConversation(org.ID, 1))
	}

	in := InboundMessage{UserIdentifier: "visitor-1", Platform: models.PlatformWebsite, Content: "hello"}
	_, err := svc.HandleInbound(context.Background(), chatbot.ID, in)

	var limitErr *LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Contains(t, limitErr.Decision.Reason, "Conversation limit reached")
}

func TestHandleInboundInactiveChatbot(t *testing.T) {
	env, svc := newConversationEnv(t)
	org := env.seedOrg(t, models.TierFree)
	chatbot := seedActiveChatbot(t, env, org)
	require.NoError(t, env.db.Model(chatbot).Update("is_active", false).Error)

	in := InboundMessage{UserIdentifier: "visitor-1", Platform: models.PlatformWebsite, Content: "hello"}
	_, err := svc.HandleInbound(context.Background(), chatbot.ID, in)
	assert.True(t, errors.Is(err, ErrChatbotInactive))
}
