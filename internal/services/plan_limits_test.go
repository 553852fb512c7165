package services

import (
	"fmt"
	"testing"

	"botbase/internal/repo"
	"botbase/pkg/models"
	"botbase/pkg/period"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db         *gorm.DB
	orgRepo    *repo.OrganizationRepository
	usageRepo  *repo.UsageRepository
	usage      *UsageService
	planLimits *PlanLimitService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.GetAllModels()...))

	orgRepo := repo.NewOrganizationRepository(db)
	usageRepo := repo.NewUsageRepository(db)
	chatbotRepo := repo.NewChatbotRepository(db)
	usage := NewUsageService(usageRepo, chatbotRepo, orgRepo)

	return &testEnv{
		db:         db,
		orgRepo:    orgRepo,
		usageRepo:  usageRepo,
		usage:      usage,
		planLimits: NewPlanLimitService(usage, orgRepo),
	}
}

func (e *testEnv) seedOrg(t *testing.T, tier string) *models.Organization {
	t.Helper()

	org := &models.Organization{Name: "Acme", Tier: tier}
	require.NoError(t, e.orgRepo.Create(org))
	return org
}

func (e *testEnv) seedChatbots(t *testing.T, org *models.Organization, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		chatbot := &models.Chatbot{
			BaseOrgModel: models.BaseOrgModel{OrganizationID: org.ID},
			Name:         fmt.Sprintf("bot-%d", i),
			IsActive:     true,
		}
		require.NoError(t, e.db.Create(chatbot).Error)
	}
}

func TestLimitsForUnknownTierFallsBackToFree(t *testing.T) {
	assert.Equal(t, planCatalog[models.TierFree], LimitsFor("platinum"))
	assert.Equal(t, planCatalog[models.TierPro], LimitsFor(models.TierPro))
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		current    int
		limit      int
		exceeded   bool
		unlimited  bool
		percentage float64
	}{
		{"zero usage", 0, 100, false, false, 0},
		{"below limit", 50, 100, false, false, 50},
		{"exactly at limit", 100, 100, false, false, 100},
		{"one over limit", 101, 100, true, false, 101},
		{"unlimited", 1000000, models.Unlimited, false, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usage := evaluate(tt.current, tt.limit)
			assert.Equal(t, tt.current, usage.Current)
			assert.Equal(t, tt.limit, usage.Limit)
			assert.Equal(t, tt.exceeded, usage.Exceeded)
			assert.Equal(t, tt.unlimited, usage.Unlimited)
			assert.InDelta(t, tt.percentage, usage.Percentage, 0.001)
		})
	}
}

func TestCheckUsageLimitsFreeTier(t *testing.T) {
	env := setupTestEnv(t)
	org := env.seedOrg(t, models.TierFree)
	env.seedChatbots(t, org, 2)

	for i := 0; i < 30; i++ {
		require.NoError(t, env.usageRepo.IncrementConversation(org.ID, 1))
	}

	report, err := env.planLimits.CheckUsageLimits(org.ID)
	require.NoError(t, err)

	assert.Equal(t, models.TierFree, report.Tier)
	assert.Equal(t, period.Current(), report.Period)

	assert.Equal(t, 2, report.Chatbots.Current)
	assert.Equal(t, 2, report.Chatbots.Limit)
	assert.False(t, report.Chatbots.Exceeded)

	assert.Equal(t, 30, report.Conversations.Current)
	assert.Equal(t, 100, report.Conversations.Limit)
	assert.InDelta(t, 30.0, report.Conversations.Percentage, 0.001)

	assert.Equal(t, 0, report.APICalls.Current)
}

func TestCheckUsageLimitsEnterpriseIsUnlimited(t *testing.T) {
	env := setupTestEnv(t)
	org := env.seedOrg(t, models.TierEnterprise)

	for i := 0; i < 500; i++ {
		require.NoError(t, env.usageRepo.IncrementAPICall(org.ID))
	}

	report, err := env.planLimits.CheckUsageLimits(org.ID)
	require.NoError(t, err)

	assert.True(t, report.APICalls.Unlimited)
	assert.False(t, report.APICalls.Exceeded)
	assert.Equal(t, 500, report.APICalls.Current)
	assert.Zero(t, report.APICalls.Percentage)
}

func TestCheckLimitDeniesAtTheCap(t *testing.T) {
	env := setupTestEnv(t)
	org := env.seedOrg(t, models.TierFree)
	env.seedChatbots(t, org, 2)

	decision, err := env.planLimits.CheckLimit(org.ID, ResourceChatbot)
	require.NoError(t, err)

	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "Chatbot limit reached")
	assert.Contains(t, decision.Reason, "free")
	require.NotNil(t, decision.Usage)
	assert.Equal(t, 2, decision.Usage.Chatbots.Current)
	assert.Equal(t, 2, decision.Limits.MaxChatbots)
}

func TestCheckLimitAllowsBelowTheCap(t *testing.T) {
	env := setupTestEnv(t)
	org := env.seedOrg(t, models.TierFree)
	env.seedChatbots(t, org, 1)

	decision, err := env.planLimits.CheckLimit(org.ID, ResourceChatbot)
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reason)
}

func TestCheckLimitConversationGate(t *testing.T) {
	env := setupTestEnv(t)
	org := env.seedOrg(t, models.TierFree)

	for i := 0; i < 100; i++ {
		require.NoError(t, env.usageRepo.IncrementConversation(org.ID, 1))
	}

	decision, err := env.planLimits.CheckLimit(org.ID, ResourceConversation)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "Conversation limit reached")

	// Enterprise never hits the gate
	enterprise := env.seedOrg(t, models.TierEnterprise)
	for i := 0; i < 200; i++ {
		require.NoError(t, env.usageRepo.IncrementConversation(enterprise.ID, 1))
	}
	decision, err = env.planLimits.CheckLimit(enterprise.ID, ResourceConversation)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckLimitUnknownOrganization(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.planLimits.CheckLimit(uuid.New(), ResourceAPICall)
	assert.Error(t, err)
}
