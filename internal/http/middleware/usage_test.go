package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"botbase/internal/repo"
	"botbase/internal/services"
	"botbase/pkg/models"
	"botbase/pkg/period"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type usageTestEnv struct {
	db        *gorm.DB
	usageRepo *repo.UsageRepository
	usage     *services.UsageService
	limits    *services.PlanLimitService
}

func setupUsageTest(t *testing.T) *usageTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.GetAllModels()...))

	orgRepo := repo.NewOrganizationRepository(db)
	usageRepo := repo.NewUsageRepository(db)
	chatbotRepo := repo.NewChatbotRepository(db)
	usage := services.NewUsageService(usageRepo, chatbotRepo, orgRepo)

	return &usageTestEnv{
		db:        db,
		usageRepo: usageRepo,
		usage:     usage,
		limits:    services.NewPlanLimitService(usage, orgRepo),
	}
}

func (e *usageTestEnv) newServer(resource services.Resource) *echo.Echo {
	srv := echo.New()
	srv.GET("/metered", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, OrganizationResolver(), TrackUsage(resource, e.limits, e.usage))
	return srv
}

func (e *usageTestEnv) request(srv *echo.Echo, orgID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/metered", nil)
	if orgID != "" {
		req.Header.Set("X-Organization-ID", orgID)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestTrackUsageRequiresOrganization(t *testing.T) {
	env := setupUsageTest(t)
	srv := env.newServer(services.ResourceAPICall)

	rec := env.request(srv, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrackUsageRecordsAfterSuccess(t *testing.T) {
	env := setupUsageTest(t)
	org := &models.Organization{Name: "Acme", Tier: models.TierFree}
	require.NoError(t, env.db.Create(org).Error)

	srv := env.newServer(services.ResourceAPICall)

	rec := env.request(srv, org.ID.String())
	assert.Equal(t, http.StatusOK, rec.Code)

	// Recording happens in a goroutine after the response
	assert.Eventually(t, func() bool {
		entry, err := env.usageRepo.GetEntry(org.ID, period.Current())
		return err == nil && entry.APICalls == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTrackUsageDeniesOverLimit(t *testing.T) {
	env := setupUsageTest(t)
	org := &models.Organization{Name: "Acme", Tier: models.TierFree}
	require.NoError(t, env.db.Create(org).Error)

	// Free plan allows 1000 API calls per period
	require.NoError(t, env.usageRepo.RaiseFloor(org.ID, period.Current(), 0, 0))
	require.NoError(t, env.db.Model(&models.UsageLedgerEntry{}).
		Where("organization_id = ?", org.ID).
		Update("api_calls", 1000).Error)

	srv := env.newServer(services.ResourceAPICall)

	rec := env.request(srv, org.ID.String())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "plan_limit_exceeded")
	assert.Contains(t, rec.Body.String(), "upgrade_url")

	// The denied request must not bump the counter
	entry, err := env.usageRepo.GetEntry(org.ID, period.Current())
	require.NoError(t, err)
	assert.Equal(t, 1000, entry.APICalls)
}

func TestTrackUsageUnlimitedTierNeverDenies(t *testing.T) {
	env := setupUsageTest(t)
	org := &models.Organization{Name: "Mega", Tier: models.TierEnterprise}
	require.NoError(t, env.db.Create(org).Error)

	srv := env.newServer(services.ResourceAPICall)

	for i := 0; i < 5; i++ {
		rec := env.request(srv, org.ID.String())
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
