package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"botbase/internal/auth"
	"botbase/internal/repo"
	"botbase/internal/services"
	"botbase/pkg/models"

	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func setupBillingTest(t *testing.T) (*echo.Echo, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.GetAllModels()...))

	orgRepo := repo.NewOrganizationRepository(db)
	userRepo := repo.NewUserRepository(db)
	orgService := services.NewOrganizationService(orgRepo, userRepo, auth.NewService(userRepo))
	handler := NewBillingHandler(orgService)

	srv := echo.New()
	srv.Validator = &testValidator{validator: validator.New()}
	srv.POST("/webhooks/billing", handler.HandleWebhook)
	return srv, db
}

func postWebhook(srv *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestBillingWebhookUpgradesTier(t *testing.T) {
	srv, db := setupBillingTest(t)

	org := &models.Organization{Name: "Acme", Tier: models.TierFree}
	require.NoError(t, db.Create(org).Error)

	body := fmt.Sprintf(`{"organization_id":%q,"tier":"pro","event_id":"evt_123"}`, org.ID)
	rec := postWebhook(srv, body)
	assert.Equal(t, http.StatusOK, rec.Code)

	var updated models.Organization
	require.NoError(t, db.First(&updated, "id = ?", org.ID).Error)
	assert.Equal(t, models.TierPro, updated.Tier)
}

func TestBillingWebhookRejectsUnknownTier(t *testing.T) {
	srv, db := setupBillingTest(t)

	org := &models.Organization{Name: "Acme", Tier: models.TierFree}
	require.NoError(t, db.Create(org).Error)

	body := fmt.Sprintf(`{"organization_id":%q,"tier":"platinum"}`, org.ID)
	rec := postWebhook(srv, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var updated models.Organization
	require.NoError(t, db.First(&updated, "id = ?", org.ID).Error)
	assert.Equal(t, models.TierFree, updated.Tier)
}

func TestBillingWebhookUnknownOrganization(t *testing.T) {
	srv, _ := setupBillingTest(t)

	body := fmt.Sprintf(`{"organization_id":%q,"tier":"pro"}`, uuid.New())
	rec := postWebhook(srv, body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBillingWebhookRequiresFields(t *testing.T) {
	srv, _ := setupBillingTest(t)

	rec := postWebhook(srv, `{"event_id":"evt_123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
