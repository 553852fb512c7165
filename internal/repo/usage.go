package repo

import (
	"time"

	"botbase/pkg/models"
	"botbase/pkg/period"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageRepository handles the usage ledger: one counter row per
// (organization, period). All increments are single conditional upserts so
// concurrent first-writers in a period cannot race on row creation.
type UsageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

var ledgerConflict = clause.OnConflict{
	Columns: []clause.Column{{Name: "organization_id"}, {Name: "period"}},
}

// IncrementConversation records one new conversation plus its seed messages
// for the current period
func (r *UsageRepository) IncrementConversation(orgID uuid.UUID, messageCount int) error {
	entry := models.UsageLedgerEntry{
		OrganizationID: orgID,
		Period:         period.Current(),
		Conversations:  1,
		Messages:       messageCount,
	}

	conflict := ledgerConflict
	conflict.DoUpdates = clause.Assignments(map[string]interface{}{
		"conversations": gorm.Expr("conversations + 1"),
		"messages":      gorm.Expr("messages + ?", messageCount),
		"updated_at":    time.Now(),
	})

	return r.db.Clauses(conflict).Create(&entry).Error
}

// IncrementMessages records messages appended to existing conversations
func (r *UsageRepository) IncrementMessages(orgID uuid.UUID, count int) error {
	entry := models.UsageLedgerEntry{
		OrganizationID: orgID,
		Period:         period.Current(),
		Messages:       count,
	}

	conflict := ledgerConflict
	conflict.DoUpdates = clause.Assignments(map[string]interface{}{
		"messages":   gorm.Expr("messages + ?", count),
		"updated_at": time.Now(),
	})

	return r.db.Clauses(conflict).Create(&entry).Error
}

// IncrementAPICall records one metered API call for the current period
func (r *UsageRepository) IncrementAPICall(orgID uuid.UUID) error {
	entry := models.UsageLedgerEntry{
		OrganizationID: orgID,
		Period:         period.Current(),
		APICalls:       1,
	}

	conflict := ledgerConflict
	conflict.DoUpdates = clause.Assignments(map[string]interface{}{
		"api_calls":  gorm.Expr("api_calls + 1"),
		"updated_at": time.Now(),
	})

	return r.db.Clauses(conflict).Create(&entry).Error
}

// GetEntry returns the ledger entry for (org, period). A period with no row
// is a zero-valued entry, not an error.
func (r *UsageRepository) GetEntry(orgID uuid.UUID, periodKey string) (*models.UsageLedgerEntry, error) {
	var entry models.UsageLedgerEntry
	err := r.db.Where("organization_id = ? AND period = ?", orgID, periodKey).First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return &models.UsageLedgerEntry{OrganizationID: orgID, Period: periodKey}, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetEntries returns the existing ledger rows for the given period keys,
// keyed by period. Missing periods are simply absent from the map.
func (r *UsageRepository) GetEntries(orgID uuid.UUID, periodKeys []string) (map[string]models.UsageLedgerEntry, error) {
	var entries []models.UsageLedgerEntry
	err := r.db.Where("organization_id = ? AND period IN ?", orgID, periodKeys).Find(&entries).Error
	if err != nil {
		return nil, err
	}

	byPeriod := make(map[string]models.UsageLedgerEntry, len(entries))
	for _, e := range entries {
		byPeriod[e.Period] = e
	}
	return byPeriod, nil
}

// Reset zeroes the counts for (org, period) in place. The row is kept so the
// period remains visible in history. No-op if the row does not exist.
func (r *UsageRepository) Reset(orgID uuid.UUID, periodKey string) error {
	return r.db.Model(&models.UsageLedgerEntry{}).
		Where("organization_id = ? AND period = ?", orgID, periodKey).
		Updates(map[string]interface{}{
			"conversations": 0,
			"messages":      0,
			"api_calls":     0,
		}).Error
}

// RaiseFloor lifts the conversation and message counters for (org, period) up
// to the given recounted values. Counters are only ever raised, never
// lowered, preserving monotonicity; used by the reconciler to repair
// best-effort undercounting.
func (r *UsageRepository) RaiseFloor(orgID uuid.UUID, periodKey string, conversations, messages int) error {
	entry := models.UsageLedgerEntry{
		OrganizationID: orgID,
		Period:         periodKey,
		Conversations:  conversations,
		Messages:       messages,
	}

	conflict := ledgerConflict
	conflict.DoUpdates = clause.Assignments(map[string]interface{}{
		"conversations": gorm.Expr("CASE WHEN conversations < ? THEN ? ELSE conversations END", conversations, conversations),
		"messages":      gorm.Expr("CASE WHEN messages < ? THEN ? ELSE messages END", messages, messages),
		"updated_at":    time.Now(),
	})

	return r.db.Clauses(conflict).Create(&entry).Error
}
