package services

import (
	"context"
	"sync"
	"time"

	"botbase/internal/repo"
	"botbase/pkg/models"
	"botbase/pkg/period"

	"github.com/rs/zerolog/log"
)

// UsageReconciler periodically recounts conversations and messages from their
// source tables and raises the ledger counters to match. Recording after a
// request is best-effort, so the ledger can undercount; the reconciler repairs
// that without ever lowering a counter.
type UsageReconciler struct {
	orgRepo          *repo.OrganizationRepository
	conversationRepo *repo.ConversationRepository
	usageRepo        *repo.UsageRepository
	checkInterval    time.Duration
	mutex            sync.RWMutex
	isRunning        bool
	stopChan         chan struct{}
}

// NewUsageReconciler creates a new usage reconciler
func NewUsageReconciler(orgRepo *repo.OrganizationRepository, conversationRepo *repo.ConversationRepository, usageRepo *repo.UsageRepository) *UsageReconciler {
	return &UsageReconciler{
		orgRepo:          orgRepo,
		conversationRepo: conversationRepo,
		usageRepo:        usageRepo,
		checkInterval:    5 * time.Minute,
		stopChan:         make(chan struct{}),
	}
}

// Start begins the reconciliation loop. The first pass runs immediately.
func (ur *UsageReconciler) Start(ctx context.Context) {
	ur.mutex.Lock()
	if ur.isRunning {
		ur.mutex.Unlock()
		return
	}
	ur.isRunning = true
	ur.mutex.Unlock()

	log.Info().Dur("interval", ur.checkInterval).Msg("Starting usage reconciler")

	go func() {
		ticker := time.NewTicker(ur.checkInterval)
		defer ticker.Stop()

		ur.ReconcileAll(ctx)

		for {
			select {
			case <-ticker.C:
				ur.ReconcileAll(ctx)
			case <-ur.stopChan:
				log.Info().Msg("Stopping usage reconciler")
				return
			case <-ctx.Done():
				log.Info().Msg("Context cancelled, stopping usage reconciler")
				return
			}
		}
	}()
}

// Stop stops the reconciliation loop
func (ur *UsageReconciler) Stop() {
	ur.mutex.Lock()
	defer ur.mutex.Unlock()

	if !ur.isRunning {
		return
	}

	ur.isRunning = false
	close(ur.stopChan)
}

// ReconcileAll reconciles the current period for every organization
func (ur *UsageReconciler) ReconcileAll(ctx context.Context) {
	orgs, err := ur.orgRepo.ListAll()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list organizations for reconciliation")
		return
	}

	for _, org := range orgs {
		select {
		case <-ctx.Done():
			return
		default:
			if err := ur.reconcileOrg(org); err != nil {
				log.Error().Err(err).Str("organization_id", org.ID.String()).Msg("Failed to reconcile usage")
			}
		}
	}
}

// reconcileOrg recounts the current period for one organization and lifts the
// ledger up to the recounted values
func (ur *UsageReconciler) reconcileOrg(org models.Organization) error {
	periodKey := period.Current()
	start, err := period.Parse(periodKey)
	if err != nil {
		return err
	}
	end := start.AddDate(0, 1, 0)

	conversations, err := ur.conversationRepo.CountCreatedBetween(org.ID, start, end)
	if err != nil {
		return err
	}

	messages, err := ur.conversationRepo.CountMessagesBetween(org.ID, start, end)
	if err != nil {
		return err
	}

	return ur.usageRepo.RaiseFloor(org.ID, periodKey, int(conversations), int(messages))
}

// Status reports whether the reconciler is running and at what interval
func (ur *UsageReconciler) Status() map[string]interface{} {
	ur.mutex.RLock()
	defer ur.mutex.RUnlock()

	return map[string]interface{}{
		"is_running":     ur.isRunning,
		"check_interval": ur.checkInterval.String(),
	}
}
