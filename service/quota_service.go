package service

import (
	"adgate/config"
	"adgate/database"
	"adgate/models"
	"adgate/state"
	"adgate/store"
	"fmt"
	"time"
)

// QuotaService is the quota ledger plus the consumption policy. All debits
// run under the per-(device, app) lock and each debit is a single atomic
// store update, so concurrent consume calls can never both pass the same
// unit of quota.
type QuotaService struct {
	store  store.Store
	locks  *state.KeyedLocks
	apps   *AppService
	events *EventService
}

// NewQuotaService constructs a quota service
func NewQuotaService(st store.Store, locks *state.KeyedLocks, apps *AppService, events *EventService) *QuotaService {
	return &QuotaService{store: st, locks: locks, apps: apps, events: events}
}

func quotaKey(deviceID, appKey string) string {
	return deviceID + "/" + appKey
}

// Ensure creates the quota row for a (device, app) pair if absent
func (s *QuotaService) Ensure(deviceID, appKey string) error {
	return s.withRetry(func() error {
		return s.store.EnsureQuota(deviceID, appKey)
	})
}

// Status returns the current quota view for a (device, app) pair. A missing
// row reads as zeros; the free limit falls back to the registry default for
// unknown apps.
func (s *QuotaService) Status(deviceID, appKey string) (models.QuotaStatus, error) {
	freeLimit, err := s.apps.FreeLimit(appKey)
	if err != nil {
		return models.QuotaStatus{}, err
	}

	record, err := s.store.GetQuota(deviceID, appKey)
	if err != nil {
		return models.QuotaStatus{}, err
	}

	freeUsed, adCredits := 0, 0
	if record != nil {
		freeUsed = record.FreeUsed
		adCredits = record.AdCredits
	}

	freeRemaining := freeLimit - freeUsed
	if freeRemaining < 0 {
		freeRemaining = 0
	}

	return models.QuotaStatus{
		DeviceID:      deviceID,
		AppKey:        appKey,
		FreeLimit:     freeLimit,
		FreeRemaining: freeRemaining,
		AdCredits:     adCredits,
		CanUse:        freeRemaining+adCredits > 0,
	}, nil
}

// AttemptUse spends one unit of quota: free allowance first, then ad
// credits, else refused. Refusal is a normal outcome, not an error.
func (s *QuotaService) AttemptUse(deviceID, appKey string) (bool, models.QuotaStatus, error) {
	unlock := s.locks.Lock(quotaKey(deviceID, appKey))
	defer unlock()

	if err := s.Ensure(deviceID, appKey); err != nil {
		s.events.LogError("quota", "ensure failed", err.Error())
		return false, models.QuotaStatus{}, fmt.Errorf("failed to ensure quota: %w", err)
	}

	freeLimit, err := s.apps.FreeLimit(appKey)
	if err != nil {
		return false, models.QuotaStatus{}, err
	}

	granted := false
	err = s.withRetry(func() error {
		ok, debitErr := s.store.DebitFree(deviceID, appKey, freeLimit)
		if debitErr != nil {
			return debitErr
		}
		if ok {
			granted = true
			return nil
		}

		ok, debitErr = s.store.DebitCredit(deviceID, appKey)
		if debitErr != nil {
			return debitErr
		}
		granted = ok
		return nil
	})
	if err != nil {
		s.events.LogError("quota", "consume failed", err.Error())
		return false, models.QuotaStatus{}, fmt.Errorf("failed to consume quota: %w", err)
	}

	status, err := s.Status(deviceID, appKey)
	if err != nil {
		return granted, models.QuotaStatus{}, err
	}
	return granted, status, nil
}

// withRetry re-runs a whole atomic unit a bounded number of times when the
// storage reports a transient busy/locked condition.
func (s *QuotaService) withRetry(fn func() error) error {
	retries := config.Settings.ConsumeMaxRetries
	if retries < 0 {
		retries = 0
	}

	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
		}
		err = fn()
		if err == nil || !database.IsTransientSQLiteError(err) {
			return err
		}
	}
	return err
}
