package store

import (
	"adgate/models"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on a GORM SQLite handle. Atomic-update methods
// are single guarded UPDATE statements (or one transaction where two tables
// are involved), so the check and the write can never be separated by a
// concurrent writer.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a store over an initialized database handle
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ListApps() ([]models.AppSetting, error) {
	var apps []models.AppSetting
	if err := s.db.Order("category, app_key").Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	return apps, nil
}

func (s *GormStore) GetApp(appKey string) (*models.AppSetting, error) {
	var app models.AppSetting
	if err := s.db.First(&app, "app_key = ?", appKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get app: %w", err)
	}
	return &app, nil
}

func (s *GormStore) PatchApp(appKey string, freeLimit int, enabled bool) (bool, error) {
	res := s.db.Model(&models.AppSetting{}).Where("app_key = ?", appKey).
		Updates(map[string]interface{}{"free_limit": freeLimit, "enabled": enabled})
	if res.Error != nil {
		return false, fmt.Errorf("failed to patch app: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) EnsureQuota(deviceID, appKey string) error {
	record := models.QuotaRecord{
		DeviceID:  deviceID,
		AppKey:    appKey,
		UpdatedAt: time.Now().UTC(),
	}
	// ON CONFLICT DO NOTHING keeps concurrent first-touches from clobbering
	// an existing row's counters.
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to ensure quota record: %w", err)
	}
	return nil
}

func (s *GormStore) GetQuota(deviceID, appKey string) (*models.QuotaRecord, error) {
	var record models.QuotaRecord
	err := s.db.First(&record, "device_id = ? AND app_key = ?", deviceID, appKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quota record: %w", err)
	}
	return &record, nil
}

func (s *GormStore) DebitFree(deviceID, appKey string, freeLimit int) (bool, error) {
	res := s.db.Model(&models.QuotaRecord{}).
		Where("device_id = ? AND app_key = ? AND free_used < ?", deviceID, appKey, freeLimit).
		Updates(map[string]interface{}{
			"free_used":  gorm.Expr("free_used + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to debit free quota: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) DebitCredit(deviceID, appKey string) (bool, error) {
	res := s.db.Model(&models.QuotaRecord{}).
		Where("device_id = ? AND app_key = ? AND ad_credits > 0", deviceID, appKey).
		Updates(map[string]interface{}{
			"ad_credits": gorm.Expr("ad_credits - 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to debit ad credit: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) CreateTicket(t *models.AdTicket) error {
	if err := s.db.Create(t).Error; err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

func (s *GormStore) GetTicket(ticketID string) (*models.AdTicket, error) {
	var t models.AdTicket
	if err := s.db.First(&t, "ticket_id = ?", ticketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return &t, nil
}

// RedeemTicket commits the used=1 transition and the credit grant as one
// transaction. SQLite makes the pair atomic, so a crash can never leave a
// burned ticket without its credit.
func (s *GormStore) RedeemTicket(ticketID, deviceID, appKey string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AdTicket{}).
			Where("ticket_id = ? AND device_id = ? AND app_key = ? AND used = ?", ticketID, deviceID, appKey, false).
			Update("used", true)
		if res.Error != nil {
			return fmt.Errorf("failed to mark ticket used: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			// Distinguish replay from everything else; a ticket bound to a
			// different device/app reads the same as a missing one.
			var t models.AdTicket
			err := tx.First(&t, "ticket_id = ? AND device_id = ? AND app_key = ?", ticketID, deviceID, appKey).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrTicketNotFound
				}
				return fmt.Errorf("failed to look up ticket: %w", err)
			}
			return ErrTicketUsed
		}

		now := time.Now().UTC()
		record := models.QuotaRecord{DeviceID: deviceID, AppKey: appKey, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
			return fmt.Errorf("failed to ensure quota record: %w", err)
		}

		grant := tx.Model(&models.QuotaRecord{}).
			Where("device_id = ? AND app_key = ?", deviceID, appKey).
			Updates(map[string]interface{}{
				"ad_credits": gorm.Expr("ad_credits + 1"),
				"updated_at": now,
			})
		if grant.Error != nil {
			return fmt.Errorf("failed to grant ad credit: %w", grant.Error)
		}
		if grant.RowsAffected == 0 {
			return errors.New("quota record missing after ensure")
		}
		return nil
	})
}

func (s *GormStore) RecordEvent(e *models.AdEvent, maxRows int) error {
	if err := s.db.Create(e).Error; err != nil {
		return fmt.Errorf("failed to record ad event: %w", err)
	}
	if maxRows > 0 {
		// Prune oldest rows beyond the cap; best effort.
		s.db.Where("id <= (SELECT MAX(id) FROM ad_events) - ?", maxRows).Delete(&models.AdEvent{})
	}
	return nil
}

func (s *GormStore) RecentEvents(limit int) ([]models.AdEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.AdEvent
	if err := s.db.Order("id desc").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list ad events: %w", err)
	}
	return events, nil
}

func (s *GormStore) RecordError(l *models.ErrorLog, maxRows int) error {
	if err := s.db.Create(l).Error; err != nil {
		return fmt.Errorf("failed to record error log: %w", err)
	}
	if maxRows > 0 {
		s.db.Where("id <= (SELECT MAX(id) FROM error_logs) - ?", maxRows).Delete(&models.ErrorLog{})
	}
	return nil
}

func (s *GormStore) RecentErrors(limit int) ([]models.ErrorLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []models.ErrorLog
	if err := s.db.Order("id desc").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list error logs: %w", err)
	}
	return logs, nil
}

func (s *GormStore) ClearErrors() error {
	if err := s.db.Where("1 = 1").Delete(&models.ErrorLog{}).Error; err != nil {
		return fmt.Errorf("failed to clear error logs: %w", err)
	}
	return nil
}
