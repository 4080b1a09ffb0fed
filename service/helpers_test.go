package service

import (
	"adgate/config"
	"adgate/database"
	"adgate/state"
	"adgate/store"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServices(t *testing.T) (*Services, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("underlying db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	st := store.NewGormStore(db)
	eventSvc := NewEventService(st)
	appSvc := NewAppService(st)
	quotaSvc := NewQuotaService(st, state.NewKeyedLocks(), appSvc, eventSvc)
	ticketSvc := NewTicketService(st, quotaSvc, eventSvc)

	return &Services{
		App:    appSvc,
		Quota:  quotaSvc,
		Ticket: ticketSvc,
		Event:  eventSvc,
	}, db
}

func setSecret(t *testing.T, secret string) {
	t.Helper()
	old := config.Settings.AdUnlockSecret
	t.Cleanup(func() { config.Settings.AdUnlockSecret = old })
	config.Settings.AdUnlockSecret = secret
}
