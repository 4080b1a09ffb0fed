package store

import (
	"adgate/database"
	"adgate/models"
	"errors"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) (*GormStore, *gorm.DB) {
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
	// A single connection keeps the in-memory database shared and serializes
	// concurrent writers the way the production pool does.
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewGormStore(db), db
}

func TestEnsureQuota_Idempotent(t *testing.T) {
	st, _ := newTestStore(t)

	if err := st.EnsureQuota("dev1", "chuangye"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	ok, err := st.DebitFree("dev1", "chuangye", 1)
	if err != nil || !ok {
		t.Fatalf("debit: ok=%v err=%v", ok, err)
	}

	// A second ensure must not reset the counters
	if err := st.EnsureQuota("dev1", "chuangye"); err != nil {
		t.Fatalf("re-ensure: %v", err)
	}

	record, err := st.GetQuota("dev1", "chuangye")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record == nil || record.FreeUsed != 1 {
		t.Fatalf("expected free_used=1 after re-ensure, got %+v", record)
	}
}

func TestEnsureQuota_ConcurrentFirstTouch(t *testing.T) {
	st, db := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := st.EnsureQuota("dev1", "chuangye"); err != nil {
				t.Errorf("ensure: %v", err)
			}
		}()
	}
	wg.Wait()

	var count int64
	if err := db.Model(&models.QuotaRecord{}).
		Where("device_id = ? AND app_key = ?", "dev1", "chuangye").
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one quota row, got %d", count)
	}
}

func TestDebitFree_StopsAtLimit(t *testing.T) {
	st, _ := newTestStore(t)

	if err := st.EnsureQuota("dev1", "chuangye"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	granted := 0
	for i := 0; i < 5; i++ {
		ok, err := st.DebitFree("dev1", "chuangye", 2)
		if err != nil {
			t.Fatalf("debit: %v", err)
		}
		if ok {
			granted++
		}
	}
	if granted != 2 {
		t.Fatalf("expected 2 free debits with limit 2, got %d", granted)
	}

	record, _ := st.GetQuota("dev1", "chuangye")
	if record.FreeUsed != 2 {
		t.Fatalf("expected free_used=2, got %d", record.FreeUsed)
	}
}

func TestDebitCredit_RequiresBalance(t *testing.T) {
	st, db := newTestStore(t)

	if err := st.EnsureQuota("dev1", "chuangye"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	ok, err := st.DebitCredit("dev1", "chuangye")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if ok {
		t.Fatalf("expected debit to fail with zero credits")
	}

	db.Model(&models.QuotaRecord{}).
		Where("device_id = ? AND app_key = ?", "dev1", "chuangye").
		Update("ad_credits", 1)

	ok, err = st.DebitCredit("dev1", "chuangye")
	if err != nil || !ok {
		t.Fatalf("expected debit to succeed: ok=%v err=%v", ok, err)
	}

	record, _ := st.GetQuota("dev1", "chuangye")
	if record.AdCredits != 0 {
		t.Fatalf("expected ad_credits=0, got %d", record.AdCredits)
	}
}

func TestRedeemTicket_ExactlyOnce(t *testing.T) {
	st, _ := newTestStore(t)

	ticket := &models.AdTicket{
		TicketID:  "t-1",
		DeviceID:  "dev1",
		AppKey:    "chuangye",
		Signature: "sig",
	}
	if err := st.CreateTicket(ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	if err := st.RedeemTicket("t-1", "dev1", "chuangye"); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if err := st.RedeemTicket("t-1", "dev1", "chuangye"); !errors.Is(err, ErrTicketUsed) {
		t.Fatalf("expected ErrTicketUsed on replay, got %v", err)
	}

	record, err := st.GetQuota("dev1", "chuangye")
	if err != nil {
		t.Fatalf("get quota: %v", err)
	}
	if record == nil || record.AdCredits != 1 {
		t.Fatalf("expected exactly one credit, got %+v", record)
	}
}

func TestRedeemTicket_ConcurrentSingleWinner(t *testing.T) {
	st, _ := newTestStore(t)

	ticket := &models.AdTicket{
		TicketID:  "t-1",
		DeviceID:  "dev1",
		AppKey:    "chuangye",
		Signature: "sig",
	}
	if err := st.CreateTicket(ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := st.RedeemTicket("t-1", "dev1", "chuangye"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly 1 successful redemption, got %d", successes)
	}

	record, _ := st.GetQuota("dev1", "chuangye")
	if record == nil || record.AdCredits != 1 {
		t.Fatalf("expected exactly one credit after concurrent redeems, got %+v", record)
	}
}

func TestRedeemTicket_WrongBindingReadsAsNotFound(t *testing.T) {
	st, db := newTestStore(t)

	ticket := &models.AdTicket{
		TicketID:  "t-1",
		DeviceID:  "dev1",
		AppKey:    "chuangye",
		Signature: "sig",
	}
	if err := st.CreateTicket(ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	if err := st.RedeemTicket("t-1", "other-device", "chuangye"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound for foreign device, got %v", err)
	}
	if err := st.RedeemTicket("missing", "dev1", "chuangye"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound for unknown id, got %v", err)
	}

	// The rejected attempts must not burn the ticket
	var stored models.AdTicket
	if err := db.First(&stored, "ticket_id = ?", "t-1").Error; err != nil {
		t.Fatalf("load ticket: %v", err)
	}
	if stored.Used {
		t.Fatalf("ticket must stay unused after rejected redemptions")
	}
}

func TestPatchApp(t *testing.T) {
	st, _ := newTestStore(t)

	found, err := st.PatchApp("chuangye", 5, false)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !found {
		t.Fatalf("expected seeded app to be found")
	}

	app, err := st.GetApp("chuangye")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if app.FreeLimit != 5 || app.Enabled {
		t.Fatalf("expected free_limit=5 enabled=false, got %+v", app)
	}

	found, err = st.PatchApp("nope", 1, true)
	if err != nil {
		t.Fatalf("patch unknown: %v", err)
	}
	if found {
		t.Fatalf("expected unknown app to report not found")
	}
}

func TestListApps_SeededAndOrdered(t *testing.T) {
	st, _ := newTestStore(t)

	apps, err := st.ListApps()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(apps) != 4 {
		t.Fatalf("expected 4 seeded apps, got %d", len(apps))
	}
	for i := 1; i < len(apps); i++ {
		prev, cur := apps[i-1], apps[i]
		if prev.Category > cur.Category ||
			(prev.Category == cur.Category && prev.AppKey > cur.AppKey) {
			t.Fatalf("apps not ordered by category, app_key: %+v before %+v", prev, cur)
		}
	}
}

func TestRecordEvent_Prunes(t *testing.T) {
	st, db := newTestStore(t)

	for i := 0; i < 10; i++ {
		err := st.RecordEvent(&models.AdEvent{
			Kind:     models.AdEventIssued,
			DeviceID: "dev1",
			AppKey:   "chuangye",
		}, 5)
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	var count int64
	db.Model(&models.AdEvent{}).Count(&count)
	if count > 5 {
		t.Fatalf("expected at most 5 events after pruning, got %d", count)
	}

	events, err := st.RecentEvents(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	for i := 1; i < len(events); i++ {
		if events[i-1].ID < events[i].ID {
			t.Fatalf("events not newest-first")
		}
	}
}
