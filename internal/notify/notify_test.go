package notify

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/warrantyhub/warranty-bot/internal/chat"
	"github.com/warrantyhub/warranty-bot/internal/domain"
	"github.com/warrantyhub/warranty-bot/internal/repo"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type captureMessenger struct {
	mu   sync.Mutex
	sent map[int64][]string // chatID -> texts
}

func newCaptureMessenger() *captureMessenger {
	return &captureMessenger{sent: make(map[int64][]string)}
}

func (m *captureMessenger) SendMessage(_ context.Context, chatID int64, text string, _ chat.Keyboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[chatID] = append(m.sent[chatID], text)
	return nil
}

func (m *captureMessenger) SendDocument(context.Context, int64, string, string) error {
	return nil
}

func (m *captureMessenger) count(chatID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent[chatID])
}

func newNotifyDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("notify_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedGuarantee(t *testing.T, db *gorm.DB, chatID int64, consent bool, createdAt time.Time) {
	t.Helper()
	ctx := context.Background()

	u, err := repo.GetOrCreateUser(ctx, db, chatID, "t", "T")
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	u.MarketingConsent = consent
	if err := repo.UpdateUser(ctx, db, u); err != nil {
		t.Fatalf("consent: %v", err)
	}

	d := &domain.Device{SerialNumber: fmt.Sprintf("%d", chatID), UserID: chatID}
	if err := repo.CreateDevice(ctx, db, d); err != nil {
		t.Fatalf("device: %v", err)
	}
	g := &domain.Guarantee{Tier: domain.TierStandard, DeviceID: d.ID, CreatedAt: createdAt}
	if err := db.Create(g).Error; err != nil {
		t.Fatalf("guarantee: %v", err)
	}
}

func TestRunOnce_FollowUpsDedupedAcrossScans(t *testing.T) {
	db := newNotifyDB(t)
	clock := &fakeClock{now: time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)}
	msgr := newCaptureMessenger()

	// Activated 4 days ago: day-3 due, day-15 not yet.
	seedGuarantee(t, db, 1, true, clock.now.Add(-4*24*time.Hour))
	// Activated 20 days ago: both due.
	seedGuarantee(t, db, 2, true, clock.now.Add(-20*24*time.Hour))
	// No consent: nothing.
	seedGuarantee(t, db, 3, false, clock.now.Add(-20*24*time.Hour))
	// Too fresh: nothing.
	seedGuarantee(t, db, 4, true, clock.now.Add(-1*24*time.Hour))

	n := &Notifier{DB: db, Messenger: msgr, Log: zerolog.Nop(), Clock: clock}
	if err := n.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if got := msgr.count(1); got != 1 {
		t.Fatalf("chat 1: %d messages, want 1", got)
	}
	if got := msgr.count(2); got != 2 {
		t.Fatalf("chat 2: %d messages, want 2", got)
	}
	if got := msgr.count(3) + msgr.count(4); got != 0 {
		t.Fatalf("ineligible chats got %d messages", got)
	}

	// A second scan sends nothing new.
	if err := n.RunOnce(context.Background()); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if got := msgr.count(1) + msgr.count(2); got != 3 {
		t.Fatalf("dedup failed: %d total messages after rescan", got)
	}
}

func TestRunOnce_Day3BecomesDay15Later(t *testing.T) {
	db := newNotifyDB(t)
	clock := &fakeClock{now: time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)}
	msgr := newCaptureMessenger()
	seedGuarantee(t, db, 1, true, clock.now.Add(-4*24*time.Hour))

	n := &Notifier{DB: db, Messenger: msgr, Log: zerolog.Nop(), Clock: clock}
	if err := n.RunOnce(context.Background()); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if got := msgr.count(1); got != 1 {
		t.Fatalf("after first scan: %d", got)
	}

	// Two weeks later the same guarantee triggers the review ask only.
	clock.now = clock.now.Add(14 * 24 * time.Hour)
	if err := n.RunOnce(context.Background()); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if got := msgr.count(1); got != 2 {
		t.Fatalf("after second scan: %d messages, want 2", got)
	}
}

func TestRunOnce_SeasonalBroadcast(t *testing.T) {
	db := newNotifyDB(t)
	clock := &fakeClock{now: time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)}
	msgr := newCaptureMessenger()
	ctx := context.Background()

	for chatID, consent := range map[int64]bool{1: true, 2: true, 3: false} {
		u, _ := repo.GetOrCreateUser(ctx, db, chatID, "t", "T")
		u.MarketingConsent = consent
		if err := repo.UpdateUser(ctx, db, u); err != nil {
			t.Fatalf("seed %d: %v", chatID, err)
		}
	}

	n := &Notifier{DB: db, Messenger: msgr, Log: zerolog.Nop(), Clock: clock}
	if err := n.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if msgr.count(1) != 1 || msgr.count(2) != 1 {
		t.Fatalf("consented chats: %d/%d, want 1/1", msgr.count(1), msgr.count(2))
	}
	if msgr.count(3) != 0 {
		t.Fatal("non-consented chat received seasonal broadcast")
	}

	// Same day again: deduped.
	if err := n.RunOnce(ctx); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if msgr.count(1) != 1 {
		t.Fatalf("seasonal dedup failed: %d", msgr.count(1))
	}

	// Off-season day: nothing.
	clock.now = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	if err := n.RunOnce(ctx); err != nil {
		t.Fatalf("off-season: %v", err)
	}
	if msgr.count(1) != 1 {
		t.Fatalf("off-season sent messages: %d", msgr.count(1))
	}
}
