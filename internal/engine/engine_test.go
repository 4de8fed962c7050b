package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/warrantyhub/warranty-bot/internal/cert"
	"github.com/warrantyhub/warranty-bot/internal/chat"
	"github.com/warrantyhub/warranty-bot/internal/domain"
	"github.com/warrantyhub/warranty-bot/internal/repo"
	"github.com/warrantyhub/warranty-bot/internal/services"
)

type sentMsg struct {
	chatID int64
	text   string
	kb     chat.Keyboard
}

type fakeMessenger struct {
	mu   sync.Mutex
	msgs []sentMsg
	docs []string
}

func (m *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string, kb chat.Keyboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, sentMsg{chatID: chatID, text: text, kb: kb})
	return nil
}

func (m *fakeMessenger) SendDocument(_ context.Context, _ int64, path, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, path)
	return nil
}

func (m *fakeMessenger) last(t *testing.T) sentMsg {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.msgs) == 0 {
		t.Fatal("no messages sent")
	}
	return m.msgs[len(m.msgs)-1]
}

type fixedMailer struct {
	code int
	sent []string
}

func (f *fixedMailer) SendVerificationCode(_ context.Context, email string) (int, error) {
	f.sent = append(f.sent, email)
	return f.code, nil
}

func newEngine(t *testing.T) (*Engine, *fakeMessenger, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("engine_test_%d.db", time.Now().UnixNano()))
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

	msgr := &fakeMessenger{}
	e := &Engine{
		Store:     NewMemoryStore(),
		Messenger: msgr,
		Users:     &services.UserService{DB: db},
		Devices:   &services.DeviceService{DB: db},
		Guarantees: &services.GuaranteeService{
			DB:     db,
			Log:    zerolog.Nop(),
			Prices: map[domain.Tier]int{domain.TierComfort: 2990, domain.TierPremium: 4990},
		},
		Mail:     &fixedMailer{code: 1234},
		Certs:    cert.File{},
		Log:      zerolog.Nop(),
		AdminIDs: map[int64]struct{}{999: {}},
	}
	return e, msgr, db
}

func say(e *Engine, chatID int64, text string) {
	e.HandleMessage(context.Background(), chat.IncomingMessage{
		ChatID: chatID, Username: "tester", DisplayName: "Tester", Text: text,
	})
}

func press(e *Engine, chatID int64, cb chat.Callback) {
	e.HandleCallback(context.Background(), chat.IncomingCallback{
		ChatID: chatID, Payload: chat.Encode(cb),
	})
}

func TestRegistrationFlow_EndToEnd(t *testing.T) {
	e, msgr, db := newEngine(t)
	const chatID = int64(1)
	ctx := context.Background()

	say(e, chatID, "/register")
	if got := msgr.last(t); got.text != msgPDConsent || got.kb == nil {
		t.Fatalf("expected consent prompt, got %q", got.text)
	}

	press(e, chatID, chat.ConsentPD{})
	press(e, chatID, chat.ConsentMarketing{Granted: true})
	if got := msgr.last(t); got.text != msgAskSurname {
		t.Fatalf("expected surname prompt, got %q", got.text)
	}

	say(e, chatID, "Петров")
	say(e, chatID, "Иван")

	// A malformed phone re-prompts without advancing.
	say(e, chatID, "89991234567")
	if got := msgr.last(t); !strings.Contains(got.text, "+7XXXXXXXXXX") {
		t.Fatalf("expected phone re-prompt, got %q", got.text)
	}
	say(e, chatID, "+79991234567")
	if got := msgr.last(t); got.text != msgAskEmail {
		t.Fatalf("expected email prompt, got %q", got.text)
	}

	say(e, chatID, "ivan@example.com")
	if got := msgr.last(t); got.text != msgCodeSent {
		t.Fatalf("expected code prompt, got %q", got.text)
	}

	// Wrong code stays on the step; email not persisted yet.
	say(e, chatID, "9999")
	u, err := repo.GetUser(ctx, db, chatID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.Email != "" {
		t.Fatalf("email persisted before verification: %q", u.Email)
	}

	say(e, chatID, "1234")
	u, _ = repo.GetUser(ctx, db, chatID)
	if u.Email != "ivan@example.com" {
		t.Fatalf("email not persisted after verification: %q", u.Email)
	}

	say(e, chatID, "Москва")
	press(e, chatID, chat.PickSource{Source: domain.SourceOzon})
	say(e, chatID, "0012345")
	say(e, chatID, "10.05.2024")

	review := msgr.last(t)
	if !strings.Contains(review.text, "0012345") || !strings.Contains(review.text, "Петров") {
		t.Fatalf("review card incomplete: %q", review.text)
	}

	d, err := repo.GetDeviceBySerial(ctx, db, "0012345")
	if err != nil {
		t.Fatalf("device not registered: %v", err)
	}

	press(e, chatID, chat.Approve{DeviceID: d.ID})
	if got := msgr.last(t); got.text != msgTierChoose {
		t.Fatalf("expected tier keyboard, got %q", got.text)
	}

	press(e, chatID, chat.PickTier{DeviceID: d.ID, Tier: domain.TierStandard})
	if got := msgr.last(t); got.text != msgTierStandard {
		t.Fatalf("expected activation confirmation, got %q", got.text)
	}

	gs, err := repo.ListGuaranteesByDevice(ctx, db, d.ID)
	if err != nil || len(gs) != 1 {
		t.Fatalf("guarantees = %v, err %v", gs, err)
	}
	if gs[0].Tier != domain.TierStandard || gs[0].StartDate == nil || gs[0].EndDate == nil {
		t.Fatalf("unexpected guarantee: %+v", gs[0])
	}
	if len(msgr.docs) != 1 {
		t.Fatalf("expected certificate document, got %d", len(msgr.docs))
	}

	// The flow is done; stray text gets the idle hint.
	say(e, chatID, "спасибо")
	if got := msgr.last(t); got.text != msgIdleHint {
		t.Fatalf("expected idle hint, got %q", got.text)
	}
}

func TestEditFromReviewCard(t *testing.T) {
	e, msgr, db := newEngine(t)
	const chatID = int64(2)
	ctx := context.Background()

	say(e, chatID, "/register")
	press(e, chatID, chat.ConsentPD{})
	press(e, chatID, chat.ConsentMarketing{Granted: false})
	say(e, chatID, "Петров")
	say(e, chatID, "Иван")
	say(e, chatID, "+79991234567")
	say(e, chatID, "ivan@example.com")
	say(e, chatID, "1234")
	say(e, chatID, "Казань")
	press(e, chatID, chat.PickSource{Source: domain.SourceRetail})
	say(e, chatID, "42")
	say(e, chatID, "01.02.2024")

	d, err := repo.GetDeviceBySerial(ctx, db, "42")
	if err != nil {
		t.Fatalf("device: %v", err)
	}

	press(e, chatID, chat.Edit{Field: chat.FieldName, DeviceID: d.ID})
	if got := msgr.last(t); got.text != msgAskName {
		t.Fatalf("expected name prompt, got %q", got.text)
	}
	say(e, chatID, "Пётр")

	// The edit converges back on the review card with the new value.
	review := msgr.last(t)
	if !strings.Contains(review.text, "Пётр") {
		t.Fatalf("edited name missing from review: %q", review.text)
	}
	u, _ := repo.GetUser(ctx, db, chatID)
	if u.Name != "Пётр" {
		t.Fatalf("name not persisted: %q", u.Name)
	}
}

func TestCancelClearsState(t *testing.T) {
	e, msgr, _ := newEngine(t)
	const chatID = int64(3)

	say(e, chatID, "/register")
	press(e, chatID, chat.ConsentPD{})
	say(e, chatID, "/cancel")
	if got := msgr.last(t); got.text != msgCancelled {
		t.Fatalf("expected cancel confirmation, got %q", got.text)
	}

	say(e, chatID, "Петров")
	if got := msgr.last(t); got.text != msgIdleHint {
		t.Fatalf("state survived cancel: %q", got.text)
	}
}

func TestStaleTierButton(t *testing.T) {
	e, msgr, db := newEngine(t)
	const chatID = int64(4)
	ctx := context.Background()

	u, err := repo.GetOrCreateUser(ctx, db, chatID, "t", "T")
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	d, err := e.Devices.GetOrRegister(ctx, u.ChatID, "777")
	if err != nil {
		t.Fatalf("device: %v", err)
	}
	if err := e.Devices.SoftDelete(ctx, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	press(e, chatID, chat.PickTier{DeviceID: d.ID, Tier: domain.TierStandard})
	if got := msgr.last(t); got.text != msgStaleButton {
		t.Fatalf("expected stale-button message, got %q", got.text)
	}
}

func TestTierButton_ForeignDeviceRejected(t *testing.T) {
	e, msgr, db := newEngine(t)
	ctx := context.Background()

	owner, _ := repo.GetOrCreateUser(ctx, db, 10, "o", "O")
	d, err := e.Devices.GetOrRegister(ctx, owner.ChatID, "55")
	if err != nil {
		t.Fatalf("device: %v", err)
	}

	press(e, 11, chat.PickTier{DeviceID: d.ID, Tier: domain.TierStandard})
	if got := msgr.last(t); got.text != msgStaleButton {
		t.Fatalf("foreign activation not rejected: %q", got.text)
	}
	gs, _ := repo.ListGuaranteesByDevice(ctx, db, d.ID)
	if len(gs) != 0 {
		t.Fatalf("guarantee created for foreign press: %+v", gs)
	}
}

func TestQuickActivation_IncompleteProfileEntersRegistration(t *testing.T) {
	e, msgr, _ := newEngine(t)
	const chatID = int64(5)

	say(e, chatID, "/activate")
	if got := msgr.last(t); got.text != msgPDConsent {
		t.Fatalf("expected registration entry, got %q", got.text)
	}
	conv, err := e.Store.Get(context.Background(), chatID)
	if err != nil || conv == nil || conv.Step != StepPDConsent {
		t.Fatalf("conversation = %+v, err %v", conv, err)
	}
}

func TestMarketingDecline_AskedAgainAndCanOptIn(t *testing.T) {
	e, msgr, db := newEngine(t)
	const chatID = int64(8)
	ctx := context.Background()

	say(e, chatID, "/register")
	press(e, chatID, chat.ConsentPD{})
	press(e, chatID, chat.ConsentMarketing{Granted: false})

	// A decline leaves no consent timestamp behind.
	u, err := repo.GetUser(ctx, db, chatID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.MarketingConsent || u.MarketingConsentAt != nil {
		t.Fatalf("decline recorded as consent: %+v", u)
	}

	// Restarting registration asks the question again.
	say(e, chatID, "/cancel")
	say(e, chatID, "/register")
	if got := msgr.last(t); got.text != msgMarketing {
		t.Fatalf("decliner not re-asked, got %q", got.text)
	}

	press(e, chatID, chat.ConsentMarketing{Granted: true})
	u, _ = repo.GetUser(ctx, db, chatID)
	if !u.MarketingConsent || u.MarketingConsentAt == nil {
		t.Fatalf("late opt-in not recorded: %+v", u)
	}
}

func TestQuickActivationFlow(t *testing.T) {
	e, msgr, db := newEngine(t)
	const chatID = int64(6)
	ctx := context.Background()

	// Seed a complete, consented profile.
	u, _ := repo.GetOrCreateUser(ctx, db, chatID, "t", "T")
	now := time.Now().UTC()
	u.Surname, u.Name, u.Phone, u.Email = "Петров", "Иван", "+79991234567", "ivan@example.com"
	u.PDConsent, u.PDConsentAt = true, &now
	if err := repo.UpdateUser(ctx, db, u); err != nil {
		t.Fatalf("seed: %v", err)
	}

	say(e, chatID, "/activate")
	if got := msgr.last(t); got.text != msgAskSerial {
		t.Fatalf("expected serial prompt, got %q", got.text)
	}
	say(e, chatID, "314159")
	say(e, chatID, "01.03.2024")
	if got := msgr.last(t); !strings.Contains(got.text, "314159") {
		t.Fatalf("expected review card, got %q", got.text)
	}
}

func TestAdminDeleteFlow(t *testing.T) {
	e, msgr, db := newEngine(t)
	ctx := context.Background()

	owner, _ := repo.GetOrCreateUser(ctx, db, 50, "o", "O")
	d, err := e.Devices.GetOrRegister(ctx, owner.ChatID, "888")
	if err != nil {
		t.Fatalf("device: %v", err)
	}

	// Non-admin is rejected with no state.
	say(e, 50, "/device_delete")
	if got := msgr.last(t); got.text != msgAdminOnly {
		t.Fatalf("expected admin-only message, got %q", got.text)
	}
	say(e, 50, "888")
	if got := msgr.last(t); got.text != msgIdleHint {
		t.Fatalf("non-admin got state: %q", got.text)
	}

	// Admin (chat 999) walks the flow.
	say(e, 999, "/device_delete")
	say(e, 999, "000")
	if got := msgr.last(t); got.text != msgAdminNotFound {
		t.Fatalf("expected not-found re-prompt, got %q", got.text)
	}
	say(e, 999, "888")
	press(e, 999, chat.AdminDeleteConfirm{Confirmed: true})
	if got := msgr.last(t); got.text != msgAdminDeleted {
		t.Fatalf("expected deletion confirmation, got %q", got.text)
	}
	if _, err := repo.GetDevice(ctx, db, d.ID); err == nil {
		t.Fatal("device still live after admin deletion")
	}
}
