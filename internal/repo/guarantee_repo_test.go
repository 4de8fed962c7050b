package repo

import (
	"context"
	"testing"
	"time"

	"github.com/warrantyhub/warranty-bot/internal/domain"
)

func TestListGuaranteesByDevice_SkipsDeleted(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	owner := seedUser(t, db, 10)

	d := &domain.Device{SerialNumber: "555", UserID: owner.ChatID}
	if err := CreateDevice(ctx, db, d); err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}

	g1 := &domain.Guarantee{Tier: domain.TierStandard, DeviceID: d.ID}
	g2 := &domain.Guarantee{Tier: domain.TierComfort, DeviceID: d.ID, IsDeleted: true}
	for _, g := range []*domain.Guarantee{g1, g2} {
		if err := CreateGuarantee(ctx, db, g); err != nil {
			t.Fatalf("CreateGuarantee: %v", err)
		}
	}

	list, err := ListGuaranteesByDevice(ctx, db, d.ID)
	if err != nil {
		t.Fatalf("ListGuaranteesByDevice: %v", err)
	}
	if len(list) != 1 || list[0].Tier != domain.TierStandard {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestListDueGuarantees_CutoffConsentAndDeletion(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	opted := seedUser(t, db, 1)
	opted.MarketingConsent = true
	if err := UpdateUser(ctx, db, opted); err != nil {
		t.Fatalf("consent: %v", err)
	}
	silent := seedUser(t, db, 2)

	dOpted := &domain.Device{SerialNumber: "a1", UserID: opted.ChatID}
	dSilent := &domain.Device{SerialNumber: "b1", UserID: silent.ChatID}
	for _, d := range []*domain.Device{dOpted, dSilent} {
		if err := CreateDevice(ctx, db, d); err != nil {
			t.Fatalf("CreateDevice: %v", err)
		}
	}

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []domain.Guarantee{
		{Tier: domain.TierStandard, DeviceID: dOpted.ID, CreatedAt: old},                   // due
		{Tier: domain.TierStandard, DeviceID: dOpted.ID, CreatedAt: fresh},                 // too recent
		{Tier: domain.TierStandard, DeviceID: dOpted.ID, CreatedAt: old, IsDeleted: true},  // deleted
		{Tier: domain.TierStandard, DeviceID: dSilent.ID, CreatedAt: old},                  // no consent
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed guarantee %d: %v", i, err)
		}
	}

	due, err := ListDueGuarantees(ctx, db, cutoff)
	if err != nil {
		t.Fatalf("ListDueGuarantees: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due guarantee, got %d: %+v", len(due), due)
	}
	if due[0].User.ChatID != opted.ChatID || due[0].Device.ID != dOpted.ID {
		t.Fatalf("join mismatch: %+v", due[0])
	}
	if !due[0].Guarantee.CreatedAt.Equal(old) {
		t.Fatalf("wrong guarantee picked: %+v", due[0].Guarantee)
	}
}

func TestMessageLog_DedupScopes(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	seedUser(t, db, 7)

	gid := int64(11)

	ok, err := HasMessageLog(ctx, db, 7, "day3_content", &gid)
	if err != nil {
		t.Fatalf("HasMessageLog empty: %v", err)
	}
	if ok {
		t.Fatal("log should start empty")
	}

	if err := CreateMessageLog(ctx, db, 7, "day3_content", &gid); err != nil {
		t.Fatalf("CreateMessageLog: %v", err)
	}

	ok, err = HasMessageLog(ctx, db, 7, "day3_content", &gid)
	if err != nil || !ok {
		t.Fatalf("expected logged record, got ok=%v err=%v", ok, err)
	}

	// Other guarantee id and nil scope are independent.
	other := int64(12)
	if ok, _ := HasMessageLog(ctx, db, 7, "day3_content", &other); ok {
		t.Fatal("record leaked to another guarantee")
	}
	if ok, _ := HasMessageLog(ctx, db, 7, "day3_content", nil); ok {
		t.Fatal("record leaked to the nil scope")
	}

	// Seasonal messages log without a guarantee.
	if err := CreateMessageLog(ctx, db, 7, "season_spring_2025", nil); err != nil {
		t.Fatalf("seasonal log: %v", err)
	}
	if ok, _ := HasMessageLog(ctx, db, 7, "season_spring_2025", nil); !ok {
		t.Fatal("seasonal record not found")
	}
}
