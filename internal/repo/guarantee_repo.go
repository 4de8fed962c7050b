// Repository functions for the Guarantee model and the DueGuarantee scan used
// by scheduled notifications.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/warrantyhub/warranty-bot/internal/domain"
)

// CreateGuarantee inserts a new guarantee row.
func CreateGuarantee(ctx context.Context, db *gorm.DB, g *domain.Guarantee) error {
	g.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(g).Error
}

// UpdateGuarantee persists the whole guarantee row.
func UpdateGuarantee(ctx context.Context, db *gorm.DB, g *domain.Guarantee) error {
	g.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(g).Error
}

// ListGuaranteesByDevice returns the device's non-deleted guarantees.
func ListGuaranteesByDevice(ctx context.Context, db *gorm.DB, deviceID int64) ([]domain.Guarantee, error) {
	var out []domain.Guarantee
	err := db.WithContext(ctx).
		Where("device_id = ? AND is_deleted = ?", deviceID, false).
		Find(&out).Error
	return out, err
}

// DueGuarantee is one row of the notification scan: a guarantee old enough to
// trigger a follow-up, joined with its device and marketing-consented owner.
type DueGuarantee struct {
	Guarantee domain.Guarantee
	Device    domain.Device
	User      domain.User
}

// ListDueGuarantees returns non-deleted guarantees created at or before the
// cutoff whose owners granted marketing consent.
func ListDueGuarantees(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]DueGuarantee, error) {
	var gs []domain.Guarantee
	err := db.WithContext(ctx).
		Joins("JOIN devices ON devices.id = guarantees.device_id").
		Joins("JOIN users ON users.chat_id = devices.user_id").
		Where("guarantees.created_at <= ? AND guarantees.is_deleted = ? AND users.marketing_consent = ?",
			cutoff, false, true).
		Preload("Device").
		Preload("Device.User").
		Find(&gs).Error
	if err != nil {
		return nil, err
	}

	out := make([]DueGuarantee, 0, len(gs))
	for _, g := range gs {
		out = append(out, DueGuarantee{
			Guarantee: g,
			Device:    g.Device,
			User:      g.Device.User,
		})
	}
	return out, nil
}
