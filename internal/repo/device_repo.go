// Repository functions for the Device model. All lookups exclude soft-deleted
// rows unless stated otherwise: serial-number uniqueness only holds among
// non-deleted devices, so deleted rows must stay invisible to them.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/warrantyhub/warranty-bot/internal/domain"
)

// CreateDevice inserts a new device row.
func CreateDevice(ctx context.Context, db *gorm.DB, d *domain.Device) error {
	d.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(d).Error
}

// UpdateDevice persists the whole device row.
func UpdateDevice(ctx context.Context, db *gorm.DB, d *domain.Device) error {
	d.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(d).Error
}

// GetDevice fetches a non-deleted device by id, or ErrNotFound.
func GetDevice(ctx context.Context, db *gorm.DB, id int64) (*domain.Device, error) {
	var d domain.Device
	err := db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDeviceBySerial fetches a non-deleted device by serial number, regardless
// of owner, or ErrNotFound.
func GetDeviceBySerial(ctx context.Context, db *gorm.DB, serial string) (*domain.Device, error) {
	var d domain.Device
	err := db.WithContext(ctx).
		Where("serial_number = ? AND is_deleted = ?", serial, false).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDeviceBySerialAndOwner fetches a non-deleted device by serial number
// restricted to the given owner, or ErrNotFound.
func GetDeviceBySerialAndOwner(ctx context.Context, db *gorm.DB, serial string, userID int64) (*domain.Device, error) {
	var d domain.Device
	err := db.WithContext(ctx).
		Where("serial_number = ? AND user_id = ? AND is_deleted = ?", serial, userID, false).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDevicesByOwner returns the user's non-deleted devices, oldest first.
func ListDevicesByOwner(ctx context.Context, db *gorm.DB, userID int64) ([]domain.Device, error) {
	var out []domain.Device
	err := db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
