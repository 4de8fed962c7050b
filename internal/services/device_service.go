// Package services – DeviceService
//
// This file implements the DeviceService, which governs how serial numbers
// bind to users. A serial belongs to at most one live (non-deleted) device at
// a time; re-entering an own serial reuses the existing row, while a serial
// held by another user is rejected without leaking who owns it.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/warrantyhub/warranty-bot/internal/domain"
	"github.com/warrantyhub/warranty-bot/internal/repo"
)

// DeviceService implements the use-cases around device registration.
type DeviceService struct {
	DB *gorm.DB
}

// GetOrRegister resolves a validated serial number for ownerChatID.
//
// Semantics:
//   - Serial already bound to the caller: the existing device is returned.
//   - Serial bound to a different user: ErrDeviceOwnedByOther. The error
//     carries no information about the current owner.
//   - Serial unknown: a new device row is created for the caller.
//
// The lookup and insert run in one transaction so two chats racing on the
// same serial cannot both create a row.
func (s *DeviceService) GetOrRegister(ctx context.Context, ownerChatID int64, serial string) (*domain.Device, error) {
	var out *domain.Device
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := repo.GetDeviceBySerial(ctx, tx, serial)
		switch {
		case err == nil:
			if d.UserID != ownerChatID {
				return ErrDeviceOwnedByOther
			}
			out = d
			return nil
		case errors.Is(err, repo.ErrNotFound):
			d = &domain.Device{SerialNumber: serial, UserID: ownerChatID, Type: domain.DeviceUnknown}
			if err := repo.CreateDevice(ctx, tx, d); err != nil {
				return err
			}
			out = d
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get loads a live device or returns ErrDeviceNotFound. Used to validate
// device ids carried in callback buttons, which may be stale.
func (s *DeviceService) Get(ctx context.Context, id int64) (*domain.Device, error) {
	d, err := repo.GetDevice(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return d, nil
}

// GetBySerial loads a live device by serial regardless of owner. Admin-only
// callers use it for the deletion flow.
func (s *DeviceService) GetBySerial(ctx context.Context, serial string) (*domain.Device, error) {
	d, err := repo.GetDeviceBySerial(ctx, s.DB, serial)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListByOwner returns the caller's live devices, oldest first.
func (s *DeviceService) ListByOwner(ctx context.Context, ownerChatID int64) ([]domain.Device, error) {
	return repo.ListDevicesByOwner(ctx, s.DB, ownerChatID)
}

// SetPurchaseDate stores a validated purchase date on the device.
func (s *DeviceService) SetPurchaseDate(ctx context.Context, deviceID int64, date time.Time) error {
	return s.mutate(ctx, deviceID, func(d *domain.Device) {
		d.PurchaseDate = &date
	})
}

// SetModel stores the device model string.
func (s *DeviceService) SetModel(ctx context.Context, deviceID int64, model string) error {
	return s.mutate(ctx, deviceID, func(d *domain.Device) { d.Model = model })
}

// SoftDelete marks a device deleted and cascades to its live guarantees.
// The serial becomes free for re-registration afterwards.
func (s *DeviceService) SoftDelete(ctx context.Context, deviceID int64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := repo.GetDevice(ctx, tx, deviceID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrDeviceNotFound
			}
			return err
		}

		gs, err := repo.ListGuaranteesByDevice(ctx, tx, d.ID)
		if err != nil {
			return err
		}
		for i := range gs {
			gs[i].IsDeleted = true
			if err := repo.UpdateGuarantee(ctx, tx, &gs[i]); err != nil {
				return err
			}
		}

		d.IsDeleted = true
		return repo.UpdateDevice(ctx, tx, d)
	})
}

func (s *DeviceService) mutate(ctx context.Context, deviceID int64, mut func(*domain.Device)) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := repo.GetDevice(ctx, tx, deviceID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrDeviceNotFound
			}
			return err
		}
		mut(d)
		return repo.UpdateDevice(ctx, tx, d)
	})
}
