// Package services – GuaranteeService
//
// This file implements warranty activation. The base tier is exclusive per
// device: the existence check and the insert run in one transaction so two
// concurrent activations for the same device cannot both succeed. CRM sync
// runs after the commit and is strictly best-effort.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/warrantyhub/warranty-bot/internal/domain"
	"github.com/warrantyhub/warranty-bot/internal/repo"
)

// GuaranteeService implements the use-cases around warranty activation.
type GuaranteeService struct {
	DB  *gorm.DB
	Log zerolog.Logger

	// Prices maps tier to price in whole rubles; missing tiers cost 0.
	Prices map[domain.Tier]int

	// CRM is optional; when nil no sync is attempted.
	CRM *CRMSync
}

// Activate creates a warranty of the given tier for the device.
//
// Semantics:
//   - The device must be live; stale ids yield ErrDeviceNotFound.
//   - Base tier requires a purchase date (ErrNoPurchaseDate) and at most one
//     live base warranty per device (ErrStandardAlreadyActive).
//   - Paid tiers have no defined period yet: the guarantee row is created
//     with nil dates.
//
// After the transaction commits the activation is mirrored into the CRM; a
// sync failure is logged and never surfaces to the caller.
func (s *GuaranteeService) Activate(ctx context.Context, u *domain.User, deviceID int64, tier domain.Tier) (*domain.Guarantee, error) {
	var (
		g   *domain.Guarantee
		dev *domain.Device
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := repo.GetDevice(ctx, tx, deviceID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrDeviceNotFound
			}
			return err
		}
		dev = d

		g = &domain.Guarantee{
			Tier:     tier,
			DeviceID: d.ID,
			Price:    s.Prices[tier],
		}

		if tier == domain.TierStandard {
			if d.PurchaseDate == nil {
				return ErrNoPurchaseDate
			}

			existing, err := repo.ListGuaranteesByDevice(ctx, tx, d.ID)
			if err != nil {
				return err
			}
			for _, prev := range existing {
				if prev.Tier == domain.TierStandard {
					return ErrStandardAlreadyActive
				}
			}

			start, end, err := PeriodFor(tier, *d.PurchaseDate)
			if err != nil {
				return err
			}
			g.StartDate = &start
			g.EndDate = &end
		}

		return repo.CreateGuarantee(ctx, tx, g)
	})
	if err != nil {
		return nil, err
	}

	if s.CRM != nil {
		if err := s.CRM.SyncDeal(ctx, u, dev, g); err != nil {
			s.Log.Warn().Err(err).
				Int64("chat_id", u.ChatID).
				Int64("device_id", dev.ID).
				Str("tier", string(g.Tier)).
				Msg("crm deal sync failed")
		}
	}
	return g, nil
}

// ListByDevice returns the device's live guarantees.
func (s *GuaranteeService) ListByDevice(ctx context.Context, deviceID int64) ([]domain.Guarantee, error) {
	return repo.ListGuaranteesByDevice(ctx, s.DB, deviceID)
}
