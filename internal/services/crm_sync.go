// Package services – CRMSync
//
// This file implements the best-effort bridge between the local user/warranty
// records and the CRM. Every method here may fail without consequence for the
// chat flow: callers log the error and keep going, and the next activation
// retries the sync from scratch.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/warrantyhub/warranty-bot/internal/crm"
	"github.com/warrantyhub/warranty-bot/internal/domain"
	"github.com/warrantyhub/warranty-bot/internal/repo"
)

// CRMSync mirrors users and warranties into the CRM.
type CRMSync struct {
	DB      *gorm.DB
	Gateway crm.Gateway
	Log     zerolog.Logger

	// DealCategoryID is the CRM pipeline the warranty deals land in.
	DealCategoryID int

	// SerialField and ModelField are the portal-specific custom field codes
	// for the device attributes on a deal. Empty codes are skipped.
	SerialField string
	ModelField  string
}

// SyncContact upserts the CRM contact for the user and records the contact id
// locally. Resolution order: stored id, phone lookup, create.
func (s *CRMSync) SyncContact(ctx context.Context, u *domain.User) (int64, error) {
	c := &crm.Contact{
		ID:      u.CRMContactID,
		Name:    u.Name,
		Surname: u.Surname,
		Phone:   u.Phone,
		Email:   u.Email,
		City:    u.City,
	}

	if c.ID == 0 && u.Phone != "" {
		found, err := s.Gateway.FindContactByPhone(ctx, u.Phone)
		switch {
		case err == nil:
			c.ID = found.ID
		case errors.Is(err, crm.ErrContactNotFound):
			// fall through to create
		default:
			return 0, err
		}
	}

	if c.ID == 0 {
		id, err := s.Gateway.CreateContact(ctx, c)
		if err != nil {
			return 0, err
		}
		c.ID = id
	} else if err := s.Gateway.UpdateContact(ctx, c); err != nil {
		return 0, err
	}

	if c.ID != u.CRMContactID {
		u.CRMContactID = c.ID
		if err := repo.UpdateUser(ctx, s.DB, u); err != nil {
			return 0, err
		}
	}
	return c.ID, nil
}

// SyncDeal pushes a warranty activation into the CRM pipeline, ensuring the
// contact exists first.
func (s *CRMSync) SyncDeal(ctx context.Context, u *domain.User, d *domain.Device, g *domain.Guarantee) error {
	contactID, err := s.SyncContact(ctx, u)
	if err != nil {
		return err
	}

	deal := &crm.Deal{
		Title:       fmt.Sprintf("Гарантия %s — %s", g.Tier.Title(), d.SerialNumber),
		CategoryID:  s.DealCategoryID,
		Opportunity: g.Price,
		ContactID:   contactID,
		Comments:    fmt.Sprintf("Город: %s\nИсточник покупки: %s", u.City, u.OrderSource),
		Custom:      map[string]string{},
	}
	if s.SerialField != "" {
		deal.Custom[s.SerialField] = d.SerialNumber
	}
	if s.ModelField != "" && d.Model != "" {
		deal.Custom[s.ModelField] = d.Model
	}

	if _, err := s.Gateway.CreateDeal(ctx, deal); err != nil {
		return err
	}
	return nil
}
