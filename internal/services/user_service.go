// Package services – UserService
//
// This file implements the UserService, which owns the user profile lifecycle:
// idempotent registration of a chat, per-field profile updates, and the
// set-once consent transitions. Consent timestamps are written exactly once,
// on the first transition, and never move afterwards.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/warrantyhub/warranty-bot/internal/domain"
	"github.com/warrantyhub/warranty-bot/internal/repo"
)

// UserService implements the use-cases around the user profile.
type UserService struct {
	DB *gorm.DB
}

// GetOrCreate returns the user for chatID, registering the chat on first
// contact. Safe to call on every incoming event.
func (s *UserService) GetOrCreate(ctx context.Context, chatID int64, username, displayName string) (*domain.User, error) {
	return repo.GetOrCreateUser(ctx, s.DB, chatID, username, displayName)
}

// Get loads an existing user or returns ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, chatID int64) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// SetSurname stores a validated surname.
func (s *UserService) SetSurname(ctx context.Context, chatID int64, surname string) error {
	return s.update(ctx, chatID, func(u *domain.User) { u.Surname = surname })
}

// SetName stores a validated given name.
func (s *UserService) SetName(ctx context.Context, chatID int64, name string) error {
	return s.update(ctx, chatID, func(u *domain.User) { u.Name = name })
}

// SetPhone stores a validated phone number.
func (s *UserService) SetPhone(ctx context.Context, chatID int64, phone string) error {
	return s.update(ctx, chatID, func(u *domain.User) { u.Phone = phone })
}

// SetEmail stores a verified email address. Callers must run code
// verification before persisting.
func (s *UserService) SetEmail(ctx context.Context, chatID int64, email string) error {
	return s.update(ctx, chatID, func(u *domain.User) { u.Email = email })
}

// SetCity stores the user's city.
func (s *UserService) SetCity(ctx context.Context, chatID int64, city string) error {
	return s.update(ctx, chatID, func(u *domain.User) { u.City = city })
}

// SetOrderSource stores where the user bought the device.
func (s *UserService) SetOrderSource(ctx context.Context, chatID int64, src domain.OrderSource) error {
	return s.update(ctx, chatID, func(u *domain.User) { u.OrderSource = string(src) })
}

// GrantPDConsent records personal-data consent. The timestamp is written only
// on the first grant; repeated grants are no-ops.
func (s *UserService) GrantPDConsent(ctx context.Context, chatID int64) error {
	return s.update(ctx, chatID, func(u *domain.User) {
		if u.PDConsent {
			return
		}
		now := time.Now().UTC()
		u.PDConsent = true
		u.PDConsentAt = &now
	})
}

// SetMarketingConsent records the marketing-consent decision. The timestamp
// marks the first grant and never moves; a decline writes nothing besides the
// flag, so a user who said no can still opt in later.
func (s *UserService) SetMarketingConsent(ctx context.Context, chatID int64, granted bool) error {
	return s.update(ctx, chatID, func(u *domain.User) {
		if granted && u.MarketingConsentAt == nil {
			now := time.Now().UTC()
			u.MarketingConsentAt = &now
		}
		u.MarketingConsent = granted
	})
}

// IsProfileComplete reports whether the user can take the quick-activation
// path (surname, name, phone, and email all present).
func (s *UserService) IsProfileComplete(ctx context.Context, chatID int64) (bool, error) {
	u, err := s.Get(ctx, chatID)
	if err != nil {
		return false, err
	}
	return u.ProfileComplete(), nil
}

func (s *UserService) update(ctx context.Context, chatID int64, mut func(*domain.User)) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := repo.GetUser(ctx, tx, chatID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		mut(u)
		return repo.UpdateUser(ctx, tx, u)
	})
}
