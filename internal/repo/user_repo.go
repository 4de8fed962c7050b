// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/warrantyhub/warranty-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetUser fetches a user by chat id, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, chatID int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "chat_id = ?", chatID).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetOrCreateUser returns the user for chatID, inserting a fresh row when the
// chat is seen for the first time. The insert is idempotent: a concurrent
// creation for the same chat id resolves to the already-present row.
func GetOrCreateUser(ctx context.Context, db *gorm.DB, chatID int64, username, displayName string) (*domain.User, error) {
	u := &domain.User{
		ChatID:      chatID,
		Username:    username,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		FirstOrCreate(u).Error
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser persists the whole user row.
func UpdateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(u).Error
}

// ListUserChatIDs returns every known chat id, optionally restricted to users
// who granted marketing consent. Used by broadcast and seasonal jobs.
func ListUserChatIDs(ctx context.Context, db *gorm.DB, marketingOnly bool) ([]int64, error) {
	var ids []int64
	q := db.WithContext(ctx).Model(&domain.User{})
	if marketingOnly {
		q = q.Where("marketing_consent = ?", true)
	}
	err := q.Pluck("chat_id", &ids).Error
	return ids, err
}
