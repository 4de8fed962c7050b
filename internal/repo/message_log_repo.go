// Repository functions for the automated message log, the dedup record behind
// scheduled notifications.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/warrantyhub/warranty-bot/internal/domain"
)

// HasMessageLog reports whether a message of the given type was already sent
// to the chat, scoped to a guarantee when guaranteeID is non-nil.
func HasMessageLog(ctx context.Context, db *gorm.DB, chatID int64, messageType string, guaranteeID *int64) (bool, error) {
	q := db.WithContext(ctx).
		Model(&domain.MessageLog{}).
		Where("user_chat_id = ? AND message_type = ?", chatID, messageType)
	if guaranteeID != nil {
		q = q.Where("guarantee_id = ?", *guaranteeID)
	} else {
		q = q.Where("guarantee_id IS NULL")
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateMessageLog records a sent automated message.
func CreateMessageLog(ctx context.Context, db *gorm.DB, chatID int64, messageType string, guaranteeID *int64) error {
	return db.WithContext(ctx).Create(&domain.MessageLog{
		UserChatID:  chatID,
		GuaranteeID: guaranteeID,
		MessageType: messageType,
		SentAt:      time.Now().UTC(),
	}).Error
}
