// Package domain defines the persistence models for users, devices,
// guarantees, and the automated-message ledger. These types are mapped with
// GORM and form the core data layer of the warranty bot.
package domain

import (
	"time"
)

// User is the identity + consent + contact record for a single chat.
//
// Fields:
//   - ChatID: the messenger chat identifier, immutable primary key.
//   - Username / DisplayName: as reported by the chat platform.
//   - Surname / Name / Phone / Email / City / OrderSource: collected by the
//     conversation engine field-by-field.
//   - PDConsent / MarketingConsent: independent consents; the matching
//     *ConsentAt timestamp is set exactly once, on the false->true transition.
//   - CRMContactID: correlation id of the contact in the external CRM.
//   - SupportThreadID / SalesThreadID: assistant-thread correlation ids.
//   - LastSupportMsgAt / LastSalesMsgAt: last-activity timestamps per channel.
type User struct {
	ChatID      int64  `json:"chat_id"      gorm:"primaryKey;autoIncrement:false"`
	Username    string `json:"username"     gorm:"type:varchar(64)"`
	DisplayName string `json:"display_name" gorm:"type:varchar(255)"`
	Surname     string `json:"surname"      gorm:"type:varchar(128)"`
	Name        string `json:"name"         gorm:"type:varchar(128)"`
	Phone       string `json:"phone"        gorm:"type:varchar(16)"`
	Email       string `json:"email"        gorm:"type:varchar(255)"`
	City        string `json:"city"         gorm:"type:varchar(128)"`

	// OrderSource is the marketplace the device was bought from. Empty until
	// the user picks one of the OrderSource enum values.
	OrderSource string `json:"order_source" gorm:"type:varchar(32)"`

	PDConsent          bool       `json:"pd_consent"`
	PDConsentAt        *time.Time `json:"pd_consent_at,omitempty"`
	MarketingConsent   bool       `json:"marketing_consent"`
	MarketingConsentAt *time.Time `json:"marketing_consent_at,omitempty"`

	CRMContactID     int64      `json:"crm_contact_id,omitempty" gorm:"index"`
	SupportThreadID  string     `json:"-" gorm:"type:varchar(64)"`
	SalesThreadID    string     `json:"-" gorm:"type:varchar(64)"`
	LastSupportMsgAt *time.Time `json:"-"`
	LastSalesMsgAt   *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Devices []Device `json:"-" gorm:"foreignKey:UserID;references:ChatID"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// ProfileComplete reports whether the user supplied all fields required to
// activate a warranty: name, surname, phone, and email.
func (u *User) ProfileComplete() bool {
	return u.Name != "" && u.Surname != "" && u.Phone != "" && u.Email != ""
}

// Device is a physical unit identified by serial number. The serial number is
// unique only among non-deleted rows: an administratively deleted device may
// be re-registered later under the same serial.
type Device struct {
	ID           int64      `json:"id"            gorm:"primaryKey;autoIncrement"`
	SerialNumber string     `json:"serial_number" gorm:"type:varchar(64);not null;index"`
	Model        string     `json:"model"         gorm:"type:varchar(128)"`
	Type         DeviceType `json:"type"          gorm:"type:varchar(32);default:'unknown'"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty" gorm:"type:date"`
	UserID       int64      `json:"user_id"       gorm:"not null;index"`
	IsDeleted    bool       `json:"-"             gorm:"not null;default:false;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User       User        `json:"-" gorm:"foreignKey:UserID;references:ChatID"`
	Guarantees []Guarantee `json:"-" gorm:"foreignKey:DeviceID;references:ID"`
}

// TableName returns the database table name for Device.
func (Device) TableName() string { return "devices" }

// Guarantee is a time-bounded coverage plan attached to a device. Start and
// end dates are derived, never user-supplied; for tiers without a defined
// derivation rule they remain nil until the business rule is clarified.
type Guarantee struct {
	ID        int64      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Tier      Tier       `json:"tier"       gorm:"type:varchar(16);not null"`
	StartDate *time.Time `json:"start_date,omitempty" gorm:"type:date"`
	EndDate   *time.Time `json:"end_date,omitempty"   gorm:"type:date"`
	Price     int        `json:"price"`
	DeviceID  int64      `json:"device_id"  gorm:"not null;index"`
	IsDeleted bool       `json:"-"          gorm:"not null;default:false;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Device Device `json:"-" gorm:"foreignKey:DeviceID;references:ID"`
}

// TableName returns the database table name for Guarantee.
func (Guarantee) TableName() string { return "guarantees" }

// MessageLog is the dedup ledger for scheduled notifications: at most one row
// may exist per (recipient, message type, guarantee) combination, enforced by
// a unique index so concurrent senders cannot double-send.
type MessageLog struct {
	ID          int64     `json:"id"           gorm:"primaryKey;autoIncrement"`
	UserChatID  int64     `json:"user_chat_id" gorm:"not null;index;uniqueIndex:ux_msglog_user_type_guarantee"`
	GuaranteeID *int64    `json:"guarantee_id,omitempty" gorm:"index;uniqueIndex:ux_msglog_user_type_guarantee"`
	MessageType string    `json:"message_type" gorm:"type:varchar(32);not null;uniqueIndex:ux_msglog_user_type_guarantee"`
	SentAt      time.Time `json:"sent_at"`
}

// TableName returns the database table name for MessageLog.
func (MessageLog) TableName() string { return "automated_message_log" }
