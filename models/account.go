// Package models contains domain entities and business models for the admin backend
package models

import (
	"time"

	"github.com/controlcuentas/admin-api/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account represents a billable subscription entitlement tied to an owner
// and a payment due date. Accounts without a phone can never be scheduled
// for notifications.
type Account struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;uniqueIndex:uk_accounts_uuid;not null" json:"uuid"`
	Owner    string    `gorm:"size:255;not null;index:idx_accounts_owner" json:"owner"`
	Phone    *string   `gorm:"size:32" json:"phone,omitempty"`
	DueDate  time.Time `gorm:"type:date;not null;index:idx_accounts_due_date" json:"due_date"`
	Price    float64   `gorm:"type:numeric(10,2);not null" json:"price"`
	Service  string    `gorm:"size:100;not null;default:'Netflix'" json:"service"`
	Notes    *string   `gorm:"type:text" json:"notes,omitempty"`
	IsActive *bool     `gorm:"default:true;index:idx_accounts_is_active" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// BeforeCreate ensures UUID and timestamps are set.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// HasPhone reports whether the account can receive chat notifications.
func (a *Account) HasPhone() bool {
	return a.Phone != nil && *a.Phone != ""
}

// AccountFilter represents filter criteria for account queries
type AccountFilter struct {
	ID           *uint
	UUID         *uuid.UUID
	Owner        *string
	Service      *string
	IsActive     *bool
	HasPhone     *bool
	DueAfter     *time.Time
	DueBefore    *time.Time
	CreatedAfter *time.Time
}
