package models

import (
	"time"

	"github.com/controlcuentas/admin-api/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a dashboard (panel) user. Admin capability is not stored on
// the user row; it is granted through a UserRole entry.
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;uniqueIndex:uk_users_uuid;not null" json:"uuid"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`

	IsDisabled  *bool      `gorm:"default:false;index:idx_users_is_disabled" json:"is_disabled"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_users_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	LastLoginAt *time.Time `gorm:"index:idx_users_last_login_at" json:"last_login_at,omitempty"`

	Roles []UserRole `gorm:"foreignKey:UserID;references:ID" json:"roles,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate ensures UUID and timestamps are set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utils.UTCNow()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// Role name constants
const (
	RoleAdmin = "admin"
)

// UserRole grants a named role to a user. One row per (user, role).
type UserRole struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uk_user_roles_user_role" json:"user_id"`
	Role      string    `gorm:"size:50;not null;uniqueIndex:uk_user_roles_user_role" json:"role"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Email         *string
	IsDisabled    *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
