// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/controlcuentas/admin-api/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// AccountRepository defines operations for subscription accounts
type AccountRepository interface {
	Repository[models.Account, models.AccountFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Account, error)
	ListSchedulable(ctx context.Context, dueBefore time.Time) ([]*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id uint) error
}

// AutomationConfigRepository defines operations for the automation
// configuration singleton. The row is addressed by
// models.AutomationConfigKey, never by numeric ID.
type AutomationConfigRepository interface {
	Get(ctx context.Context) (*models.AutomationConfig, error)
	Update(ctx context.Context, config *models.AutomationConfig) error
	EnsureExists(ctx context.Context, defaults models.SettingsMap) (*models.AutomationConfig, error)
}

// AutomationLogRepository defines operations for automation audit logs
type AutomationLogRepository interface {
	Repository[models.AutomationLog, models.AutomationLogFilter]
	ListRecent(ctx context.Context, limit int) ([]*models.AutomationLog, error)
}

// TrackingTypeStat is an aggregation row: sent/failed counts for one
// notification type.
type TrackingTypeStat struct {
	NotificationType string `json:"notification_type"`
	Sent             int64  `json:"sent"`
	Failed           int64  `json:"failed"`
}

// NotificationTrackingRepository defines operations for dispatch tracking records
type NotificationTrackingRepository interface {
	Repository[models.NotificationTracking, models.NotificationTrackingFilter]
	CountSuccessfulSince(ctx context.Context, since time.Time) (int64, error)
	StatsByTypeSince(ctx context.Context, since time.Time) ([]TrackingTypeStat, error)
	ListSince(ctx context.Context, since time.Time) ([]*models.NotificationTracking, error)
}

// UserRepository defines operations for panel users and their roles
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	HasRole(ctx context.Context, userID uint, role string) (bool, error)
	GrantRole(ctx context.Context, userID uint, role string) error
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
}
