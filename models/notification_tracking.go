package models

import (
	"encoding/json"
	"time"

	"github.com/controlcuentas/admin-api/utils"
	"gorm.io/gorm"
)

// Notification type constants. The type is a deterministic function of
// how many days remain until the account's due date.
const (
	NotificationPago3Dias        = "pago_3dias"
	NotificationPago2Dias        = "pago_2dias"
	NotificationPago1Dia         = "pago_1dia"
	NotificationPagoHoy          = "pago_hoy"
	NotificationPagoAtrasado     = "pago_atrasado"
	NotificationRenovacion       = "renovacion_proxima"
	NotificationPagoConfirmado   = "pago_confirmado"
	NotificationCustom           = "custom"
)

// NotificationTracking is an immutable record of a single dispatch
// attempt, successful or not. One row is written per attempt.
type NotificationTracking struct {
	ID               uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID        uint            `gorm:"not null;index:idx_tracking_account_id" json:"account_id"`
	Account          *Account        `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE" json:"account,omitempty"`
	NotificationType string          `gorm:"size:50;not null;index:idx_tracking_type" json:"notification_type"`
	Success          *bool           `gorm:"not null;default:true;index:idx_tracking_success" json:"success"`
	ErrorMessage     *string         `gorm:"type:text" json:"error_message,omitempty"`
	Phone            *string         `gorm:"size:32" json:"phone,omitempty"`
	MessageID        *string         `gorm:"size:255" json:"message_id,omitempty"`
	Metadata         json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	SentAt           time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_tracking_sent_at" json:"sent_at"`
}

func (NotificationTracking) TableName() string {
	return "notification_tracking"
}

// BeforeCreate stamps the dispatch time when the caller did not.
func (n *NotificationTracking) BeforeCreate(tx *gorm.DB) error {
	if n.SentAt.IsZero() {
		n.SentAt = utils.UTCNow()
	}
	return nil
}

// IsFailed reports whether this attempt failed.
func (n *NotificationTracking) IsFailed() bool {
	return n.Success != nil && !*n.Success
}

// NotificationTrackingFilter represents filter criteria for tracking queries
type NotificationTrackingFilter struct {
	ID               *uint
	AccountID        *uint
	NotificationType *string
	Success          *bool
	SentAfter        *time.Time
	SentBefore       *time.Time
}
