package models

import (
	"encoding/json"
	"time"
)

// Automation log action constants. Exactly one entry is written per
// configuration update; the action reflects the status transition.
const (
	AutomationActionConfigChange    = "config_change"
	AutomationActionPause           = "pause"
	AutomationActionResume          = "resume"
	AutomationActionMaintenanceMode = "maintenance_mode"
)

// AutomationLog is an immutable audit entry for automation configuration
// changes. Corrections are new entries, never updates.
type AutomationLog struct {
	ID           uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Action       string          `gorm:"size:50;not null;index:idx_automation_logs_action" json:"action"`
	ConfigBefore json.RawMessage `gorm:"type:jsonb" json:"config_before,omitempty"`
	ConfigAfter  json.RawMessage `gorm:"type:jsonb" json:"config_after,omitempty"`
	Reason       *string         `gorm:"type:text" json:"reason,omitempty"`
	CreatedBy    *string         `gorm:"size:255" json:"created_by,omitempty"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_automation_logs_created_at" json:"created_at"`
}

func (AutomationLog) TableName() string {
	return "automation_logs"
}

// AutomationLogFilter represents filter criteria for automation log queries
type AutomationLogFilter struct {
	ID            *uint
	Action        *string
	CreatedBy     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
