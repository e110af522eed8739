package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/controlcuentas/admin-api/utils"
)

// AutomationConfigKey addresses the single automation configuration row.
// Exactly one row with this key exists system-wide; it is created at
// startup and mutated only through the config-update flow.
const AutomationConfigKey = "automation"

// AutomationStatus represents the operating state of the notification
// automation.
type AutomationStatus string

const (
	AutomationStatusActive      AutomationStatus = "active"
	AutomationStatusPaused      AutomationStatus = "paused"
	AutomationStatusMaintenance AutomationStatus = "maintenance"
)

// Valid checks if the status is valid.
func (s AutomationStatus) Valid() bool {
	switch s {
	case AutomationStatusActive, AutomationStatusPaused, AutomationStatusMaintenance:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for AutomationStatus.
func (s *AutomationStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = AutomationStatus(v)
	case []byte:
		*s = AutomationStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into AutomationStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for AutomationStatus.
func (s AutomationStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid AutomationStatus: %s", s)
	}
	return string(s), nil
}

// SettingsMap is a free-form key/value configuration bag stored as JSONB.
type SettingsMap map[string]any

// Scan implements the sql.Scanner interface for SettingsMap.
func (m *SettingsMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SettingsMap", value)
	}
	return json.Unmarshal(raw, m)
}

// Value implements the driver.Valuer interface for SettingsMap.
func (m SettingsMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// AutomationConfig is the singleton operational configuration for the
// notification automation. The Key column always holds
// AutomationConfigKey; callers never address the row by its numeric ID.
type AutomationConfig struct {
	ID           uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	Key          string           `gorm:"size:50;not null;uniqueIndex:uk_automation_config_key" json:"-"`
	Status       AutomationStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Settings     SettingsMap      `gorm:"type:jsonb;not null;default:'{}'" json:"config"`
	PausedAt     *time.Time       `json:"paused_at,omitempty"`
	PausedBy     *string          `gorm:"size:255" json:"paused_by,omitempty"`
	PausedReason *string          `gorm:"type:text" json:"paused_reason,omitempty"`
	UpdatedBy    *string          `gorm:"size:255" json:"updated_by,omitempty"`
	UpdatedAt    time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	CreatedAt    time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AutomationConfig) TableName() string {
	return "automation_config"
}

// MaxPerHour returns the rolling-hour dispatch ceiling from the settings
// bag, falling back to the system default when absent or malformed.
func (c *AutomationConfig) MaxPerHour() int {
	if c == nil || c.Settings == nil {
		return utils.DefaultMaxPerHour
	}
	switch v := c.Settings["maxPerHour"].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return utils.DefaultMaxPerHour
}

// IsActive reports whether the scheduler may compute and dispatch.
func (c *AutomationConfig) IsActive() bool {
	return c != nil && c.Status == AutomationStatusActive
}

// Snapshot serializes the config for before/after audit entries.
func (c *AutomationConfig) Snapshot() json.RawMessage {
	raw, err := json.Marshal(c)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}
