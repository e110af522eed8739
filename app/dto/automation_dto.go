// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "time"

// AutomationConfigDTO represents the automation configuration for API responses.
type AutomationConfigDTO struct {
	Status       string         `json:"status"`
	Settings     map[string]any `json:"settings"`
	PausedAt     *time.Time     `json:"paused_at,omitempty"`
	PausedBy     *string        `json:"paused_by,omitempty"`
	PausedReason *string        `json:"paused_reason,omitempty"`
	UpdatedBy    *string        `json:"updated_by,omitempty"`
	UpdatedAt    string         `json:"updated_at"`
}

// UpdateAutomationConfigRequest represents a configuration update. All
// fields are optional; an empty update still produces a config_change log.
type UpdateAutomationConfigRequest struct {
	Status       *string        `json:"status,omitempty" validate:"omitempty,oneof=active paused maintenance"`
	Config       map[string]any `json:"config,omitempty"`
	PausedReason *string        `json:"paused_reason,omitempty" validate:"omitempty,max=500"`
}

// UpdateAutomationConfigResponse represents the result of a configuration update.
type UpdateAutomationConfigResponse struct {
	Message string              `json:"message"`
	Config  AutomationConfigDTO `json:"config"`
	Action  string              `json:"action"`
	Warning *string             `json:"warning,omitempty"`
}

// AutomationLogItem represents one audit log entry.
type AutomationLogItem struct {
	ID           uint    `json:"id"`
	Action       string  `json:"action"`
	ConfigBefore any     `json:"config_before,omitempty"`
	ConfigAfter  any     `json:"config_after,omitempty"`
	Reason       *string `json:"reason,omitempty"`
	CreatedBy    *string `json:"created_by,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// ListAutomationLogsResponse represents the most recent audit log entries.
type ListAutomationLogsResponse struct {
	Message string              `json:"message"`
	Logs    []AutomationLogItem `json:"logs"`
}

// TypeStatDTO holds per-notification-type sent/failed counts.
type TypeStatDTO struct {
	Sent   int64 `json:"sent"`
	Failed int64 `json:"failed"`
}

// TodayStatsResponse aggregates today's notification tracking records.
type TodayStatsResponse struct {
	TotalSent    int64                  `json:"total_sent"`
	TotalFailed  int64                  `json:"total_failed"`
	TotalPending int64                  `json:"total_pending"`
	ByType       map[string]TypeStatDTO `json:"by_type"`
}

// ScheduledMessageDTO represents a computed upcoming notification.
type ScheduledMessageDTO struct {
	AccountID        uint    `json:"account_id"`
	Owner            string  `json:"owner"`
	Phone            string  `json:"phone"`
	Service          string  `json:"service"`
	NotificationType string  `json:"notification_type"`
	Priority         int     `json:"priority"`
	ScheduledTime    string  `json:"scheduled_time"`
	DaysUntil        int     `json:"days_until"`
	SecondsUntil     float64 `json:"seconds_until"`
}

// UpcomingMessagesResponse represents the computed schedule preview.
type UpcomingMessagesResponse struct {
	Messages  []ScheduledMessageDTO `json:"messages"`
	Status    string                `json:"status"`
	UpdatedAt string                `json:"updated_at"`
}

// RateLimitResponse represents the rolling-hour dispatch allowance.
type RateLimitResponse struct {
	CanSend      bool  `json:"canSend"`
	CurrentCount int64 `json:"currentCount"`
	Limit        int   `json:"limit"`
	Remaining    int64 `json:"remaining"`
}

// TrackNotificationRequest persists one dispatch attempt record.
type TrackNotificationRequest struct {
	AccountID        uint           `json:"account_id" validate:"required"`
	NotificationType string         `json:"notification_type" validate:"required,max=50"`
	Success          *bool          `json:"success,omitempty"`
	ErrorMessage     *string        `json:"error_message,omitempty"`
	Phone            *string        `json:"phone,omitempty" validate:"omitempty,max=20"`
	MessageID        *string        `json:"message_id,omitempty" validate:"omitempty,max=255"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// TrackNotificationResponse confirms a persisted tracking record.
type TrackNotificationResponse struct {
	Message string `json:"message"`
	ID      uint   `json:"id"`
	SentAt  string `json:"sent_at"`
}
