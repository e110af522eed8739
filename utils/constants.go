package utils

import (
	"time"
)

// Context keys used to carry request metadata into business flows
type ContextKey string

const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
	UserIDKey     ContextKey = "user_id"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Automation constants
const (
	// ScheduleHorizonDays is the look-ahead window for upcoming payment notifications
	ScheduleHorizonDays = 7

	// DefaultMaxPerHour is the rolling-hour dispatch ceiling when the
	// automation config carries no maxPerHour setting
	DefaultMaxPerHour = 50

	// RateLimitWindow is the rolling window used for dispatch accounting
	RateLimitWindow = time.Hour

	// DefaultBulkDelay is the pause between consecutive bulk messages
	DefaultBulkDelay = 2000 * time.Millisecond

	// DispatchTimeout is the per-message gateway call timeout
	DispatchTimeout = 15 * time.Second

	// AutomationLogPageSize is how many log entries the logs endpoint returns
	AutomationLogPageSize = 100
)

// Cache keys (namespaced by the configured redis prefix)
const (
	// AutomationConfigCacheKey holds the JSON copy of the automation config singleton
	AutomationConfigCacheKey = "automation:config"
)
