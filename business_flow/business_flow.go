// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/controlcuentas/admin-api/app/dto"
	"github.com/controlcuentas/admin-api/config"
	"github.com/controlcuentas/admin-api/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// redisKey namespaces a cache key with the configured prefix.
func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

// ToAutomationConfigDTO converts the config singleton for API responses.
func ToAutomationConfigDTO(cfg models.AutomationConfig) dto.AutomationConfigDTO {
	settings := map[string]any(cfg.Settings)
	if settings == nil {
		settings = map[string]any{}
	}
	return dto.AutomationConfigDTO{
		Status:       string(cfg.Status),
		Settings:     settings,
		PausedAt:     cfg.PausedAt,
		PausedBy:     cfg.PausedBy,
		PausedReason: cfg.PausedReason,
		UpdatedBy:    cfg.UpdatedBy,
		UpdatedAt:    cfg.UpdatedAt.Format(time.RFC3339),
	}
}

// ToAuthUserDTO converts a user model for authentication responses.
func ToAuthUserDTO(user models.User, isAdmin bool) dto.AuthUserDTO {
	return dto.AuthUserDTO{
		ID:        user.ID,
		UUID:      user.UUID.String(),
		Email:     user.Email,
		IsAdmin:   isAdmin,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}
