package dto

// SendNotificationRequest targets a single account with a fixed template.
type SendNotificationRequest struct {
	AccountID uint `json:"account_id" validate:"required"`
}

// SendCustomRequest targets a single account with a caller-supplied
// template; {field} tokens are substituted from the account record.
type SendCustomRequest struct {
	AccountID uint   `json:"account_id" validate:"required"`
	Template  string `json:"template" validate:"required,max=4000"`
}

// SendMessageResponse represents one dispatch outcome.
type SendMessageResponse struct {
	Message          string  `json:"message"`
	AccountID        uint    `json:"account_id"`
	Phone            string  `json:"phone"`
	NotificationType string  `json:"notification_type"`
	Success          bool    `json:"success"`
	MessageID        *string `json:"message_id,omitempty"`
	Error            *string `json:"error,omitempty"`
}

// BulkSendItem is one entry in a bulk dispatch request.
type BulkSendItem struct {
	AccountID uint    `json:"account_id" validate:"required"`
	Type      string  `json:"type" validate:"required,oneof=payment_reminder custom"`
	Template  *string `json:"template,omitempty" validate:"omitempty,max=4000"`
}

// SendBulkRequest dispatches to a caller-supplied list of accounts.
type SendBulkRequest struct {
	Items   []BulkSendItem `json:"items" validate:"required,min=1,max=500,dive"`
	DelayMs *int           `json:"delay_ms,omitempty" validate:"omitempty,min=0,max=60000"`
}

// BulkSendResult is the per-item outcome inside a bulk response.
type BulkSendResult struct {
	AccountID uint    `json:"account_id"`
	Phone     *string `json:"phone,omitempty"`
	Type      string  `json:"type"`
	Success   bool    `json:"success"`
	Skipped   bool    `json:"skipped,omitempty"`
	MessageID *string `json:"message_id,omitempty"`
	Error     *string `json:"error,omitempty"`
}

// SendBulkResponse aggregates a bulk dispatch run.
type SendBulkResponse struct {
	Message string           `json:"message"`
	Total   int              `json:"total"`
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Results []BulkSendResult `json:"results"`
}

// GatewayStatusResponse reports the message gateway session health.
type GatewayStatusResponse struct {
	Connected bool   `json:"connected"`
	Status    string `json:"status"`
	Session   string `json:"session"`
}
