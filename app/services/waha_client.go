// Package services provides external service integrations and technical concerns like messaging and tokens
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/controlcuentas/admin-api/config"
	"github.com/controlcuentas/admin-api/utils"
)

// Message gateway error constants
var (
	ErrPhoneRequired      = fmt.Errorf("phone number is required")
	ErrGatewayDisabled    = fmt.Errorf("whatsapp gateway is not configured")
	ErrGatewayUnavailable = fmt.Errorf("whatsapp gateway is unavailable")
)

// MessageGateway handles WhatsApp message delivery through a WAHA
// (WhatsApp HTTP API) instance.
type MessageGateway interface {
	// FormatPhoneNumber normalizes a raw phone number into a WhatsApp
	// chat ID (e.g. 593987654321@c.us).
	FormatPhoneNumber(phone string) (string, error)
	// CheckConnection reports the gateway session state.
	CheckConnection(ctx context.Context) (*SessionStatus, error)
	// SendText delivers a text message to the given phone number and
	// returns the provider message ID.
	SendText(ctx context.Context, phone, message string) (string, error)
}

// SessionStatus describes the state of the WAHA session.
type SessionStatus struct {
	Connected bool   `json:"connected"`
	Status    string `json:"status"`
	Session   string `json:"session"`
}

// WAHAClient implements MessageGateway against a WAHA HTTP endpoint.
type WAHAClient struct {
	config *config.WAHAConfig
	client *http.Client
}

// sendTextRequest is the WAHA /api/sendText payload.
type sendTextRequest struct {
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
	Session string `json:"session"`
}

// sendTextResponse is the subset of the WAHA send response we consume.
// Older WAHA versions use "messageId" instead of "id".
type sendTextResponse struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}

// sessionResponse is the WAHA /api/sessions/{name} payload.
type sessionResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

var phoneNoiseRegex = regexp.MustCompile(`[\s\-\(\)]`)

// NewWAHAClient creates a new WAHA message gateway.
func NewWAHAClient(cfg *config.WAHAConfig) MessageGateway {
	return &WAHAClient{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FormatPhoneNumber normalizes a phone number into WhatsApp chat ID format.
// Numbers in local Ecuadorian format (leading 0 or bare 9 digits) get the
// 593 country code; international numbers keep their own.
func (w *WAHAClient) FormatPhoneNumber(phone string) (string, error) {
	if phone == "" {
		return "", ErrPhoneRequired
	}

	cleaned := phoneNoiseRegex.ReplaceAllString(phone, "")
	cleaned = strings.TrimPrefix(cleaned, "+")

	if strings.HasPrefix(cleaned, "0") {
		cleaned = "593" + cleaned[1:]
	}
	if len(cleaned) == 9 {
		cleaned = "593" + cleaned
	}

	return cleaned + "@c.us", nil
}

// CheckConnection queries the WAHA session endpoint. The session is usable
// when its status is WORKING or READY.
func (w *WAHAClient) CheckConnection(ctx context.Context) (*SessionStatus, error) {
	if !w.config.Enabled {
		return &SessionStatus{Connected: false, Status: "DISABLED", Session: w.config.Session}, nil
	}

	url := fmt.Sprintf("%s/api/sessions/%s", strings.TrimSuffix(w.config.URL, "/"), w.config.Session)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session request: %w", err)
	}
	if w.config.APIKey != "" {
		req.Header.Set("X-Api-Key", w.config.APIKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}

	connected := session.Status == "WORKING" || session.Status == "READY"
	return &SessionStatus{
		Connected: connected,
		Status:    session.Status,
		Session:   w.config.Session,
	}, nil
}

// SendText posts a text message to WAHA and returns the provider message ID.
func (w *WAHAClient) SendText(ctx context.Context, phone, message string) (string, error) {
	if !w.config.Enabled {
		return "", ErrGatewayDisabled
	}

	chatID, err := w.FormatPhoneNumber(phone)
	if err != nil {
		return "", err
	}

	payload := sendTextRequest{
		ChatID:  chatID,
		Text:    message,
		Session: w.config.Session,
	}
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/api/sendText", strings.TrimSuffix(w.config.URL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(requestBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.config.APIKey != "" {
		req.Header.Set("X-Api-Key", w.config.APIKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read send response: %w", err)
	}

	var result sendTextResponse
	if len(body) > 0 {
		// Tolerate non-JSON error bodies; status code decides below.
		_ = json.Unmarshal(body, &result)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if result.Message != "" {
			return "", fmt.Errorf("whatsapp delivery failed for %s: %s (%d)", phone, result.Message, resp.StatusCode)
		}
		return "", fmt.Errorf("whatsapp delivery failed for %s: status %d", phone, resp.StatusCode)
	}

	messageID := result.ID
	if messageID == "" {
		messageID = result.MessageID
	}
	return messageID, nil
}

// MockMessageGateway implements MessageGateway for testing
type MockMessageGateway struct {
	SentMessages []MockSentMessage
	FailNext     error
	Status       SessionStatus
}

// MockSentMessage records a message captured by the mock gateway.
type MockSentMessage struct {
	Phone   string
	ChatID  string
	Message string
	SentAt  time.Time
}

// NewMockMessageGateway creates a new mock gateway reporting a working session.
func NewMockMessageGateway() *MockMessageGateway {
	return &MockMessageGateway{
		SentMessages: make([]MockSentMessage, 0),
		Status:       SessionStatus{Connected: true, Status: "WORKING", Session: "default"},
	}
}

// FormatPhoneNumber applies the same normalization rules as the real client.
func (m *MockMessageGateway) FormatPhoneNumber(phone string) (string, error) {
	w := &WAHAClient{}
	return w.FormatPhoneNumber(phone)
}

// CheckConnection reports the configured mock session status.
func (m *MockMessageGateway) CheckConnection(ctx context.Context) (*SessionStatus, error) {
	status := m.Status
	return &status, nil
}

// SendText records the message. When FailNext is set it fails once and
// clears itself.
func (m *MockMessageGateway) SendText(ctx context.Context, phone, message string) (string, error) {
	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return "", err
	}

	chatID, err := m.FormatPhoneNumber(phone)
	if err != nil {
		return "", err
	}

	m.SentMessages = append(m.SentMessages, MockSentMessage{
		Phone:   phone,
		ChatID:  chatID,
		Message: message,
		SentAt:  utils.UTCNow(),
	})
	return fmt.Sprintf("mock-%d", len(m.SentMessages)), nil
}

// ClearSentMessages clears the captured messages list.
func (m *MockMessageGateway) ClearSentMessages() {
	m.SentMessages = make([]MockSentMessage, 0)
}
