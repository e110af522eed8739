package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/controlcuentas/admin-api/app/dto"
	"github.com/controlcuentas/admin-api/app/services"
	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type whatsappFlowFixture struct {
	flow         WhatsAppFlow
	accountRepo  *fakeAccountRepo
	trackingRepo *fakeTrackingRepo
	gateway      *services.MockMessageGateway
}

func newWhatsAppFlowFixture() *whatsappFlowFixture {
	f := &whatsappFlowFixture{
		accountRepo:  &fakeAccountRepo{accounts: map[uint]*models.Account{}},
		trackingRepo: &fakeTrackingRepo{},
		gateway:      services.NewMockMessageGateway(),
	}
	f.flow = NewWhatsAppFlow(f.accountRepo, f.trackingRepo, f.gateway, time.Millisecond)
	return f
}

func (f *whatsappFlowFixture) addAccount(id uint, daysUntilDue int, phone string) *models.Account {
	due := utils.StartOfDay(utils.UTCNow().AddDate(0, 0, daysUntilDue))
	account := accountDue(due, phone)
	account.ID = id
	f.accountRepo.accounts[id] = account
	return account
}

func TestSendPaymentReminderTracksClassifiedType(t *testing.T) {
	fx := newWhatsAppFlowFixture()
	fx.addAccount(7, 0, "0987654321")

	resp, err := fx.flow.SendPaymentReminder(context.Background(), &dto.SendNotificationRequest{AccountID: 7}, nil)

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, models.NotificationPagoHoy, resp.NotificationType)
	assert.Equal(t, "0987654321", resp.Phone)
	require.NotNil(t, resp.MessageID)
	assert.Equal(t, "mock-1", *resp.MessageID)

	require.Len(t, fx.gateway.SentMessages, 1)
	assert.Equal(t, "593987654321@c.us", fx.gateway.SentMessages[0].ChatID)
	assert.Contains(t, fx.gateway.SentMessages[0].Message, "¡PAGO ATRASADO!")

	require.Len(t, fx.trackingRepo.saved, 1)
	row := fx.trackingRepo.saved[0]
	assert.Equal(t, uint(7), row.AccountID)
	assert.Equal(t, models.NotificationPagoHoy, row.NotificationType)
	require.NotNil(t, row.Success)
	assert.True(t, *row.Success)
}

func TestSendPaymentReminderOverdueType(t *testing.T) {
	fx := newWhatsAppFlowFixture()
	fx.addAccount(7, -4, "0987654321")

	resp, err := fx.flow.SendPaymentReminder(context.Background(), &dto.SendNotificationRequest{AccountID: 7}, nil)

	require.NoError(t, err)
	assert.Equal(t, models.NotificationPagoAtrasado, resp.NotificationType)
}

func TestSendPaymentConfirmation(t *testing.T) {
	fx := newWhatsAppFlowFixture()
	fx.addAccount(7, 30, "0987654321")

	resp, err := fx.flow.SendPaymentConfirmation(context.Background(), &dto.SendNotificationRequest{AccountID: 7}, nil)

	require.NoError(t, err)
	assert.Equal(t, models.NotificationPagoConfirmado, resp.NotificationType)
	require.Len(t, fx.gateway.SentMessages, 1)
	assert.Contains(t, fx.gateway.SentMessages[0].Message, "¡Pago confirmado exitosamente!")
}

func TestSendRenewal(t *testing.T) {
	fx := newWhatsAppFlowFixture()
	fx.addAccount(7, 5, "0987654321")

	resp, err := fx.flow.SendRenewal(context.Background(), &dto.SendNotificationRequest{AccountID: 7}, nil)

	require.NoError(t, err)
	assert.Equal(t, models.NotificationRenovacion, resp.NotificationType)
	require.Len(t, fx.gateway.SentMessages, 1)
	assert.Contains(t, fx.gateway.SentMessages[0].Message, "próxima a caducar")
}

func TestGatewayFailureReportedOnResponse(t *testing.T) {
	fx := newWhatsAppFlowFixture()
	fx.addAccount(7, 1, "0987654321")
	fx.gateway.FailNext = errors.New("session not working")

	resp, err := fx.flow.SendPaymentReminder(context.Background(), &dto.SendNotificationRequest{AccountID: 7}, nil)

	// Delivery failures are data, not request errors.
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Message dispatch failed", resp.Message)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "session not working")
	assert.Nil(t, resp.MessageID)

	require.Len(t, fx.trackingRepo.saved, 1)
	row := fx.trackingRepo.saved[0]
	require.NotNil(t, row.Success)
	assert.False(t, *row.Success)
	require.NotNil(t, row.ErrorMessage)
	assert.Contains(t, *row.ErrorMessage, "session not working")
}

func TestTrackingSaveFailureDoesNotFailDispatch(t *testing.T) {
	fx := newWhatsAppFlowFixture()
	fx.addAccount(7, 1, "0987654321")
	fx.trackingRepo.saveErr = errors.New("tracking table unavailable")

	resp, err := fx.flow.SendPaymentReminder(context.Background(), &dto.SendNotificationRequest{AccountID: 7}, nil)

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Len(t, fx.gateway.SentMessages, 1)
}

func TestSendCustomRendersTemplate(t *testing.T) {
	fx := newWhatsAppFlowFixture()
	fx.addAccount(7, 3, "0987654321")

	resp, err := fx.flow.SendCustom(context.Background(), &dto.SendCustomRequest{
		AccountID: 7,
		Template:  "Hola {owner}, tu plan cuesta ${price}",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, models.NotificationCustom, resp.NotificationType)
	require.Len(t, fx.gateway.SentMessages, 1)
	assert.Equal(t, "Hola Maria, tu plan cuesta $4.50", fx.gateway.SentMessages[0].Message)
}

func TestSendCustomRequiresTemplate(t *testing.T) {
	fx := newWhatsAppFlowFixture()
	fx.addAccount(7, 3, "0987654321")

	_, err := fx.flow.SendCustom(context.Background(), &dto.SendCustomRequest{AccountID: 7}, nil)

	var bizErr *BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, "TEMPLATE_REQUIRED", bizErr.Code)
	assert.ErrorIs(t, err, ErrTemplateRequired)
	assert.Empty(t, fx.gateway.SentMessages)
}

func TestResolveAccountErrors(t *testing.T) {
	fx := newWhatsAppFlowFixture()
	fx.addAccount(8, 3, "")

	tests := []struct {
		name      string
		accountID uint
		wantCode  string
	}{
		{"zero id", 0, "ACCOUNT_ID_REQUIRED"},
		{"unknown account", 99, "ACCOUNT_NOT_FOUND"},
		{"account without phone", 8, "ACCOUNT_NO_PHONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.flow.SendPaymentReminder(context.Background(), &dto.SendNotificationRequest{AccountID: tt.accountID}, nil)

			var bizErr *BusinessError
			require.ErrorAs(t, err, &bizErr)
			assert.Equal(t, tt.wantCode, bizErr.Code)
		})
	}
}

func TestSendBulk(t *testing.T) {
	fx := newWhatsAppFlowFixture()
	fx.addAccount(1, 0, "0981111111")
	fx.addAccount(2, 3, "0982222222")
	fx.addAccount(3, 3, "")
	fx.addAccount(5, 3, "0985555555")

	resp, err := fx.flow.SendBulk(context.Background(), &dto.SendBulkRequest{
		Items: []dto.BulkSendItem{
			{AccountID: 1, Type: "payment_reminder"},
			{AccountID: 2, Type: "custom", Template: utils.ToPtr("Hola {owner}")},
			{AccountID: 3, Type: "payment_reminder"},
			{AccountID: 4, Type: "payment_reminder"},
			{AccountID: 5, Type: "custom"},
		},
		DelayMs: utils.ToPtr(0),
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, 2, resp.Sent)
	assert.Equal(t, 2, resp.Failed)
	require.Len(t, resp.Results, 5)

	assert.True(t, resp.Results[0].Success)
	assert.Equal(t, "payment_reminder", resp.Results[0].Type)

	assert.True(t, resp.Results[1].Success)
	assert.Equal(t, "custom", resp.Results[1].Type)

	// Missing phone skips the item without counting it as a failure.
	assert.True(t, resp.Results[2].Skipped)
	assert.False(t, resp.Results[2].Success)
	assert.Nil(t, resp.Results[2].Error)

	require.NotNil(t, resp.Results[3].Error)
	assert.Contains(t, *resp.Results[3].Error, "not found")

	require.NotNil(t, resp.Results[4].Error)
	assert.Contains(t, *resp.Results[4].Error, "template is required")

	// Direct payment reminders go out before the queued custom messages.
	require.Len(t, fx.gateway.SentMessages, 2)
	assert.Equal(t, "0981111111", fx.gateway.SentMessages[0].Phone)
	assert.Equal(t, "0982222222", fx.gateway.SentMessages[1].Phone)
	assert.Equal(t, "Hola Maria", fx.gateway.SentMessages[1].Message)
}

func TestSendBulkUnrecognizedType(t *testing.T) {
	fx := newWhatsAppFlowFixture()
	fx.addAccount(1, 3, "0981111111")

	resp, err := fx.flow.SendBulk(context.Background(), &dto.SendBulkRequest{
		Items:   []dto.BulkSendItem{{AccountID: 1, Type: "renewal"}},
		DelayMs: utils.ToPtr(0),
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Failed)
	require.NotNil(t, resp.Results[0].Error)
	assert.Contains(t, *resp.Results[0].Error, "unrecognized item type")
}

func TestSendBulkFailedItemDoesNotAbortBatch(t *testing.T) {
	fx := newWhatsAppFlowFixture()
	fx.addAccount(1, 3, "0981111111")
	fx.addAccount(2, 3, "0982222222")
	fx.gateway.FailNext = errors.New("session not working")

	resp, err := fx.flow.SendBulk(context.Background(), &dto.SendBulkRequest{
		Items: []dto.BulkSendItem{
			{AccountID: 1, Type: "payment_reminder"},
			{AccountID: 2, Type: "payment_reminder"},
		},
		DelayMs: utils.ToPtr(0),
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Sent)
	assert.Equal(t, 1, resp.Failed)
	assert.False(t, resp.Results[0].Success)
	assert.True(t, resp.Results[1].Success)
}

func TestSendBulkRequiresItems(t *testing.T) {
	fx := newWhatsAppFlowFixture()

	for _, req := range []*dto.SendBulkRequest{nil, {}} {
		_, err := fx.flow.SendBulk(context.Background(), req, nil)

		var bizErr *BusinessError
		require.ErrorAs(t, err, &bizErr)
		assert.Equal(t, "INVALID_REQUEST", bizErr.Code)
	}
}

func TestSendBulkCancelledBetweenQueuedMessages(t *testing.T) {
	fx := newWhatsAppFlowFixture()
	fx.addAccount(1, 3, "0981111111")
	fx.addAccount(2, 3, "0982222222")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.flow.SendBulk(ctx, &dto.SendBulkRequest{
		Items: []dto.BulkSendItem{
			{AccountID: 1, Type: "custom", Template: utils.ToPtr("a")},
			{AccountID: 2, Type: "custom", Template: utils.ToPtr("b")},
		},
		DelayMs: utils.ToPtr(60000),
	}, nil)

	var bizErr *BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, "BULK_CANCELLED", bizErr.Code)
}

func TestGatewayStatus(t *testing.T) {
	fx := newWhatsAppFlowFixture()

	out, err := fx.flow.GatewayStatus(context.Background())

	require.NoError(t, err)
	assert.True(t, out.Connected)
	assert.Equal(t, "WORKING", out.Status)
	assert.Equal(t, "default", out.Session)
}
