package businessflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/controlcuentas/admin-api/app/dto"
	"github.com/controlcuentas/admin-api/app/services"
	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/repository"
	"github.com/controlcuentas/admin-api/utils"
)

// WhatsAppFlow covers message dispatch through the gateway: single
// notifications, custom templates, bulk runs and session health.
type WhatsAppFlow interface {
	SendPaymentReminder(ctx context.Context, req *dto.SendNotificationRequest, metadata *ClientMetadata) (*dto.SendMessageResponse, error)
	SendPaymentConfirmation(ctx context.Context, req *dto.SendNotificationRequest, metadata *ClientMetadata) (*dto.SendMessageResponse, error)
	SendRenewal(ctx context.Context, req *dto.SendNotificationRequest, metadata *ClientMetadata) (*dto.SendMessageResponse, error)
	SendCustom(ctx context.Context, req *dto.SendCustomRequest, metadata *ClientMetadata) (*dto.SendMessageResponse, error)
	SendBulk(ctx context.Context, req *dto.SendBulkRequest, metadata *ClientMetadata) (*dto.SendBulkResponse, error)
	GatewayStatus(ctx context.Context) (*dto.GatewayStatusResponse, error)
}

// WhatsAppFlowImpl implements WhatsAppFlow
type WhatsAppFlowImpl struct {
	accountRepo  repository.AccountRepository
	trackingRepo repository.NotificationTrackingRepository
	gateway      services.MessageGateway
	bulkDelay    time.Duration
}

// NewWhatsAppFlow creates a new WhatsApp dispatch flow instance
func NewWhatsAppFlow(
	accountRepo repository.AccountRepository,
	trackingRepo repository.NotificationTrackingRepository,
	gateway services.MessageGateway,
	bulkDelay time.Duration,
) WhatsAppFlow {
	if bulkDelay <= 0 {
		bulkDelay = utils.DefaultBulkDelay
	}
	return &WhatsAppFlowImpl{
		accountRepo:  accountRepo,
		trackingRepo: trackingRepo,
		gateway:      gateway,
		bulkDelay:    bulkDelay,
	}
}

// SendPaymentReminder formats and dispatches the urgency-graded payment
// reminder. The tracked notification type follows the due-date
// classification so statistics line up with the scheduler preview.
func (f *WhatsAppFlowImpl) SendPaymentReminder(ctx context.Context, req *dto.SendNotificationRequest, metadata *ClientMetadata) (*dto.SendMessageResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}
	account, err := f.resolveAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	notificationType := ClassifyAccount(account, now).NotificationType
	message := PaymentReminderMessage(account, now)
	return f.dispatch(ctx, account, notificationType, message)
}

// SendPaymentConfirmation dispatches the payment confirmation text.
func (f *WhatsAppFlowImpl) SendPaymentConfirmation(ctx context.Context, req *dto.SendNotificationRequest, metadata *ClientMetadata) (*dto.SendMessageResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}
	account, err := f.resolveAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	message := PaymentConfirmationMessage(account)
	return f.dispatch(ctx, account, models.NotificationPagoConfirmado, message)
}

// SendRenewal dispatches the upcoming-renewal notice.
func (f *WhatsAppFlowImpl) SendRenewal(ctx context.Context, req *dto.SendNotificationRequest, metadata *ClientMetadata) (*dto.SendMessageResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}
	account, err := f.resolveAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	message := RenewalMessage(account, utils.UTCNow())
	return f.dispatch(ctx, account, models.NotificationRenovacion, message)
}

// SendCustom substitutes {field} tokens in a caller-supplied template
// and dispatches the result.
func (f *WhatsAppFlowImpl) SendCustom(ctx context.Context, req *dto.SendCustomRequest, metadata *ClientMetadata) (*dto.SendMessageResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}
	if req.Template == "" {
		return nil, NewBusinessError("TEMPLATE_REQUIRED", "Template is required", ErrTemplateRequired)
	}
	account, err := f.resolveAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	message := RenderTemplate(req.Template, account)
	return f.dispatch(ctx, account, models.NotificationCustom, message)
}

// SendBulk processes a caller-supplied item list. Accounts without a
// phone are skipped, never failed. payment_reminder items are sent
// directly; custom items are rendered, queued and then dispatched
// sequentially with a delay between consecutive messages. A failed item
// never aborts the batch.
func (f *WhatsAppFlowImpl) SendBulk(ctx context.Context, req *dto.SendBulkRequest, metadata *ClientMetadata) (*dto.SendBulkResponse, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, NewBusinessError("INVALID_REQUEST", "at least one item is required", nil)
	}

	delay := f.bulkDelay
	if req.DelayMs != nil {
		delay = time.Duration(*req.DelayMs) * time.Millisecond
	}

	type queuedMessage struct {
		account *models.Account
		message string
	}

	results := make([]dto.BulkSendResult, 0, len(req.Items))
	queue := make([]queuedMessage, 0, len(req.Items))
	queueIdx := make([]int, 0, len(req.Items))
	now := utils.UTCNow()

	for _, item := range req.Items {
		result := dto.BulkSendResult{AccountID: item.AccountID, Type: item.Type}

		account, err := f.accountRepo.ByID(ctx, item.AccountID)
		if err != nil {
			result.Error = utils.ToPtr(err.Error())
			results = append(results, result)
			continue
		}
		if account == nil {
			result.Error = utils.ToPtr(fmt.Sprintf("account %d not found", item.AccountID))
			results = append(results, result)
			continue
		}
		if !account.HasPhone() {
			result.Skipped = true
			results = append(results, result)
			continue
		}
		result.Phone = account.Phone

		switch item.Type {
		case "payment_reminder":
			notificationType := ClassifyAccount(account, now).NotificationType
			sendResp, err := f.dispatch(ctx, account, notificationType, PaymentReminderMessage(account, now))
			if err != nil {
				result.Error = utils.ToPtr(err.Error())
			} else {
				result.Success = sendResp.Success
				result.MessageID = sendResp.MessageID
				result.Error = sendResp.Error
			}
			results = append(results, result)
		case "custom":
			if item.Template == nil || *item.Template == "" {
				result.Error = utils.ToPtr(ErrTemplateRequired.Error())
				results = append(results, result)
				continue
			}
			queue = append(queue, queuedMessage{account: account, message: RenderTemplate(*item.Template, account)})
			queueIdx = append(queueIdx, len(results))
			results = append(results, result)
		default:
			result.Error = utils.ToPtr(fmt.Sprintf("unrecognized item type %q", item.Type))
			results = append(results, result)
		}
	}

	for i, qm := range queue {
		sendResp, err := f.dispatch(ctx, qm.account, models.NotificationCustom, qm.message)
		result := &results[queueIdx[i]]
		if err != nil {
			result.Error = utils.ToPtr(err.Error())
		} else {
			result.Success = sendResp.Success
			result.MessageID = sendResp.MessageID
			result.Error = sendResp.Error
		}

		if i < len(queue)-1 {
			select {
			case <-ctx.Done():
				return nil, NewBusinessError("BULK_CANCELLED", "Bulk dispatch cancelled", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	sent, failed := 0, 0
	for _, r := range results {
		if r.Skipped {
			continue
		}
		if r.Success {
			sent++
		} else {
			failed++
		}
	}

	return &dto.SendBulkResponse{
		Message: "Bulk dispatch completed",
		Total:   len(req.Items),
		Sent:    sent,
		Failed:  failed,
		Results: results,
	}, nil
}

// GatewayStatus reports the message gateway session health.
func (f *WhatsAppFlowImpl) GatewayStatus(ctx context.Context) (*dto.GatewayStatusResponse, error) {
	status, err := f.gateway.CheckConnection(ctx)
	if err != nil {
		return nil, NewBusinessError("GATEWAY_UNAVAILABLE", "Failed to reach message gateway", err)
	}
	return &dto.GatewayStatusResponse{
		Connected: status.Connected,
		Status:    status.Status,
		Session:   status.Session,
	}, nil
}

// resolveAccount loads an account and enforces the phone requirement.
func (f *WhatsAppFlowImpl) resolveAccount(ctx context.Context, accountID uint) (*models.Account, error) {
	if accountID == 0 {
		return nil, NewBusinessError("ACCOUNT_ID_REQUIRED", "account_id is required", nil)
	}
	account, err := f.accountRepo.ByID(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_FETCH_FAILED", "Failed to fetch account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", fmt.Sprintf("Account %d not found", accountID), ErrAccountNotFound)
	}
	if !account.HasPhone() {
		return nil, NewBusinessError("ACCOUNT_NO_PHONE", fmt.Sprintf("Account %d has no phone number", accountID), ErrAccountNoPhone)
	}
	return account, nil
}

// dispatch sends one message with the per-call timeout and records the
// attempt, success or failure, as one tracking row. Gateway failures are
// reported on the response, never raised as request errors, so bulk
// callers can aggregate them.
func (f *WhatsAppFlowImpl) dispatch(ctx context.Context, account *models.Account, notificationType, message string) (*dto.SendMessageResponse, error) {
	sendCtx, cancel := context.WithTimeout(ctx, utils.DispatchTimeout)
	defer cancel()

	messageID, sendErr := f.gateway.SendText(sendCtx, *account.Phone, message)

	success := sendErr == nil
	row := &models.NotificationTracking{
		AccountID:        account.ID,
		NotificationType: notificationType,
		Success:          &success,
		Phone:            account.Phone,
	}
	if messageID != "" {
		row.MessageID = &messageID
	}
	if sendErr != nil {
		row.ErrorMessage = utils.ToPtr(sendErr.Error())
	}
	if err := f.trackingRepo.Save(ctx, row); err != nil {
		log.Printf("tracking save failed for account %d (%s): %v", account.ID, notificationType, err)
	}

	resp := &dto.SendMessageResponse{
		Message:          "Message dispatched",
		AccountID:        account.ID,
		Phone:            *account.Phone,
		NotificationType: notificationType,
		Success:          success,
	}
	if messageID != "" {
		resp.MessageID = &messageID
	}
	if sendErr != nil {
		resp.Message = "Message dispatch failed"
		resp.Error = utils.ToPtr(sendErr.Error())
	}
	return resp, nil
}
