package handlers

import (
	"context"
	"time"

	"github.com/controlcuentas/admin-api/app/dto"
	"github.com/controlcuentas/admin-api/app/middleware"
	businessflow "github.com/controlcuentas/admin-api/business_flow"
	"github.com/controlcuentas/admin-api/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// WhatsAppHandlerInterface defines the contract for WhatsApp dispatch handlers.
type WhatsAppHandlerInterface interface {
	SendPaymentReminder(c fiber.Ctx) error
	SendPaymentConfirmation(c fiber.Ctx) error
	SendRenewal(c fiber.Ctx) error
	SendCustom(c fiber.Ctx) error
	SendBulk(c fiber.Ctx) error
	Status(c fiber.Ctx) error
}

// WhatsAppHandler handles WhatsApp dispatch requests.
type WhatsAppHandler struct {
	flow      businessflow.WhatsAppFlow
	validator *validator.Validate
}

// NewWhatsAppHandler creates a new WhatsApp handler.
func NewWhatsAppHandler(flow businessflow.WhatsAppFlow) *WhatsAppHandler {
	return &WhatsAppHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *WhatsAppHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *WhatsAppHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// SendPaymentReminder dispatches an urgency-graded payment reminder.
// @Summary Send payment reminder
// @Description Format and dispatch the payment reminder for one account (admin)
// @Tags WhatsApp
// @Accept json
// @Produce json
// @Param request body dto.SendNotificationRequest true "Target account"
// @Success 200 {object} dto.APIResponse{data=dto.SendMessageResponse} "Dispatched"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/whatsapp/send-payment-reminder [post]
func (h *WhatsAppHandler) SendPaymentReminder(c fiber.Ctx) error {
	return h.sendSingle(c, "/admin/whatsapp/send-payment-reminder", h.flow.SendPaymentReminder)
}

// SendPaymentConfirmation dispatches the payment confirmation text.
// @Summary Send payment confirmation
// @Description Dispatch the payment confirmation for one account (admin)
// @Tags WhatsApp
// @Accept json
// @Produce json
// @Param request body dto.SendNotificationRequest true "Target account"
// @Success 200 {object} dto.APIResponse{data=dto.SendMessageResponse} "Dispatched"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/whatsapp/send-payment-confirmation [post]
func (h *WhatsAppHandler) SendPaymentConfirmation(c fiber.Ctx) error {
	return h.sendSingle(c, "/admin/whatsapp/send-payment-confirmation", h.flow.SendPaymentConfirmation)
}

// SendRenewal dispatches the upcoming-renewal notice.
// @Summary Send renewal notice
// @Description Dispatch the upcoming-renewal notice for one account (admin)
// @Tags WhatsApp
// @Accept json
// @Produce json
// @Param request body dto.SendNotificationRequest true "Target account"
// @Success 200 {object} dto.APIResponse{data=dto.SendMessageResponse} "Dispatched"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/whatsapp/send-renewal [post]
func (h *WhatsAppHandler) SendRenewal(c fiber.Ctx) error {
	return h.sendSingle(c, "/admin/whatsapp/send-renewal", h.flow.SendRenewal)
}

func (h *WhatsAppHandler) sendSingle(c fiber.Ctx, endpoint string, send func(context.Context, *dto.SendNotificationRequest, *businessflow.ClientMetadata) (*dto.SendMessageResponse, error)) error {
	var req dto.SendNotificationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, e := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(e))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := send(h.createRequestContext(c, endpoint), &req, metadata)
	if err != nil {
		return h.mapDispatchError(c, err)
	}
	middleware.RecordNotification(res.NotificationType, res.Success)
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// SendCustom dispatches a caller-supplied template with {field} substitution.
// @Summary Send custom message
// @Description Substitute {field} tokens and dispatch for one account (admin)
// @Tags WhatsApp
// @Accept json
// @Produce json
// @Param request body dto.SendCustomRequest true "Target account and template"
// @Success 200 {object} dto.APIResponse{data=dto.SendMessageResponse} "Dispatched"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/whatsapp/send-custom [post]
func (h *WhatsAppHandler) SendCustom(c fiber.Ctx) error {
	var req dto.SendCustomRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, e := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(e))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.SendCustom(h.createRequestContext(c, "/admin/whatsapp/send-custom"), &req, metadata)
	if err != nil {
		return h.mapDispatchError(c, err)
	}
	middleware.RecordNotification(res.NotificationType, res.Success)
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// SendBulk dispatches a list of items sequentially with a delay.
// @Summary Send bulk messages
// @Description Dispatch reminders and custom messages to a list of accounts (admin)
// @Tags WhatsApp
// @Accept json
// @Produce json
// @Param request body dto.SendBulkRequest true "Bulk items"
// @Success 200 {object} dto.APIResponse{data=dto.SendBulkResponse} "Completed"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/whatsapp/send-bulk [post]
func (h *WhatsAppHandler) SendBulk(c fiber.Ctx) error {
	var req dto.SendBulkRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, e := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(e))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	// Bulk runs serialize sends with an inter-message delay, so the
	// request budget scales with the item count.
	ctx := h.createRequestContextWithTimeout(c, "/admin/whatsapp/send-bulk", 30*time.Minute)
	res, err := h.flow.SendBulk(ctx, &req, metadata)
	if err != nil {
		if be, ok := err.(*businessflow.BusinessError); ok {
			if be.Code == "INVALID_REQUEST" {
				return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", be.Code, be.Error())
			}
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Bulk dispatch failed", "BULK_DISPATCH_FAILED", nil)
	}
	for _, result := range res.Results {
		if result.Skipped {
			continue
		}
		middleware.RecordNotification(result.Type, result.Success)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Bulk dispatch completed", res)
}

// Status reports the message gateway session health.
// @Summary Gateway status
// @Description WAHA session health (admin)
// @Tags WhatsApp
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.GatewayStatusResponse} "Retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 502 {object} dto.APIResponse "Gateway unavailable"
// @Router /admin/whatsapp/status [get]
func (h *WhatsAppHandler) Status(c fiber.Ctx) error {
	res, err := h.flow.GatewayStatus(h.createRequestContext(c, "/admin/whatsapp/status"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadGateway, "Message gateway unavailable", "GATEWAY_UNAVAILABLE", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Gateway status retrieved", res)
}

func (h *WhatsAppHandler) mapDispatchError(c fiber.Ctx, err error) error {
	if be, ok := err.(*businessflow.BusinessError); ok {
		switch be.Code {
		case "INVALID_REQUEST", "ACCOUNT_ID_REQUIRED", "TEMPLATE_REQUIRED", "ACCOUNT_NO_PHONE":
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", be.Code, be.Error())
		case "ACCOUNT_NOT_FOUND":
			return h.ErrorResponse(c, fiber.StatusNotFound, "Account not found", be.Code, be.Error())
		}
	}
	return h.ErrorResponse(c, fiber.StatusInternalServerError, "Dispatch failed", "DISPATCH_FAILED", nil)
}

func (h *WhatsAppHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *WhatsAppHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	if userID, ok := c.Locals("user_id").(uint); ok && userID != 0 {
		ctx = context.WithValue(ctx, utils.UserIDKey, userID)
	}
	return ctx
}
