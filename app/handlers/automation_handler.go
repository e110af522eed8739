package handlers

import (
	"context"
	"time"

	"github.com/controlcuentas/admin-api/app/dto"
	businessflow "github.com/controlcuentas/admin-api/business_flow"
	"github.com/controlcuentas/admin-api/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AutomationHandlerInterface defines the contract for automation handlers.
type AutomationHandlerInterface interface {
	GetConfig(c fiber.Ctx) error
	UpdateConfig(c fiber.Ctx) error
	ListLogs(c fiber.Ctx) error
	StatsToday(c fiber.Ctx) error
	UpcomingMessages(c fiber.Ctx) error
	RateLimit(c fiber.Ctx) error
	Track(c fiber.Ctx) error
	ExportTracking(c fiber.Ctx) error
}

// AutomationHandler handles automation scheduler requests.
type AutomationHandler struct {
	flow      businessflow.AutomationFlow
	validator *validator.Validate
}

// NewAutomationHandler creates a new automation handler.
func NewAutomationHandler(flow businessflow.AutomationFlow) *AutomationHandler {
	return &AutomationHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *AutomationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AutomationHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetConfig returns the automation configuration.
// @Summary Get automation config
// @Description Get the automation configuration singleton (admin)
// @Tags Automation
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.AutomationConfigDTO} "Retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/automation/config [get]
func (h *AutomationHandler) GetConfig(c fiber.Ctx) error {
	res, err := h.flow.GetConfig(h.createRequestContext(c, "/admin/automation/config"))
	if err != nil {
		if be, ok := err.(*businessflow.BusinessError); ok {
			if be.Code == "CONFIG_NOT_FOUND" {
				return h.ErrorResponse(c, fiber.StatusNotFound, "Automation config not found", be.Code, be.Error())
			}
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get automation config", "CONFIG_FETCH_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Automation config retrieved", res)
}

// UpdateConfig applies a status transition and/or settings patch.
// @Summary Update automation config
// @Description Update status and tunable parameters; appends one audit log entry (admin)
// @Tags Automation
// @Accept json
// @Produce json
// @Param request body dto.UpdateAutomationConfigRequest true "Config update payload"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateAutomationConfigResponse} "Updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/automation/config [put]
func (h *AutomationHandler) UpdateConfig(c fiber.Ctx) error {
	var req dto.UpdateAutomationConfigRequest
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
	res, err := h.flow.UpdateConfig(h.createRequestContext(c, "/admin/automation/config"), &req, h.callerIdentity(c), metadata)
	if err != nil {
		if be, ok := err.(*businessflow.BusinessError); ok {
			switch be.Code {
			case "INVALID_REQUEST", "INVALID_STATUS":
				return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", be.Code, be.Error())
			case "CONFIG_NOT_FOUND":
				return h.ErrorResponse(c, fiber.StatusNotFound, "Automation config not found", be.Code, be.Error())
			}
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update automation config", "CONFIG_UPDATE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Automation config updated", res)
}

// ListLogs returns the most recent audit log entries.
// @Summary List automation logs
// @Description Most recent 100 automation audit entries, newest first (admin)
// @Tags Automation
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListAutomationLogsResponse} "Retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/automation/logs [get]
func (h *AutomationHandler) ListLogs(c fiber.Ctx) error {
	res, err := h.flow.ListLogs(h.createRequestContext(c, "/admin/automation/logs"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list automation logs", "LOGS_FETCH_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Automation logs retrieved", res)
}

// StatsToday aggregates today's tracking records.
// @Summary Today's notification stats
// @Description Midnight-to-now aggregation of tracking records (admin)
// @Tags Automation
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.TodayStatsResponse} "Retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/automation/stats/today [get]
func (h *AutomationHandler) StatsToday(c fiber.Ctx) error {
	res, err := h.flow.TodayStats(h.createRequestContext(c, "/admin/automation/stats/today"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to aggregate stats", "STATS_FETCH_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Today's stats retrieved", res)
}

// UpcomingMessages returns the computed schedule preview.
// @Summary Upcoming messages preview
// @Description Computed notification schedule ordered by (priority, seconds_until) (admin)
// @Tags Automation
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.UpcomingMessagesResponse} "Retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/automation/upcoming-messages [get]
func (h *AutomationHandler) UpcomingMessages(c fiber.Ctx) error {
	res, err := h.flow.UpcomingMessages(h.createRequestContext(c, "/admin/automation/upcoming-messages"))
	if err != nil {
		if be, ok := err.(*businessflow.BusinessError); ok {
			if be.Code == "CONFIG_NOT_FOUND" {
				return h.ErrorResponse(c, fiber.StatusNotFound, "Automation config not found", be.Code, be.Error())
			}
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute upcoming messages", "SCHEDULE_FETCH_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Upcoming messages computed", res)
}

// RateLimit reports the rolling-hour dispatch allowance.
// @Summary Rate limit status
// @Description Rolling-hour dispatch allowance, advisory (admin)
// @Tags Automation
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.RateLimitResponse} "Retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/automation/rate-limit [get]
func (h *AutomationHandler) RateLimit(c fiber.Ctx) error {
	res, err := h.flow.RateLimit(h.createRequestContext(c, "/admin/automation/rate-limit"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute rate limit", "RATE_LIMIT_FETCH_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Rate limit computed", res)
}

// Track persists one dispatch attempt record.
// @Summary Track a notification
// @Description Persist one notification tracking record (admin)
// @Tags Automation
// @Accept json
// @Produce json
// @Param request body dto.TrackNotificationRequest true "Tracking payload"
// @Success 201 {object} dto.APIResponse{data=dto.TrackNotificationResponse} "Created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/automation/track [post]
func (h *AutomationHandler) Track(c fiber.Ctx) error {
	var req dto.TrackNotificationRequest
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

	res, err := h.flow.Track(h.createRequestContext(c, "/admin/automation/track"), &req)
	if err != nil {
		if be, ok := err.(*businessflow.BusinessError); ok {
			switch be.Code {
			case "INVALID_REQUEST", "INVALID_METADATA":
				return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", be.Code, be.Error())
			case "ACCOUNT_NOT_FOUND":
				return h.ErrorResponse(c, fiber.StatusNotFound, "Account not found", be.Code, be.Error())
			}
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to track notification", "TRACKING_SAVE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Notification tracked", res)
}

// ExportTracking downloads the tracking report as an Excel file.
// @Summary Export tracking records
// @Description Excel report of tracking records since the given date (admin)
// @Tags Automation
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param since query string false "Start date (YYYY-MM-DD), defaults to 30 days ago"
// @Success 200 {file} binary "Excel file"
// @Failure 400 {object} dto.APIResponse "Invalid since date"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/automation/tracking/export [get]
func (h *AutomationHandler) ExportTracking(c fiber.Ctx) error {
	since := utils.UTCNow().AddDate(0, 0, -30)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid since date, expected YYYY-MM-DD", "INVALID_REQUEST", err.Error())
		}
		since = parsed
	}

	filename, data, err := h.flow.ExportTracking(h.createRequestContext(c, "/admin/automation/tracking/export"), since)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export tracking records", "TRACKING_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// callerIdentity returns the authenticated user's email for audit fields.
func (h *AutomationHandler) callerIdentity(c fiber.Ctx) string {
	if email, ok := c.Locals("user_email").(string); ok && email != "" {
		return email
	}
	return "unknown"
}

func (h *AutomationHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *AutomationHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
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
