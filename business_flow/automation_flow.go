package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/controlcuentas/admin-api/app/dto"
	"github.com/controlcuentas/admin-api/config"
	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/repository"
	"github.com/controlcuentas/admin-api/utils"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
)

// AutomationFlow covers the notification scheduler surface: the config
// singleton and its audit trail, the computed schedule preview, rate
// limit accounting and tracking statistics.
type AutomationFlow interface {
	GetConfig(ctx context.Context) (*dto.AutomationConfigDTO, error)
	UpdateConfig(ctx context.Context, req *dto.UpdateAutomationConfigRequest, updatedBy string, metadata *ClientMetadata) (*dto.UpdateAutomationConfigResponse, error)
	ListLogs(ctx context.Context) (*dto.ListAutomationLogsResponse, error)
	TodayStats(ctx context.Context) (*dto.TodayStatsResponse, error)
	UpcomingMessages(ctx context.Context) (*dto.UpcomingMessagesResponse, error)
	RateLimit(ctx context.Context) (*dto.RateLimitResponse, error)
	Track(ctx context.Context, req *dto.TrackNotificationRequest) (*dto.TrackNotificationResponse, error)
	ExportTracking(ctx context.Context, since time.Time) (string, []byte, error)
}

// AutomationFlowImpl implements AutomationFlow
type AutomationFlowImpl struct {
	configRepo   repository.AutomationConfigRepository
	logRepo      repository.AutomationLogRepository
	trackingRepo repository.NotificationTrackingRepository
	accountRepo  repository.AccountRepository
	rc           *redis.Client
	cacheConfig  *config.CacheConfig
}

// NewAutomationFlow creates a new automation flow instance
func NewAutomationFlow(
	configRepo repository.AutomationConfigRepository,
	logRepo repository.AutomationLogRepository,
	trackingRepo repository.NotificationTrackingRepository,
	accountRepo repository.AccountRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) AutomationFlow {
	return &AutomationFlowImpl{
		configRepo:   configRepo,
		logRepo:      logRepo,
		trackingRepo: trackingRepo,
		accountRepo:  accountRepo,
		rc:           rc,
		cacheConfig:  cacheConfig,
	}
}

// GetConfig returns the automation configuration singleton, serving
// from the cache when a valid copy is present.
func (f *AutomationFlowImpl) GetConfig(ctx context.Context) (*dto.AutomationConfigDTO, error) {
	cfg, err := f.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	out := ToAutomationConfigDTO(*cfg)
	return &out, nil
}

// UpdateConfig applies a status transition and/or settings patch to the
// singleton, then appends exactly one audit log entry. A log append
// failure after the config write succeeded surfaces as a warning on the
// response; the config change is never rolled back.
func (f *AutomationFlowImpl) UpdateConfig(ctx context.Context, req *dto.UpdateAutomationConfigRequest, updatedBy string, metadata *ClientMetadata) (*dto.UpdateAutomationConfigResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}

	cfg, err := f.configRepo.Get(ctx)
	if err != nil {
		return nil, NewBusinessError("CONFIG_FETCH_FAILED", "Failed to load automation config", err)
	}
	if cfg == nil {
		return nil, NewBusinessError("CONFIG_NOT_FOUND", "Automation config not found", ErrConfigNotFound)
	}

	before := cfg.Snapshot()
	now := utils.UTCNow()

	action := models.AutomationActionConfigChange
	if req.Status != nil {
		newStatus := models.AutomationStatus(*req.Status)
		if !newStatus.Valid() {
			return nil, NewBusinessError("INVALID_STATUS", fmt.Sprintf("Unrecognized status %q", *req.Status), ErrInvalidStatus)
		}

		oldStatus := cfg.Status
		if newStatus != oldStatus {
			switch {
			case newStatus == models.AutomationStatusPaused:
				action = models.AutomationActionPause
				cfg.PausedAt = &now
				cfg.PausedBy = &updatedBy
				cfg.PausedReason = req.PausedReason
			case oldStatus == models.AutomationStatusPaused && newStatus == models.AutomationStatusActive:
				action = models.AutomationActionResume
				cfg.PausedAt = nil
				cfg.PausedBy = nil
				cfg.PausedReason = nil
			case newStatus == models.AutomationStatusMaintenance:
				action = models.AutomationActionMaintenanceMode
			}
			cfg.Status = newStatus
		}
	}

	if len(req.Config) > 0 {
		if cfg.Settings == nil {
			cfg.Settings = models.SettingsMap{}
		}
		for key, value := range req.Config {
			cfg.Settings[key] = value
		}
	}

	cfg.UpdatedBy = &updatedBy
	if err := f.configRepo.Update(ctx, cfg); err != nil {
		return nil, NewBusinessError("CONFIG_UPDATE_FAILED", "Failed to update automation config", err)
	}
	f.cacheConfigRow(ctx, cfg)

	var warning *string
	logEntry := &models.AutomationLog{
		Action:       action,
		ConfigBefore: before,
		ConfigAfter:  cfg.Snapshot(),
		Reason:       req.PausedReason,
		CreatedBy:    &updatedBy,
		CreatedAt:    now,
	}
	if err := f.logRepo.Save(ctx, logEntry); err != nil {
		log.Printf("automation log append failed after config update: %v", err)
		warning = utils.ToPtr("Config updated but audit log entry could not be written")
	}

	return &dto.UpdateAutomationConfigResponse{
		Message: "Automation config updated",
		Config:  ToAutomationConfigDTO(*cfg),
		Action:  action,
		Warning: warning,
	}, nil
}

// ListLogs returns the most recent audit entries, newest first.
func (f *AutomationFlowImpl) ListLogs(ctx context.Context) (*dto.ListAutomationLogsResponse, error) {
	rows, err := f.logRepo.ListRecent(ctx, utils.AutomationLogPageSize)
	if err != nil {
		return nil, NewBusinessError("LOGS_FETCH_FAILED", "Failed to fetch automation logs", err)
	}

	items := make([]dto.AutomationLogItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.AutomationLogItem{
			ID:           row.ID,
			Action:       row.Action,
			ConfigBefore: row.ConfigBefore,
			ConfigAfter:  row.ConfigAfter,
			Reason:       row.Reason,
			CreatedBy:    row.CreatedBy,
			CreatedAt:    row.CreatedAt.Format(time.RFC3339),
		})
	}

	return &dto.ListAutomationLogsResponse{
		Message: "Automation logs retrieved",
		Logs:    items,
	}, nil
}

// TodayStats aggregates today's tracking records, midnight to now in
// server local time. Records with a null success flag count as pending.
func (f *AutomationFlowImpl) TodayStats(ctx context.Context) (*dto.TodayStatsResponse, error) {
	since := utils.StartOfDay(utils.LocalNow())

	stats, err := f.trackingRepo.StatsByTypeSince(ctx, since)
	if err != nil {
		return nil, NewBusinessError("STATS_FETCH_FAILED", "Failed to aggregate tracking stats", err)
	}

	total, err := f.trackingRepo.Count(ctx, models.NotificationTrackingFilter{SentAfter: &since})
	if err != nil {
		return nil, NewBusinessError("STATS_FETCH_FAILED", "Failed to count tracking records", err)
	}

	byType := make(map[string]dto.TypeStatDTO, len(stats))
	var totalSent, totalFailed int64
	for _, s := range stats {
		byType[s.NotificationType] = dto.TypeStatDTO{Sent: s.Sent, Failed: s.Failed}
		totalSent += s.Sent
		totalFailed += s.Failed
	}

	pending := total - totalSent - totalFailed
	if pending < 0 {
		pending = 0
	}

	return &dto.TodayStatsResponse{
		TotalSent:    totalSent,
		TotalFailed:  totalFailed,
		TotalPending: pending,
		ByType:       byType,
	}, nil
}

// UpcomingMessages computes the schedule preview. When automation is
// not active it short-circuits with an empty list and the current
// status; no account data is queried.
func (f *AutomationFlowImpl) UpcomingMessages(ctx context.Context) (*dto.UpcomingMessagesResponse, error) {
	cfg, err := f.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	resp := &dto.UpcomingMessagesResponse{
		Messages:  []dto.ScheduledMessageDTO{},
		Status:    string(cfg.Status),
		UpdatedAt: now.Format(time.RFC3339),
	}
	if !cfg.IsActive() {
		return resp, nil
	}

	accounts, err := f.accountRepo.ListSchedulable(ctx, now.AddDate(0, 0, utils.ScheduleHorizonDays))
	if err != nil {
		return nil, NewBusinessError("ACCOUNTS_FETCH_FAILED", "Failed to fetch schedulable accounts", err)
	}

	schedule := BuildSchedule(accounts, now)
	resp.Messages = make([]dto.ScheduledMessageDTO, 0, len(schedule))
	for _, m := range schedule {
		phone := ""
		if m.Account.Phone != nil {
			phone = *m.Account.Phone
		}
		resp.Messages = append(resp.Messages, dto.ScheduledMessageDTO{
			AccountID:        m.Account.ID,
			Owner:            m.Account.Owner,
			Phone:            phone,
			Service:          m.Account.Service,
			NotificationType: m.NotificationType,
			Priority:         m.Priority,
			ScheduledTime:    m.ScheduledTime.Format(time.RFC3339),
			DaysUntil:        m.DaysUntil,
			SecondsUntil:     m.SecondsUntil,
		})
	}

	return resp, nil
}

// RateLimit reports the rolling-hour dispatch allowance. Only
// successful sends consume quota. The answer is advisory; there is no
// lock across a caller's check-then-send gap.
func (f *AutomationFlowImpl) RateLimit(ctx context.Context) (*dto.RateLimitResponse, error) {
	cfg, err := f.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	limit := cfg.MaxPerHour()
	since := utils.UTCNow().Add(-utils.RateLimitWindow)
	count, err := f.trackingRepo.CountSuccessfulSince(ctx, since)
	if err != nil {
		return nil, NewBusinessError("RATE_LIMIT_FETCH_FAILED", "Failed to count recent dispatches", err)
	}

	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}

	return &dto.RateLimitResponse{
		CanSend:      count < int64(limit),
		CurrentCount: count,
		Limit:        limit,
		Remaining:    remaining,
	}, nil
}

// Track persists one dispatch attempt record.
func (f *AutomationFlowImpl) Track(ctx context.Context, req *dto.TrackNotificationRequest) (*dto.TrackNotificationResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}

	account, err := f.accountRepo.ByID(ctx, req.AccountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_FETCH_FAILED", "Failed to fetch account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", fmt.Sprintf("Account %d not found", req.AccountID), ErrAccountNotFound)
	}

	var metadata json.RawMessage
	if len(req.Metadata) > 0 {
		bs, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, NewBusinessError("INVALID_METADATA", "Failed to encode metadata", err)
		}
		metadata = bs
	}

	row := &models.NotificationTracking{
		AccountID:        req.AccountID,
		NotificationType: req.NotificationType,
		Success:          req.Success,
		ErrorMessage:     req.ErrorMessage,
		Phone:            req.Phone,
		MessageID:        req.MessageID,
		Metadata:         metadata,
	}
	if err := f.trackingRepo.Save(ctx, row); err != nil {
		return nil, NewBusinessError("TRACKING_SAVE_FAILED", "Failed to save tracking record", err)
	}

	return &dto.TrackNotificationResponse{
		Message: "Notification tracked",
		ID:      row.ID,
		SentAt:  row.SentAt.Format(time.RFC3339),
	}, nil
}

// ExportTracking builds an Excel report of tracking records on or after
// since, one row per dispatch attempt.
func (f *AutomationFlowImpl) ExportTracking(ctx context.Context, since time.Time) (string, []byte, error) {
	rows, err := f.trackingRepo.ListSince(ctx, since)
	if err != nil {
		return "", nil, NewBusinessError("TRACKING_FETCH_FAILED", "Failed to fetch tracking records", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "tracking"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"id", "account_id", "notification_type", "success", "error_message", "phone", "message_id", "sent_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, r := range rows {
		success := ""
		if r.Success != nil {
			success = strconv.FormatBool(*r.Success)
		}
		errMsg := ""
		if r.ErrorMessage != nil {
			errMsg = *r.ErrorMessage
		}
		phone := ""
		if r.Phone != nil {
			phone = *r.Phone
		}
		messageID := ""
		if r.MessageID != nil {
			messageID = *r.MessageID
		}
		record := []string{
			strconv.FormatUint(uint64(r.ID), 10),
			strconv.FormatUint(uint64(r.AccountID), 10),
			r.NotificationType,
			success,
			errMsg,
			phone,
			messageID,
			r.SentAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := fmt.Sprintf("notification_tracking_%s.xlsx", since.Format("2006-01-02"))
	return filename, buf.Bytes(), nil
}

// loadConfig reads the singleton through the cache. Cache misses and
// decode failures fall back to the repository and refresh the cache.
func (f *AutomationFlowImpl) loadConfig(ctx context.Context) (*models.AutomationConfig, error) {
	if f.rc != nil && f.cacheConfig != nil && f.cacheConfig.Enabled {
		cacheKey := redisKey(*f.cacheConfig, utils.AutomationConfigCacheKey)
		if bs, err := f.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var cached models.AutomationConfig
			if err := json.Unmarshal(bs, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	cfg, err := f.configRepo.Get(ctx)
	if err != nil {
		return nil, NewBusinessError("CONFIG_FETCH_FAILED", "Failed to load automation config", err)
	}
	if cfg == nil {
		return nil, NewBusinessError("CONFIG_NOT_FOUND", "Automation config not found", ErrConfigNotFound)
	}

	f.cacheConfigRow(ctx, cfg)
	return cfg, nil
}

// cacheConfigRow writes the singleton through to the cache, best effort.
func (f *AutomationFlowImpl) cacheConfigRow(ctx context.Context, cfg *models.AutomationConfig) {
	if f.rc == nil || f.cacheConfig == nil || !f.cacheConfig.Enabled {
		return
	}
	cacheKey := redisKey(*f.cacheConfig, utils.AutomationConfigCacheKey)
	if bs, err := json.Marshal(cfg); err == nil {
		_ = f.rc.Set(ctx, cacheKey, bs, 0).Err()
	}
}
