package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/controlcuentas/admin-api/app/dto"
	"github.com/controlcuentas/admin-api/config"
	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/repository"
	"github.com/controlcuentas/admin-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type automationFlowFixture struct {
	flow         AutomationFlow
	configRepo   *fakeConfigRepo
	logRepo      *fakeLogRepo
	trackingRepo *fakeTrackingRepo
	accountRepo  *fakeAccountRepo
}

func newAutomationFlowFixture(cfg *models.AutomationConfig) *automationFlowFixture {
	f := &automationFlowFixture{
		configRepo:   &fakeConfigRepo{cfg: cfg},
		logRepo:      &fakeLogRepo{},
		trackingRepo: &fakeTrackingRepo{},
		accountRepo:  &fakeAccountRepo{accounts: map[uint]*models.Account{}},
	}
	f.flow = NewAutomationFlow(
		f.configRepo, f.logRepo, f.trackingRepo, f.accountRepo,
		nil, &config.CacheConfig{Enabled: false},
	)
	return f
}

func activeConfig() *models.AutomationConfig {
	return &models.AutomationConfig{
		ID:       1,
		Key:      models.AutomationConfigKey,
		Status:   models.AutomationStatusActive,
		Settings: models.SettingsMap{"maxPerHour": 50},
	}
}

func TestUpdateConfigPauseSetsPauseFields(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())

	resp, err := fx.flow.UpdateConfig(context.Background(), &dto.UpdateAutomationConfigRequest{
		Status:       utils.ToPtr("paused"),
		PausedReason: utils.ToPtr("vacaciones"),
	}, "admin@example.com", nil)

	require.NoError(t, err)
	assert.Equal(t, models.AutomationActionPause, resp.Action)
	assert.Nil(t, resp.Warning)

	cfg := fx.configRepo.cfg
	assert.Equal(t, models.AutomationStatusPaused, cfg.Status)
	require.NotNil(t, cfg.PausedAt)
	require.NotNil(t, cfg.PausedBy)
	assert.Equal(t, "admin@example.com", *cfg.PausedBy)
	require.NotNil(t, cfg.PausedReason)
	assert.Equal(t, "vacaciones", *cfg.PausedReason)
}

func TestUpdateConfigResumeClearsPauseFields(t *testing.T) {
	cfg := activeConfig()
	cfg.Status = models.AutomationStatusPaused
	cfg.PausedAt = utils.UTCNowPtr()
	cfg.PausedBy = utils.ToPtr("admin@example.com")
	cfg.PausedReason = utils.ToPtr("vacaciones")
	fx := newAutomationFlowFixture(cfg)

	resp, err := fx.flow.UpdateConfig(context.Background(), &dto.UpdateAutomationConfigRequest{
		Status: utils.ToPtr("active"),
	}, "admin@example.com", nil)

	require.NoError(t, err)
	assert.Equal(t, models.AutomationActionResume, resp.Action)

	updated := fx.configRepo.cfg
	assert.Equal(t, models.AutomationStatusActive, updated.Status)
	assert.Nil(t, updated.PausedAt)
	assert.Nil(t, updated.PausedBy)
	assert.Nil(t, updated.PausedReason)
}

func TestUpdateConfigMaintenanceAction(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())

	resp, err := fx.flow.UpdateConfig(context.Background(), &dto.UpdateAutomationConfigRequest{
		Status: utils.ToPtr("maintenance"),
	}, "admin@example.com", nil)

	require.NoError(t, err)
	assert.Equal(t, models.AutomationActionMaintenanceMode, resp.Action)
	assert.Equal(t, models.AutomationStatusMaintenance, fx.configRepo.cfg.Status)
	// Maintenance is not a pause; the pause fields stay untouched.
	assert.Nil(t, fx.configRepo.cfg.PausedAt)
}

func TestUpdateConfigSettingsOnlyIsConfigChange(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())

	resp, err := fx.flow.UpdateConfig(context.Background(), &dto.UpdateAutomationConfigRequest{
		Config: map[string]any{"maxPerHour": 25, "bulkDelayMs": 1500},
	}, "admin@example.com", nil)

	require.NoError(t, err)
	assert.Equal(t, models.AutomationActionConfigChange, resp.Action)
	assert.Equal(t, models.AutomationStatusActive, fx.configRepo.cfg.Status)
	assert.Equal(t, 25, fx.configRepo.cfg.Settings["maxPerHour"])
	assert.Equal(t, 1500, fx.configRepo.cfg.Settings["bulkDelayMs"])
}

func TestUpdateConfigSameStatusIsConfigChange(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())

	resp, err := fx.flow.UpdateConfig(context.Background(), &dto.UpdateAutomationConfigRequest{
		Status: utils.ToPtr("active"),
	}, "admin@example.com", nil)

	require.NoError(t, err)
	assert.Equal(t, models.AutomationActionConfigChange, resp.Action)
}

func TestUpdateConfigRejectsUnrecognizedStatus(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())

	_, err := fx.flow.UpdateConfig(context.Background(), &dto.UpdateAutomationConfigRequest{
		Status: utils.ToPtr("halted"),
	}, "admin@example.com", nil)

	require.Error(t, err)
	var bizErr *BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, "INVALID_STATUS", bizErr.Code)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Zero(t, fx.configRepo.updateCalls)
	assert.Empty(t, fx.logRepo.saved)
}

func TestUpdateConfigWritesExactlyOneAuditEntry(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())

	_, err := fx.flow.UpdateConfig(context.Background(), &dto.UpdateAutomationConfigRequest{
		Status:       utils.ToPtr("paused"),
		PausedReason: utils.ToPtr("mantenimiento de cuentas"),
	}, "admin@example.com", nil)

	require.NoError(t, err)
	require.Len(t, fx.logRepo.saved, 1)

	entry := fx.logRepo.saved[0]
	assert.Equal(t, models.AutomationActionPause, entry.Action)
	assert.NotEmpty(t, entry.ConfigBefore)
	assert.NotEmpty(t, entry.ConfigAfter)
	assert.NotEqual(t, string(entry.ConfigBefore), string(entry.ConfigAfter))
	require.NotNil(t, entry.CreatedBy)
	assert.Equal(t, "admin@example.com", *entry.CreatedBy)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "mantenimiento de cuentas", *entry.Reason)
}

func TestUpdateConfigLogFailureWarnsWithoutRollback(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())
	fx.logRepo.saveErr = errors.New("logs table unavailable")

	resp, err := fx.flow.UpdateConfig(context.Background(), &dto.UpdateAutomationConfigRequest{
		Status: utils.ToPtr("paused"),
	}, "admin@example.com", nil)

	require.NoError(t, err)
	require.NotNil(t, resp.Warning)
	assert.Contains(t, *resp.Warning, "audit log")
	// The config write stands even though the audit entry was lost.
	assert.Equal(t, 1, fx.configRepo.updateCalls)
	assert.Equal(t, models.AutomationStatusPaused, fx.configRepo.cfg.Status)
}

func TestUpdateConfigMissingRow(t *testing.T) {
	fx := newAutomationFlowFixture(nil)

	_, err := fx.flow.UpdateConfig(context.Background(), &dto.UpdateAutomationConfigRequest{}, "admin@example.com", nil)

	var bizErr *BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, "CONFIG_NOT_FOUND", bizErr.Code)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestGetConfig(t *testing.T) {
	cfg := activeConfig()
	cfg.UpdatedBy = utils.ToPtr("admin@example.com")
	fx := newAutomationFlowFixture(cfg)

	out, err := fx.flow.GetConfig(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "active", out.Status)
	assert.Equal(t, 50, out.Settings["maxPerHour"])
	require.NotNil(t, out.UpdatedBy)
	assert.Equal(t, "admin@example.com", *out.UpdatedBy)
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name          string
		maxPerHour    any
		successful    int64
		wantCanSend   bool
		wantLimit     int
		wantRemaining int64
	}{
		{"under the limit", 10, 3, true, 10, 7},
		{"exactly at the limit", 10, 10, false, 10, 0},
		{"over the limit clamps remaining", 10, 14, false, 10, 0},
		{"one slot left", 10, 9, true, 10, 1},
		{"missing setting falls back to default", nil, 0, true, utils.DefaultMaxPerHour, int64(utils.DefaultMaxPerHour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := activeConfig()
			if tt.maxPerHour == nil {
				cfg.Settings = nil
			} else {
				cfg.Settings = models.SettingsMap{"maxPerHour": tt.maxPerHour}
			}
			fx := newAutomationFlowFixture(cfg)
			fx.trackingRepo.successful = tt.successful

			out, err := fx.flow.RateLimit(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.wantCanSend, out.CanSend)
			assert.Equal(t, tt.successful, out.CurrentCount)
			assert.Equal(t, tt.wantLimit, out.Limit)
			assert.Equal(t, tt.wantRemaining, out.Remaining)
		})
	}
}

func TestUpcomingMessagesShortCircuitsWhenNotActive(t *testing.T) {
	for _, status := range []models.AutomationStatus{models.AutomationStatusPaused, models.AutomationStatusMaintenance} {
		t.Run(string(status), func(t *testing.T) {
			cfg := activeConfig()
			cfg.Status = status
			fx := newAutomationFlowFixture(cfg)

			out, err := fx.flow.UpcomingMessages(context.Background())

			require.NoError(t, err)
			assert.Empty(t, out.Messages)
			assert.Equal(t, string(status), out.Status)
			assert.NotEmpty(t, out.UpdatedAt)
			assert.False(t, fx.accountRepo.schedulableCalled, "paused automation must not query accounts")
		})
	}
}

func TestUpcomingMessagesWhenActive(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())
	now := utils.UTCNow()
	fx.accountRepo.schedulable = []*models.Account{
		accountDue(utils.StartOfDay(now.AddDate(0, 0, 2)), "0981111111"),
		accountDue(utils.StartOfDay(now.AddDate(0, 0, -1)), "0982222222"),
		accountDue(utils.StartOfDay(now.AddDate(0, 0, 2)), ""),
	}
	fx.accountRepo.schedulable[0].ID = 1
	fx.accountRepo.schedulable[1].ID = 2
	fx.accountRepo.schedulable[2].ID = 3

	out, err := fx.flow.UpcomingMessages(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "active", out.Status)
	require.Len(t, out.Messages, 2)

	// Overdue (priority 1) outranks the two-day reminder (priority 3).
	assert.Equal(t, uint(2), out.Messages[0].AccountID)
	assert.Equal(t, models.NotificationPagoAtrasado, out.Messages[0].NotificationType)
	assert.Equal(t, 1, out.Messages[0].Priority)
	assert.Equal(t, uint(1), out.Messages[1].AccountID)
	assert.Equal(t, "0981111111", out.Messages[1].Phone)
	assert.NotEmpty(t, out.Messages[1].ScheduledTime)
}

func TestTodayStats(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())
	fx.trackingRepo.stats = []repository.TrackingTypeStat{
		{NotificationType: models.NotificationPagoHoy, Sent: 3, Failed: 1},
		{NotificationType: models.NotificationCustom, Sent: 2, Failed: 0},
	}
	fx.trackingRepo.total = 8

	out, err := fx.flow.TodayStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(5), out.TotalSent)
	assert.Equal(t, int64(1), out.TotalFailed)
	assert.Equal(t, int64(2), out.TotalPending)
	assert.Equal(t, dto.TypeStatDTO{Sent: 3, Failed: 1}, out.ByType[models.NotificationPagoHoy])
	assert.Equal(t, dto.TypeStatDTO{Sent: 2, Failed: 0}, out.ByType[models.NotificationCustom])
}

func TestTodayStatsPendingNeverNegative(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())
	fx.trackingRepo.stats = []repository.TrackingTypeStat{
		{NotificationType: models.NotificationPagoHoy, Sent: 4, Failed: 2},
	}
	fx.trackingRepo.total = 4

	out, err := fx.flow.TodayStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(0), out.TotalPending)
}

func TestTrack(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())
	fx.accountRepo.accounts[7] = accountDue(utils.UTCNow(), "0987654321")

	out, err := fx.flow.Track(context.Background(), &dto.TrackNotificationRequest{
		AccountID:        7,
		NotificationType: models.NotificationPagoHoy,
		Success:          utils.ToPtr(true),
		Phone:            utils.ToPtr("0987654321"),
		MessageID:        utils.ToPtr("true_593987654321@c.us_3EB0"),
		Metadata:         map[string]any{"source": "panel"},
	})

	require.NoError(t, err)
	assert.NotZero(t, out.ID)
	assert.NotEmpty(t, out.SentAt)

	require.Len(t, fx.trackingRepo.saved, 1)
	row := fx.trackingRepo.saved[0]
	assert.Equal(t, uint(7), row.AccountID)
	assert.Equal(t, models.NotificationPagoHoy, row.NotificationType)
	assert.JSONEq(t, `{"source":"panel"}`, string(row.Metadata))
}

func TestTrackUnknownAccount(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())

	_, err := fx.flow.Track(context.Background(), &dto.TrackNotificationRequest{
		AccountID:        99,
		NotificationType: models.NotificationPagoHoy,
	})

	var bizErr *BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", bizErr.Code)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Empty(t, fx.trackingRepo.saved)
}

func TestListLogs(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())
	fx.logRepo.recent = []*models.AutomationLog{
		{ID: 2, Action: models.AutomationActionResume, CreatedBy: utils.ToPtr("admin@example.com"), CreatedAt: utils.UTCNow()},
		{ID: 1, Action: models.AutomationActionPause, Reason: utils.ToPtr("vacaciones"), CreatedAt: utils.UTCNow().Add(-time.Hour)},
	}

	out, err := fx.flow.ListLogs(context.Background())

	require.NoError(t, err)
	require.Len(t, out.Logs, 2)
	assert.Equal(t, models.AutomationActionResume, out.Logs[0].Action)
	assert.Equal(t, models.AutomationActionPause, out.Logs[1].Action)
	require.NotNil(t, out.Logs[1].Reason)
	assert.Equal(t, "vacaciones", *out.Logs[1].Reason)
}

func TestExportTracking(t *testing.T) {
	fx := newAutomationFlowFixture(activeConfig())
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	fx.trackingRepo.rows = []*models.NotificationTracking{
		{
			ID:               1,
			AccountID:        7,
			NotificationType: models.NotificationPagoHoy,
			Success:          utils.ToPtr(true),
			Phone:            utils.ToPtr("0987654321"),
			MessageID:        utils.ToPtr("true_593987654321@c.us_3EB0"),
			SentAt:           since.Add(9 * time.Hour),
		},
		{
			ID:               2,
			AccountID:        8,
			NotificationType: models.NotificationCustom,
			Success:          utils.ToPtr(false),
			ErrorMessage:     utils.ToPtr("session not working"),
			SentAt:           since.Add(10 * time.Hour),
		},
	}

	filename, data, err := fx.flow.ExportTracking(context.Background(), since)

	require.NoError(t, err)
	assert.Equal(t, "notification_tracking_2026-03-01.xlsx", filename)
	assert.NotEmpty(t, data)
}
