package businessflow

import (
	"testing"
	"time"

	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountDue(dueDate time.Time, phone string) *models.Account {
	account := &models.Account{
		ID:       1,
		Owner:    "Maria",
		DueDate:  dueDate,
		Price:    4.50,
		Service:  "Netflix",
		IsActive: utils.ToPtr(true),
	}
	if phone != "" {
		account.Phone = &phone
	}
	return account
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		due  time.Time
		want int
	}{
		{"exactly now", now, 0},
		{"one hour overdue", now.Add(-time.Hour), 0},
		{"25 hours overdue", now.Add(-25 * time.Hour), -1},
		{"five days overdue", now.AddDate(0, 0, -5), -5},
		{"one hour away", now.Add(time.Hour), 1},
		{"exactly 24 hours away", now.Add(24 * time.Hour), 1},
		{"49 hours rounds up to 3", now.Add(49 * time.Hour), 3},
		{"exactly 72 hours away", now.Add(72 * time.Hour), 3},
		{"one week away", now.AddDate(0, 0, 7), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(tt.due, now))
		})
	}
}

func TestClassifyAccount(t *testing.T) {
	// 08:00 UTC so that same-day clock pins at 09:00-11:00 are still ahead.
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	midnight := func(daysAhead int) time.Time {
		return time.Date(2026, 3, 10+daysAhead, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name          string
		due           time.Time
		wantType      string
		wantPriority  int
		wantScheduled time.Time
	}{
		{
			name:          "three days before due",
			due:           midnight(3),
			wantType:      models.NotificationPago3Dias,
			wantPriority:  3,
			wantScheduled: time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC),
		},
		{
			name:          "two days before due",
			due:           midnight(2),
			wantType:      models.NotificationPago2Dias,
			wantPriority:  3,
			wantScheduled: time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
		},
		{
			name:          "one day before due",
			due:           midnight(1),
			wantType:      models.NotificationPago1Dia,
			wantPriority:  2,
			wantScheduled: time.Date(2026, 3, 11, 11, 0, 0, 0, time.UTC),
		},
		{
			name:          "due today",
			due:           midnight(0),
			wantType:      models.NotificationPagoHoy,
			wantPriority:  1,
			wantScheduled: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name:          "overdue",
			due:           midnight(-2),
			wantType:      models.NotificationPagoAtrasado,
			wantPriority:  1,
			wantScheduled: now,
		},
		{
			name:          "beyond the reminder window",
			due:           midnight(6),
			wantType:      models.NotificationRenovacion,
			wantPriority:  4,
			wantScheduled: midnight(6),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ClassifyAccount(accountDue(tt.due, "0987654321"), now)

			assert.Equal(t, tt.wantType, msg.NotificationType)
			assert.Equal(t, tt.wantPriority, msg.Priority)
			assert.True(t, msg.ScheduledTime.Equal(tt.wantScheduled),
				"scheduled %s, want %s", msg.ScheduledTime, tt.wantScheduled)
			assert.GreaterOrEqual(t, msg.SecondsUntil, 0.0)
		})
	}
}

func TestClassifyAccountSecondsUntil(t *testing.T) {
	// Due today at 08:00: the 09:00 reference time is one hour ahead.
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	msg := ClassifyAccount(accountDue(due, "0987654321"), now)
	assert.Equal(t, models.NotificationPagoHoy, msg.NotificationType)
	assert.Equal(t, 3600.0, msg.SecondsUntil)

	// At noon the 09:00 reference lies in the past and clamps to zero.
	noon := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	msg = ClassifyAccount(accountDue(due, "0987654321"), noon)
	assert.Equal(t, models.NotificationPagoHoy, msg.NotificationType)
	assert.Equal(t, 0.0, msg.SecondsUntil)

	// Overdue accounts are anchored at now, so they are always at zero.
	msg = ClassifyAccount(accountDue(due.AddDate(0, 0, -3), "0987654321"), now)
	assert.Equal(t, models.NotificationPagoAtrasado, msg.NotificationType)
	assert.Equal(t, 0.0, msg.SecondsUntil)
}

func TestBuildScheduleOrdering(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	midnight := func(daysAhead int) time.Time {
		return time.Date(2026, 3, 10+daysAhead, 0, 0, 0, 0, time.UTC)
	}

	renewal := accountDue(midnight(6), "0991111111")
	renewal.ID = 10
	threeDays := accountDue(midnight(3), "0992222222")
	threeDays.ID = 20
	dueToday := accountDue(midnight(0), "0993333333")
	dueToday.ID = 30
	overdue := accountDue(midnight(-1), "0994444444")
	overdue.ID = 40
	oneDay := accountDue(midnight(1), "0995555555")
	oneDay.ID = 50
	noPhone := accountDue(midnight(0), "")
	noPhone.ID = 60

	schedule := BuildSchedule([]*models.Account{renewal, threeDays, dueToday, overdue, oneDay, noPhone}, now)

	require.Len(t, schedule, 5)

	// Priority 1 first. The overdue account is anchored at now (zero
	// seconds) and therefore precedes today's 09:00 slot.
	assert.Equal(t, uint(40), schedule[0].Account.ID)
	assert.Equal(t, uint(30), schedule[1].Account.ID)
	assert.Equal(t, uint(50), schedule[2].Account.ID)
	assert.Equal(t, uint(20), schedule[3].Account.ID)
	assert.Equal(t, uint(10), schedule[4].Account.ID)

	for i := 1; i < len(schedule); i++ {
		prev, cur := schedule[i-1], schedule[i]
		if prev.Priority == cur.Priority {
			assert.LessOrEqual(t, prev.SecondsUntil, cur.SecondsUntil)
		} else {
			assert.Less(t, prev.Priority, cur.Priority)
		}
	}
}

func TestBuildScheduleExcludesAccountsWithoutPhone(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	empty := ""
	withEmptyPhone := accountDue(now.AddDate(0, 0, 2), "")
	withEmptyPhone.Phone = &empty

	schedule := BuildSchedule([]*models.Account{
		accountDue(now.AddDate(0, 0, 2), ""),
		withEmptyPhone,
	}, now)

	assert.Empty(t, schedule)
}
