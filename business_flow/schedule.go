package businessflow

import (
	"math"
	"sort"
	"time"

	"github.com/controlcuentas/admin-api/models"
)

// ScheduledMessage is a computed upcoming notification. It is derived
// from account data and the current clock on every request and never
// persisted.
type ScheduledMessage struct {
	Account          *models.Account
	NotificationType string
	Priority         int
	ScheduledTime    time.Time
	DaysUntil        int
	SecondsUntil     float64
}

// DaysUntil computes calendar-day distance from now to the due date.
// Fractional remainders round up, so a due date 49 hours away counts
// as 3 days.
func DaysUntil(dueDate, now time.Time) int {
	return int(math.Ceil(dueDate.Sub(now).Hours() / 24))
}

// ClassifyAccount assigns notification type, priority and reference
// send time from the due-date distance. Rules are checked in order and
// the first match wins:
//
//	days == 3 -> pago_3dias          priority 3, due date at 09:00
//	days == 2 -> pago_2dias          priority 3, due date at 10:00
//	days == 1 -> pago_1dia           priority 2, due date at 11:00
//	days == 0 -> pago_hoy            priority 1, due date at 09:00
//	days <  0 -> pago_atrasado       priority 1, now
//	otherwise -> renovacion_proxima  priority 4, due date as-is
func ClassifyAccount(account *models.Account, now time.Time) ScheduledMessage {
	days := DaysUntil(account.DueDate, now)

	var notificationType string
	var priority int
	var scheduledTime time.Time

	switch {
	case days == 3:
		notificationType = models.NotificationPago3Dias
		priority = 3
		scheduledTime = atClockTime(account.DueDate, 9)
	case days == 2:
		notificationType = models.NotificationPago2Dias
		priority = 3
		scheduledTime = atClockTime(account.DueDate, 10)
	case days == 1:
		notificationType = models.NotificationPago1Dia
		priority = 2
		scheduledTime = atClockTime(account.DueDate, 11)
	case days == 0:
		notificationType = models.NotificationPagoHoy
		priority = 1
		scheduledTime = atClockTime(account.DueDate, 9)
	case days < 0:
		notificationType = models.NotificationPagoAtrasado
		priority = 1
		scheduledTime = now
	default:
		notificationType = models.NotificationRenovacion
		priority = 4
		scheduledTime = account.DueDate
	}

	secondsUntil := scheduledTime.Sub(now).Seconds()
	if secondsUntil < 0 {
		secondsUntil = 0
	}

	return ScheduledMessage{
		Account:          account,
		NotificationType: notificationType,
		Priority:         priority,
		ScheduledTime:    scheduledTime,
		DaysUntil:        days,
		SecondsUntil:     secondsUntil,
	}
}

// BuildSchedule classifies every eligible account and orders the result
// ascending by (priority, seconds_until). Accounts without a phone are
// excluded; callers are expected to pre-filter by the horizon window.
func BuildSchedule(accounts []*models.Account, now time.Time) []ScheduledMessage {
	messages := make([]ScheduledMessage, 0, len(accounts))
	for _, account := range accounts {
		if !account.HasPhone() {
			continue
		}
		messages = append(messages, ClassifyAccount(account, now))
	}

	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Priority != messages[j].Priority {
			return messages[i].Priority < messages[j].Priority
		}
		return messages[i].SecondsUntil < messages[j].SecondsUntil
	})

	return messages
}

// atClockTime keeps the calendar date and pins the clock to the given hour.
func atClockTime(date time.Time, hour int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location())
}
