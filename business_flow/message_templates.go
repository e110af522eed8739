package businessflow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/controlcuentas/admin-api/models"
)

// Message templates are pure functions of (account, now). The urgency
// wording shares the day thresholds with the scheduler classification.

const productName = "Control de Cuentas Netflix"

// PaymentReminderMessage builds the payment reminder text for an account.
func PaymentReminderMessage(account *models.Account, now time.Time) string {
	days := DaysUntil(account.DueDate, now)

	emoji := "⏰"
	urgency := ""
	switch {
	case days <= 0:
		emoji = "💸"
		urgency = "*¡PAGO ATRASADO!*"
	case days == 1:
		emoji = "🔴"
		urgency = "*¡PAGO VENCE MAÑANA!*"
	case days == 2:
		emoji = "⚠️"
		urgency = "*Pago vence en 2 días*"
	case days == 3:
		emoji = "⏰"
		urgency = "*Recordatorio de pago*"
	}

	remaining := "⏱️ ATRASADO"
	if days > 0 {
		remaining = fmt.Sprintf("⏱️ Quedan: %d día(s)", days)
	}

	return fmt.Sprintf(`%s *%s*

Hola *%s* 👋

%s

📺 Servicio: %s
💰 Monto: $%.2f
📅 Fecha de pago: %s
%s

Por favor, realiza el pago a la brevedad posible para mantener tu servicio activo.

¡Gracias! 🙏`,
		emoji, productName, account.Owner, urgency,
		serviceName(account), account.Price, formatDueDate(account.DueDate), remaining)
}

// PaymentConfirmationMessage builds the payment confirmation text.
func PaymentConfirmationMessage(account *models.Account) string {
	return fmt.Sprintf(`✅ *%s*

Hola *%s* 👋

¡Pago confirmado exitosamente! 🎉

📺 Servicio: %s
💰 Monto: $%.2f
📅 Próximo pago: %s

Tu servicio está activo y al día. ¡Disfruta! 🍿

Gracias por tu puntualidad. 🙏`,
		productName, account.Owner, serviceName(account), account.Price, formatDueDate(account.DueDate))
}

// RenewalMessage builds the upcoming-renewal notice text.
func RenewalMessage(account *models.Account, now time.Time) string {
	days := DaysUntil(account.DueDate, now)

	return fmt.Sprintf(`🔄 *%s*

Hola *%s* 👋

Tu cuenta de %s está próxima a caducar.

📅 Fecha de caducidad: %s
⏱️ Tiempo restante: %d día(s)

Por favor, contacta al administrador para renovar tu acceso.

¡Gracias! 🙏`,
		productName, account.Owner, serviceName(account), formatDueDate(account.DueDate), days)
}

// RenderTemplate substitutes {field} tokens in a caller-supplied template
// with the account's field values. Unknown tokens are left untouched.
func RenderTemplate(template string, account *models.Account) string {
	phone := ""
	if account.Phone != nil {
		phone = *account.Phone
	}
	notes := ""
	if account.Notes != nil {
		notes = *account.Notes
	}

	fields := map[string]string{
		"id":       strconv.FormatUint(uint64(account.ID), 10),
		"owner":    account.Owner,
		"phone":    phone,
		"service":  serviceName(account),
		"price":    fmt.Sprintf("%.2f", account.Price),
		"due_date": formatDueDate(account.DueDate),
		"notes":    notes,
	}

	message := template
	for key, value := range fields {
		message = strings.ReplaceAll(message, "{"+key+"}", value)
	}
	return message
}

func serviceName(account *models.Account) string {
	if account.Service == "" {
		return "Netflix"
	}
	return account.Service
}

func formatDueDate(dueDate time.Time) string {
	return dueDate.Format("2006-01-02")
}
