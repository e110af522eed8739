package businessflow

import (
	"testing"
	"time"

	"github.com/controlcuentas/admin-api/utils"
	"github.com/stretchr/testify/assert"
)

func TestPaymentReminderMessageUrgency(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		daysAhead   int
		wantUrgency string
		wantTimer   string
	}{
		{"overdue", -2, "¡PAGO ATRASADO!", "⏱️ ATRASADO"},
		{"due today", 0, "¡PAGO ATRASADO!", "⏱️ ATRASADO"},
		{"due tomorrow", 1, "¡PAGO VENCE MAÑANA!", "Quedan: 1 día(s)"},
		{"two days left", 2, "Pago vence en 2 días", "Quedan: 2 día(s)"},
		{"three days left", 3, "Recordatorio de pago", "Quedan: 3 día(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC).AddDate(0, 0, tt.daysAhead)
			message := PaymentReminderMessage(accountDue(due, "0987654321"), now)

			assert.Contains(t, message, tt.wantUrgency)
			assert.Contains(t, message, tt.wantTimer)
			assert.Contains(t, message, "Maria")
			assert.Contains(t, message, "Netflix")
			assert.Contains(t, message, "$4.50")
			assert.Contains(t, message, due.Format("2006-01-02"))
		})
	}
}

func TestPaymentConfirmationMessage(t *testing.T) {
	due := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	message := PaymentConfirmationMessage(accountDue(due, "0987654321"))

	assert.Contains(t, message, "¡Pago confirmado exitosamente!")
	assert.Contains(t, message, "Maria")
	assert.Contains(t, message, "Netflix")
	assert.Contains(t, message, "$4.50")
	assert.Contains(t, message, "2026-04-15")
}

func TestRenewalMessage(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, 5)

	message := RenewalMessage(accountDue(due, "0987654321"), now)

	assert.Contains(t, message, "próxima a caducar")
	assert.Contains(t, message, "2026-03-15")
	assert.Contains(t, message, "5 día(s)")
}

func TestRenderTemplate(t *testing.T) {
	due := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	account := accountDue(due, "0987654321")
	account.ID = 42
	account.Notes = utils.ToPtr("pago via transferencia")

	rendered := RenderTemplate(
		"#{id} {owner} ({phone}) paga ${price} por {service} hasta {due_date}. Notas: {notes}",
		account,
	)

	assert.Equal(t,
		"#42 Maria (0987654321) paga $4.50 por Netflix hasta 2026-04-15. Notas: pago via transferencia",
		rendered)
}

func TestRenderTemplateUnknownTokensUntouched(t *testing.T) {
	account := accountDue(time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), "0987654321")

	rendered := RenderTemplate("Hola {owner}, tu {plan} sigue {estado}", account)

	assert.Equal(t, "Hola Maria, tu {plan} sigue {estado}", rendered)
}

func TestRenderTemplateNilOptionalFields(t *testing.T) {
	account := accountDue(time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), "")

	rendered := RenderTemplate("tel:{phone} notas:{notes}", account)

	assert.Equal(t, "tel: notas:", rendered)
}

func TestRenderTemplateServiceFallback(t *testing.T) {
	account := accountDue(time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), "0987654321")
	account.Service = ""

	assert.Equal(t, "Netflix", RenderTemplate("{service}", account))
}
