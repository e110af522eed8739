package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestAccount creates an active account due in the given number of
// days, with a dispatchable Ecuadorian phone number.
func (tf *TestFixtures) CreateTestAccount(daysUntilDue int) (*models.Account, error) {
	phone := fmt.Sprintf("09%08d", rand.Intn(100000000))
	account := &models.Account{
		Owner:    fmt.Sprintf("Cliente %d", rand.Intn(100000)),
		Phone:    &phone,
		DueDate:  utils.StartOfDay(time.Now().AddDate(0, 0, daysUntilDue)),
		Price:    4.50,
		Service:  "Netflix",
		IsActive: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(account).Error; err != nil {
		return nil, fmt.Errorf("failed to create test account: %w", err)
	}
	return account, nil
}

// CreateTestAccountWithoutPhone creates an active account with no phone.
func (tf *TestFixtures) CreateTestAccountWithoutPhone(daysUntilDue int) (*models.Account, error) {
	account := &models.Account{
		Owner:    fmt.Sprintf("Cliente %d", rand.Intn(100000)),
		DueDate:  utils.StartOfDay(time.Now().AddDate(0, 0, daysUntilDue)),
		Price:    4.50,
		Service:  "Netflix",
		IsActive: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(account).Error; err != nil {
		return nil, fmt.Errorf("failed to create test account: %w", err)
	}
	return account, nil
}

// CreateTestUser creates a panel user; when admin is true, the admin
// role is granted as well.
func (tf *TestFixtures) CreateTestUser(admin bool) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        fmt.Sprintf("user%d@example.com", rand.Intn(10000000)),
		PasswordHash: string(hashedPassword),
		IsDisabled:   utils.ToPtr(false),
	}
	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	if admin {
		role := &models.UserRole{UserID: user.ID, Role: models.RoleAdmin}
		if err := tf.DB.DB.Create(role).Error; err != nil {
			return nil, fmt.Errorf("failed to grant admin role: %w", err)
		}
	}
	return user, nil
}

// CreateTestTracking writes one dispatch record for the given account.
func (tf *TestFixtures) CreateTestTracking(accountID uint, notificationType string, success bool, sentAt time.Time) (*models.NotificationTracking, error) {
	row := &models.NotificationTracking{
		AccountID:        accountID,
		NotificationType: notificationType,
		Success:          utils.ToPtr(success),
		SentAt:           sentAt,
	}
	if !success {
		row.ErrorMessage = utils.ToPtr("simulated gateway failure")
	}

	if err := tf.DB.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create tracking record: %w", err)
	}
	return row, nil
}

// CreateTestConfig seeds the automation configuration singleton in the
// given status.
func (tf *TestFixtures) CreateTestConfig(status models.AutomationStatus, settings models.SettingsMap) (*models.AutomationConfig, error) {
	if settings == nil {
		settings = models.SettingsMap{"maxPerHour": utils.DefaultMaxPerHour}
	}
	row := &models.AutomationConfig{
		Key:      models.AutomationConfigKey,
		Status:   status,
		Settings: settings,
	}
	if err := tf.DB.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create automation config: %w", err)
	}
	return row, nil
}
