package repository

import (
	"context"
	"errors"

	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/utils"
	"gorm.io/gorm"
)

// AutomationConfigRepositoryImpl implements AutomationConfigRepository.
// The automation configuration is a singleton row addressed by
// models.AutomationConfigKey.
type AutomationConfigRepositoryImpl struct {
	db *gorm.DB
}

// NewAutomationConfigRepository creates a new automation config repository.
func NewAutomationConfigRepository(db *gorm.DB) AutomationConfigRepository {
	return &AutomationConfigRepositoryImpl{db: db}
}

func (r *AutomationConfigRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// Get retrieves the automation configuration singleton.
func (r *AutomationConfigRepositoryImpl) Get(ctx context.Context) (*models.AutomationConfig, error) {
	db := r.getDB(ctx)
	var row models.AutomationConfig
	err := db.Where("key = ?", models.AutomationConfigKey).Last(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Update writes the mutated singleton back. Concurrent updates race as
// last-write-wins; the external store owns that consistency concern.
func (r *AutomationConfigRepositoryImpl) Update(ctx context.Context, config *models.AutomationConfig) error {
	db := r.getDB(ctx)
	config.Key = models.AutomationConfigKey
	config.UpdatedAt = utils.UTCNow()
	return db.Save(config).Error
}

// EnsureExists creates the singleton with defaults when missing. Called
// once at startup so every later Get sees exactly one row.
func (r *AutomationConfigRepositoryImpl) EnsureExists(ctx context.Context, defaults models.SettingsMap) (*models.AutomationConfig, error) {
	existing, err := r.Get(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	row := models.AutomationConfig{
		Key:       models.AutomationConfigKey,
		Status:    models.AutomationStatusActive,
		Settings:  defaults,
		UpdatedAt: utils.UTCNow(),
		CreatedAt: utils.UTCNow(),
	}
	if err := r.getDB(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
