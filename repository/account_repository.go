package repository

import (
	"context"
	"time"

	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/utils"
	"gorm.io/gorm"
)

// AccountRepositoryImpl implements AccountRepository interface.
type AccountRepositoryImpl struct {
	*BaseRepository[models.Account, models.AccountFilter]
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Account, models.AccountFilter](db),
	}
}

// ByUUID retrieves an account by UUID.
func (r *AccountRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.Account, error) {
	parsed, err := utils.ParseUUID(uuidStr)
	if err != nil {
		return nil, err
	}
	rows, err := r.ByFilter(ctx, models.AccountFilter{UUID: &parsed}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListSchedulable returns active accounts with a phone number whose due
// date falls on or before dueBefore. Accounts without a phone are never
// candidates for notification scheduling.
func (r *AccountRepositoryImpl) ListSchedulable(ctx context.Context, dueBefore time.Time) ([]*models.Account, error) {
	db := r.getDB(ctx)
	var rows []*models.Account
	err := db.Model(&models.Account{}).
		Where("phone IS NOT NULL AND phone <> ''").
		Where("is_active = ?", true).
		Where("due_date <= ?", dueBefore).
		Order("due_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Update persists changes to an existing account.
func (r *AccountRepositoryImpl) Update(ctx context.Context, account *models.Account) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}
	account.UpdatedAt = utils.UTCNow()
	err = db.Save(account).Error
	return err
}

// Delete removes an account by ID.
func (r *AccountRepositoryImpl) Delete(ctx context.Context, id uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}
	err = db.Delete(&models.Account{}, id).Error
	return err
}

// applyFilter applies filter criteria to a GORM query.
func (r *AccountRepositoryImpl) applyFilter(query *gorm.DB, filter models.AccountFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Owner != nil {
		query = query.Where("owner = ?", *filter.Owner)
	}
	if filter.Service != nil {
		query = query.Where("service = ?", *filter.Service)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.HasPhone != nil {
		if *filter.HasPhone {
			query = query.Where("phone IS NOT NULL AND phone <> ''")
		} else {
			query = query.Where("phone IS NULL OR phone = ''")
		}
	}
	if filter.DueAfter != nil {
		query = query.Where("due_date >= ?", *filter.DueAfter)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date <= ?", *filter.DueBefore)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	return query
}

// ByFilter retrieves accounts based on filter criteria.
func (r *AccountRepositoryImpl) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Account{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Account
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of accounts matching the filter.
func (r *AccountRepositoryImpl) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Account{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any account matches the filter.
func (r *AccountRepositoryImpl) Exists(ctx context.Context, filter models.AccountFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
