package repository

import (
	"context"
	"time"

	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepositoryImpl implements UserRepository interface.
type UserRepositoryImpl struct {
	*BaseRepository[models.User, models.UserFilter]
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.User, models.UserFilter](db),
	}
}

// ByEmail retrieves a user by email.
func (r *UserRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.User, error) {
	rows, err := r.ByFilter(ctx, models.UserFilter{Email: &email}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ByUUID retrieves a user by UUID.
func (r *UserRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.User, error) {
	parsed, err := utils.ParseUUID(uuidStr)
	if err != nil {
		return nil, err
	}
	rows, err := r.ByFilter(ctx, models.UserFilter{UUID: &parsed}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Update persists changes to an existing user.
func (r *UserRepositoryImpl) Update(ctx context.Context, user *models.User) error {
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
	user.UpdatedAt = utils.UTCNow()
	err = db.Save(user).Error
	return err
}

// Delete removes a user and their role grants.
func (r *UserRepositoryImpl) Delete(ctx context.Context, id uint) error {
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
	if err = db.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
		return err
	}
	err = db.Delete(&models.User{}, id).Error
	return err
}

// HasRole reports whether the user holds the given role.
func (r *UserRepositoryImpl) HasRole(ctx context.Context, userID uint, role string) (bool, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GrantRole grants a role to a user, idempotently.
func (r *UserRepositoryImpl) GrantRole(ctx context.Context, userID uint, role string) error {
	db := r.getDB(ctx)
	row := models.UserRole{
		UserID:    userID,
		Role:      role,
		CreatedAt: utils.UTCNow(),
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// UpdateLastLogin stamps the user's last successful login.
func (r *UserRepositoryImpl) UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login_at", at).Error
}

// applyFilter applies filter criteria to a GORM query.
func (r *UserRepositoryImpl) applyFilter(query *gorm.DB, filter models.UserFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Email != nil {
		query = query.Where("email = ?", *filter.Email)
	}
	if filter.IsDisabled != nil {
		query = query.Where("is_disabled = ?", *filter.IsDisabled)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves users based on filter criteria.
func (r *UserRepositoryImpl) ByFilter(ctx context.Context, filter models.UserFilter, orderBy string, limit, offset int) ([]*models.User, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.User{})

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

	var rows []*models.User
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of users matching the filter.
func (r *UserRepositoryImpl) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.User{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any user matches the filter.
func (r *UserRepositoryImpl) Exists(ctx context.Context, filter models.UserFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
