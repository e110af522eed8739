package repository

import (
	"context"

	"github.com/controlcuentas/admin-api/models"
	"gorm.io/gorm"
)

// AutomationLogRepositoryImpl implements AutomationLogRepository interface.
type AutomationLogRepositoryImpl struct {
	*BaseRepository[models.AutomationLog, models.AutomationLogFilter]
}

// NewAutomationLogRepository creates a new automation log repository.
func NewAutomationLogRepository(db *gorm.DB) AutomationLogRepository {
	return &AutomationLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AutomationLog, models.AutomationLogFilter](db),
	}
}

// ListRecent returns the most recent log entries, newest first.
func (r *AutomationLogRepositoryImpl) ListRecent(ctx context.Context, limit int) ([]*models.AutomationLog, error) {
	return r.ByFilter(ctx, models.AutomationLogFilter{}, "created_at DESC", limit, 0)
}

// applyFilter applies filter criteria to a GORM query.
func (r *AutomationLogRepositoryImpl) applyFilter(query *gorm.DB, filter models.AutomationLogFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves automation logs based on filter criteria.
func (r *AutomationLogRepositoryImpl) ByFilter(ctx context.Context, filter models.AutomationLogFilter, orderBy string, limit, offset int) ([]*models.AutomationLog, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.AutomationLog{})

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

	var rows []*models.AutomationLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of log entries matching the filter.
func (r *AutomationLogRepositoryImpl) Count(ctx context.Context, filter models.AutomationLogFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.AutomationLog{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any log entry matches the filter.
func (r *AutomationLogRepositoryImpl) Exists(ctx context.Context, filter models.AutomationLogFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
