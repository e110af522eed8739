package repository

import (
	"context"
	"time"

	"github.com/controlcuentas/admin-api/models"
	"gorm.io/gorm"
)

// NotificationTrackingRepositoryImpl implements NotificationTrackingRepository.
type NotificationTrackingRepositoryImpl struct {
	*BaseRepository[models.NotificationTracking, models.NotificationTrackingFilter]
}

// NewNotificationTrackingRepository creates a new tracking repository.
func NewNotificationTrackingRepository(db *gorm.DB) NotificationTrackingRepository {
	return &NotificationTrackingRepositoryImpl{
		BaseRepository: NewBaseRepository[models.NotificationTracking, models.NotificationTrackingFilter](db),
	}
}

// CountSuccessfulSince counts successful dispatches in the window
// [since, now]. This is the rolling-hour rate-limit accounting input;
// failed attempts do not consume quota.
func (r *NotificationTrackingRepositoryImpl) CountSuccessfulSince(ctx context.Context, since time.Time) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.NotificationTracking{}).
		Where("success = ?", true).
		Where("sent_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// StatsByTypeSince aggregates sent/failed counts per notification type
// for records on or after since.
func (r *NotificationTrackingRepositoryImpl) StatsByTypeSince(ctx context.Context, since time.Time) ([]TrackingTypeStat, error) {
	db := r.getDB(ctx)
	var stats []TrackingTypeStat
	err := db.Model(&models.NotificationTracking{}).
		Select("notification_type, COUNT(*) FILTER (WHERE success) AS sent, COUNT(*) FILTER (WHERE NOT success) AS failed").
		Where("sent_at >= ?", since).
		Group("notification_type").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ListSince returns all tracking records on or after since, newest first.
func (r *NotificationTrackingRepositoryImpl) ListSince(ctx context.Context, since time.Time) ([]*models.NotificationTracking, error) {
	return r.ByFilter(ctx, models.NotificationTrackingFilter{SentAfter: &since}, "sent_at DESC", 0, 0)
}

// applyFilter applies filter criteria to a GORM query.
func (r *NotificationTrackingRepositoryImpl) applyFilter(query *gorm.DB, filter models.NotificationTrackingFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.NotificationType != nil {
		query = query.Where("notification_type = ?", *filter.NotificationType)
	}
	if filter.Success != nil {
		query = query.Where("success = ?", *filter.Success)
	}
	if filter.SentAfter != nil {
		query = query.Where("sent_at >= ?", *filter.SentAfter)
	}
	if filter.SentBefore != nil {
		query = query.Where("sent_at < ?", *filter.SentBefore)
	}
	return query
}

// ByFilter retrieves tracking records based on filter criteria.
func (r *NotificationTrackingRepositoryImpl) ByFilter(ctx context.Context, filter models.NotificationTrackingFilter, orderBy string, limit, offset int) ([]*models.NotificationTracking, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.NotificationTracking{})

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

	var rows []*models.NotificationTracking
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of tracking records matching the filter.
func (r *NotificationTrackingRepositoryImpl) Count(ctx context.Context, filter models.NotificationTrackingFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.NotificationTracking{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any tracking record matches the filter.
func (r *NotificationTrackingRepositoryImpl) Exists(ctx context.Context, filter models.NotificationTrackingFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
