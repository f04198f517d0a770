package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nexushq/nexus/internal/models"
	"github.com/nexushq/nexus/internal/notifications"
	apperrors "github.com/nexushq/nexus/pkg/errors"
)

var errNotificationNotFound = apperrors.NewNotFound("Notification not found")

// NotificationStore persists notifications in the relational database.
type NotificationStore struct {
	db *gorm.DB
}

var _ notifications.Store = (*NotificationStore)(nil)

// NewNotificationStore constructs a NotificationStore.
func NewNotificationStore(db *gorm.DB) (*NotificationStore, error) {
	if db == nil {
		return nil, errors.New("notification store: db is required")
	}
	return &NotificationStore{db: db}, nil
}

// Create inserts a new notification record.
func (s *NotificationStore) Create(ctx context.Context, notification *models.Notification) error {
	ctx = ensureContext(ctx)
	if notification == nil {
		return errors.New("notification store: notification is required")
	}
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("notification store: create notification: %w", err)
	}
	return nil
}

// Get loads a notification owned by userID.
func (s *NotificationStore) Get(ctx context.Context, userID, id string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", strings.TrimSpace(id), userID).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotificationNotFound
		}
		return nil, fmt.Errorf("notification store: load notification: %w", err)
	}
	return &notification, nil
}

// FindLatest returns the most recent notification of userID with the given title and message.
func (s *NotificationStore) FindLatest(ctx context.Context, userID, title, message string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND title = ? AND message = ?", userID, title, message).
		Order("created_at DESC").
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotificationNotFound
		}
		return nil, fmt.Errorf("notification store: find notification: %w", err)
	}
	return &notification, nil
}

func (s *NotificationStore) filtered(ctx context.Context, query notifications.Query) *gorm.DB {
	tx := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", query.UserID)
	if query.UnreadOnly {
		tx = tx.Where("is_read = ?", false)
	}
	if query.Type != "" {
		tx = tx.Where("type = ?", query.Type)
	}
	if query.Priority != "" {
		tx = tx.Where("priority = ?", query.Priority)
	}
	return tx
}

// List returns one page of matching notifications, newest first, plus the total match count.
func (s *NotificationStore) List(ctx context.Context, query notifications.Query) ([]models.Notification, int64, error) {
	ctx = ensureContext(ctx)

	var total int64
	if err := s.filtered(ctx, query).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("notification store: count notifications: %w", err)
	}

	rows := make([]models.Notification, 0)
	tx := s.filtered(ctx, query).Order("created_at DESC").Offset(max(0, query.Offset))
	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("notification store: list notifications: %w", err)
	}
	return rows, total, nil
}

// CountUnread returns the number of unread notifications of userID.
func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.filtered(ctx, notifications.Query{UserID: userID, UnreadOnly: true}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification store: count unread: %w", err)
	}
	return count, nil
}

// ListUnread returns up to limit unread notifications of userID, newest first.
func (s *NotificationStore) ListUnread(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	rows, _, err := s.List(ctx, notifications.Query{UserID: userID, UnreadOnly: true, Limit: limit})
	return rows, err
}

// MarkRead flags a notification of userID as read. Marking an already read
// notification keeps its original read timestamp.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, id string, at time.Time) (*models.Notification, error) {
	notification, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if notification.Read {
		return notification, nil
	}

	err = s.db.WithContext(ensureContext(ctx)).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notification.ID, userID).
		Updates(map[string]any{
			"is_read":    true,
			"read_at":    at,
			"updated_at": at,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("notification store: mark read: %w", err)
	}

	notification.Read = true
	notification.ReadAt = &at
	notification.UpdatedAt = at
	return notification, nil
}

// MarkAllRead flags every unread notification of userID as read.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{
			"is_read":    true,
			"read_at":    at,
			"updated_at": at,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("notification store: mark all read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes a notification owned by userID.
func (s *NotificationStore) Delete(ctx context.Context, userID, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", strings.TrimSpace(id), userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification store: delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errNotificationNotFound
	}
	return nil
}

// DeleteAll removes every notification of userID.
func (s *NotificationStore) DeleteAll(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification store: delete notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteReadBefore removes read notifications created before cutoff.
func (s *NotificationStore) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification store: delete read notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteExpired removes notifications whose expiry has passed. Relational
// backends have no TTL index, so this runs on a schedule.
func (s *NotificationStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification store: delete expired notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Stats counts all, unread, unread urgent and recently created notifications.
func (s *NotificationStore) Stats(ctx context.Context, since time.Time) (notifications.StoreStats, error) {
	ctx = ensureContext(ctx)

	var stats notifications.StoreStats
	counts := []struct {
		dst   *int64
		apply func(*gorm.DB) *gorm.DB
	}{
		{&stats.Total, func(tx *gorm.DB) *gorm.DB { return tx }},
		{&stats.Unread, func(tx *gorm.DB) *gorm.DB { return tx.Where("is_read = ?", false) }},
		{&stats.Urgent, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("is_read = ? AND priority = ?", false, models.PriorityUrgent)
		}},
		{&stats.Recent, func(tx *gorm.DB) *gorm.DB { return tx.Where("created_at >= ?", since) }},
	}

	for _, c := range counts {
		tx := c.apply(s.db.WithContext(ctx).Model(&models.Notification{}))
		if err := tx.Count(c.dst).Error; err != nil {
			return notifications.StoreStats{}, fmt.Errorf("notification store: stats: %w", err)
		}
	}
	return stats, nil
}
