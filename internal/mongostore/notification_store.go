package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nexushq/nexus/internal/models"
	"github.com/nexushq/nexus/internal/notifications"
	apperrors "github.com/nexushq/nexus/pkg/errors"
)

var errNotificationNotFound = apperrors.NewNotFound("Notification not found")

// NotificationStore persists notifications as documents. Expiry is enforced
// by the TTL index created in EnsureIndexes.
type NotificationStore struct {
	coll *mongo.Collection
}

var _ notifications.Store = (*NotificationStore)(nil)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

// Create inserts a new notification document.
func (s *NotificationStore) Create(ctx context.Context, notification *models.Notification) error {
	if notification == nil {
		return errors.New("mongostore: notification is required")
	}
	notification.Prepare(time.Now().UTC())

	if _, err := s.coll.InsertOne(ctx, notification); err != nil {
		return fmt.Errorf("mongostore: insert notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Notification, error) {
	var notification models.Notification
	if err := s.coll.FindOne(ctx, filter, opts...).Decode(&notification); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errNotificationNotFound
		}
		return nil, fmt.Errorf("mongostore: find notification: %w", err)
	}
	return &notification, nil
}

// Get loads a notification owned by userID.
func (s *NotificationStore) Get(ctx context.Context, userID, id string) (*models.Notification, error) {
	return s.findOne(ctx, bson.M{"_id": id, "userId": userID})
}

// FindLatest returns the most recent notification of userID with the given title and message.
func (s *NotificationStore) FindLatest(ctx context.Context, userID, title, message string) (*models.Notification, error) {
	return s.findOne(ctx,
		bson.M{"userId": userID, "title": title, "message": message},
		options.FindOne().SetSort(newestFirst),
	)
}

func queryFilter(query notifications.Query) bson.M {
	filter := bson.M{"userId": query.UserID}
	if query.UnreadOnly {
		filter["read"] = false
	}
	if query.Type != "" {
		filter["type"] = query.Type
	}
	if query.Priority != "" {
		filter["priority"] = query.Priority
	}
	return filter
}

// List returns one page of matching notifications, newest first, plus the total match count.
func (s *NotificationStore) List(ctx context.Context, query notifications.Query) ([]models.Notification, int64, error) {
	filter := queryFilter(query)

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongostore: count notifications: %w", err)
	}

	opts := options.Find().SetSort(newestFirst).SetSkip(int64(max(0, query.Offset)))
	if query.Limit > 0 {
		opts.SetLimit(int64(query.Limit))
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongostore: list notifications: %w", err)
	}
	rows := make([]models.Notification, 0)
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, 0, fmt.Errorf("mongostore: decode notifications: %w", err)
	}
	return rows, total, nil
}

// CountUnread returns the number of unread notifications of userID.
func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"userId": userID, "read": false})
	if err != nil {
		return 0, fmt.Errorf("mongostore: count unread: %w", err)
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
	var notification models.Notification
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "readAt": at, "updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&notification)
	if err == nil {
		return &notification, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("mongostore: mark read: %w", err)
	}
	return s.Get(ctx, userID, id)
}

// MarkAllRead flags every unread notification of userID as read.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	result, err := s.coll.UpdateMany(ctx,
		bson.M{"userId": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "readAt": at, "updatedAt": at}},
	)
	if err != nil {
		return 0, fmt.Errorf("mongostore: mark all read: %w", err)
	}
	return result.ModifiedCount, nil
}

// Delete removes a notification owned by userID.
func (s *NotificationStore) Delete(ctx context.Context, userID, id string) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return fmt.Errorf("mongostore: delete notification: %w", err)
	}
	if result.DeletedCount == 0 {
		return errNotificationNotFound
	}
	return nil
}

// DeleteAll removes every notification of userID.
func (s *NotificationStore) DeleteAll(ctx context.Context, userID string) (int64, error) {
	result, err := s.coll.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("mongostore: delete notifications: %w", err)
	}
	return result.DeletedCount, nil
}

// DeleteReadBefore removes read notifications created before cutoff.
func (s *NotificationStore) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.coll.DeleteMany(ctx, bson.M{"read": true, "createdAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("mongostore: delete read notifications: %w", err)
	}
	return result.DeletedCount, nil
}

// Stats counts all, unread, unread urgent and recently created notifications.
func (s *NotificationStore) Stats(ctx context.Context, since time.Time) (notifications.StoreStats, error) {
	var stats notifications.StoreStats
	counts := []struct {
		dst    *int64
		filter bson.M
	}{
		{&stats.Total, bson.M{}},
		{&stats.Unread, bson.M{"read": false}},
		{&stats.Urgent, bson.M{"read": false, "priority": models.PriorityUrgent}},
		{&stats.Recent, bson.M{"createdAt": bson.M{"$gte": since}}},
	}

	for _, c := range counts {
		n, err := s.coll.CountDocuments(ctx, c.filter)
		if err != nil {
			return notifications.StoreStats{}, fmt.Errorf("mongostore: stats: %w", err)
		}
		*c.dst = n
	}
	return stats, nil
}
