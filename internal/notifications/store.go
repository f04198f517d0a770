package notifications

import (
	"context"
	"time"

	"github.com/nexushq/nexus/internal/models"
)

// Store persists notification records. Every user scoped method treats a
// record owned by another user exactly like a missing one and reports
// apperrors.ErrNotFound.
type Store interface {
	Create(ctx context.Context, notification *models.Notification) error
	Get(ctx context.Context, userID, id string) (*models.Notification, error)
	FindLatest(ctx context.Context, userID, title, message string) (*models.Notification, error)
	List(ctx context.Context, query Query) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	ListUnread(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string, at time.Time) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context, since time.Time) (StoreStats, error)
}

// UserDirectory resolves notification targets.
type UserDirectory interface {
	Recipient(ctx context.Context, userID string) (*Recipient, error)
	// UserIDs lists active users, restricted to role when it is non-empty.
	UserIDs(ctx context.Context, role string) ([]string, error)
}

// PreferenceStore loads and saves the preferences embedded in a user profile.
// LoadPreferences returns nil without error when the user never saved any.
type PreferenceStore interface {
	LoadPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	SavePreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error
}

// ReferenceIDs are the entity ids collected from a page of notifications.
type ReferenceIDs struct {
	Projects []string
	Tasks    []string
	Meetings []string
	Feedback []string
}

// Empty reports whether there is nothing to resolve.
func (r ReferenceIDs) Empty() bool {
	return len(r.Projects) == 0 && len(r.Tasks) == 0 && len(r.Meetings) == 0 && len(r.Feedback) == 0
}

// ReferenceTitles maps entity ids to display titles, per entity kind.
type ReferenceTitles struct {
	Projects map[string]string
	Tasks    map[string]string
	Meetings map[string]string
	Feedback map[string]string
}

// ReferenceResolver batch-fetches display titles for cross-referenced entities.
type ReferenceResolver interface {
	ResolveTitles(ctx context.Context, ids ReferenceIDs) (ReferenceTitles, error)
}
