package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nexushq/nexus/internal/auth"
	"github.com/nexushq/nexus/internal/models"
	"github.com/nexushq/nexus/internal/notifications"
	apperrors "github.com/nexushq/nexus/pkg/errors"
)

var errUserNotFound = apperrors.NewNotFound("User not found")

// userDocument is the stored user shape. Preferences are embedded as a
// sub-document instead of serialised JSON.
type userDocument struct {
	models.User `bson:",inline"`
	Preferences *models.NotificationPreferences `bson:"preferences,omitempty"`
}

// UserDirectory reads user documents for recipient resolution, authentication
// and notification preferences.
type UserDirectory struct {
	coll *mongo.Collection
}

var (
	_ notifications.UserDirectory   = (*UserDirectory)(nil)
	_ notifications.PreferenceStore = (*UserDirectory)(nil)
	_ auth.IdentityResolver         = (*UserDirectory)(nil)
)

func activeUser(userID string) bson.M {
	return bson.M{"_id": strings.TrimSpace(userID), "isActive": true}
}

func (d *UserDirectory) load(ctx context.Context, userID string) (*userDocument, error) {
	var doc userDocument
	if err := d.coll.FindOne(ctx, activeUser(userID)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("mongostore: load user: %w", err)
	}
	return &doc, nil
}

// Recipient returns the contact details of an active user.
func (d *UserDirectory) Recipient(ctx context.Context, userID string) (*notifications.Recipient, error) {
	doc, err := d.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &notifications.Recipient{ID: doc.ID, Name: doc.Name, Email: doc.Email, Role: doc.Role}, nil
}

// ResolveIdentity maps an authenticated user id onto the active user document.
func (d *UserDirectory) ResolveIdentity(ctx context.Context, userID string) (*auth.Identity, error) {
	doc, err := d.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &auth.Identity{UserID: doc.ID, Name: doc.Name, Email: doc.Email, Role: doc.Role}, nil
}

// UserIDs lists active users ordered by creation, restricted to role when set.
func (d *UserDirectory) UserIDs(ctx context.Context, role string) ([]string, error) {
	filter := bson.M{"isActive": true}
	if role = strings.TrimSpace(role); role != "" {
		filter["role"] = role
	}

	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := d.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: list users: %w", err)
	}

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("mongostore: decode users: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// LoadPreferences returns the embedded preferences, or nil when unset.
func (d *UserDirectory) LoadPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	doc, err := d.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return doc.Preferences, nil
}

// SavePreferences replaces the embedded preferences.
func (d *UserDirectory) SavePreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error {
	result, err := d.coll.UpdateOne(ctx, activeUser(userID), bson.M{"$set": bson.M{"preferences": prefs}})
	if err != nil {
		return fmt.Errorf("mongostore: update preferences: %w", err)
	}
	if result.MatchedCount == 0 {
		return errUserNotFound
	}
	return nil
}
