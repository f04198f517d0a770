package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nexushq/nexus/internal/auth"
	"github.com/nexushq/nexus/internal/models"
	"github.com/nexushq/nexus/internal/notifications"
	apperrors "github.com/nexushq/nexus/pkg/errors"
)

// ErrUserNotFound indicates the requested user does not exist or is inactive.
var ErrUserNotFound = apperrors.NewNotFound("User not found")

// UserDirectory reads user profiles for recipient resolution, authentication
// and notification preferences.
type UserDirectory struct {
	db *gorm.DB
}

var (
	_ notifications.UserDirectory   = (*UserDirectory)(nil)
	_ notifications.PreferenceStore = (*UserDirectory)(nil)
	_ auth.IdentityResolver         = (*UserDirectory)(nil)
)

// NewUserDirectory constructs a UserDirectory.
func NewUserDirectory(db *gorm.DB) (*UserDirectory, error) {
	if db == nil {
		return nil, errors.New("user directory: db is required")
	}
	return &UserDirectory{db: db}, nil
}

func (d *UserDirectory) load(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	err := d.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", userID, true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user directory: load user: %w", err)
	}
	return &user, nil
}

// Recipient returns the contact details of an active user.
func (d *UserDirectory) Recipient(ctx context.Context, userID string) (*notifications.Recipient, error) {
	user, err := d.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &notifications.Recipient{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}

// ResolveIdentity maps an authenticated user id onto the active user record.
func (d *UserDirectory) ResolveIdentity(ctx context.Context, userID string) (*auth.Identity, error) {
	user, err := d.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &auth.Identity{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}

// UserIDs lists active users ordered by creation, restricted to role when set.
func (d *UserDirectory) UserIDs(ctx context.Context, role string) ([]string, error) {
	ctx = ensureContext(ctx)

	tx := d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("is_active = ?", true)
	if role = strings.TrimSpace(role); role != "" {
		tx = tx.Where("role = ?", role)
	}

	var ids []string
	if err := tx.Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("user directory: list users: %w", err)
	}
	return normaliseIDs(ids), nil
}

// LoadPreferences returns the stored notification preferences, or nil when
// the user never saved any.
func (d *UserDirectory) LoadPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	user, err := d.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	raw := bytes.TrimSpace(user.Preferences)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var prefs models.NotificationPreferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil, fmt.Errorf("user directory: decode preferences: %w", err)
	}
	return &prefs, nil
}

// SavePreferences replaces the stored notification preferences.
func (d *UserDirectory) SavePreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error {
	ctx = ensureContext(ctx)

	payload, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("user directory: encode preferences: %w", err)
	}

	result := d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_active = ?", strings.TrimSpace(userID), true).
		Update("preferences", datatypes.JSON(payload))
	if result.Error != nil {
		return fmt.Errorf("user directory: update preferences: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
