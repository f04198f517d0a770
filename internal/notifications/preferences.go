package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/nexushq/nexus/internal/models"
	apperrors "github.com/nexushq/nexus/pkg/errors"
	pkgvalidator "github.com/nexushq/nexus/pkg/validator"
)

var registerRules sync.Once

// validate runs struct validation with the notification specific rules registered.
func validate(payload any) error {
	var regErr error
	registerRules.Do(func() {
		regErr = pkgvalidator.RegisterValidation("notification_type", func(fl validator.FieldLevel) bool {
			return models.IsValidNotificationType(fl.Field().String())
		})
	})
	if regErr != nil {
		return fmt.Errorf("notifications: register validation: %w", regErr)
	}

	if err := pkgvalidator.ValidateStruct(payload); err != nil {
		return apperrors.NewBadRequest(pkgvalidator.Describe(err)).WithInternal(err)
	}
	return nil
}

// DefaultPreferences returns the all-enabled preferences used until a user saves their own.
func DefaultPreferences() models.NotificationPreferences {
	all := models.ChannelPreferences{
		TaskAssigned:     true,
		TaskDue:          true,
		ProjectUpdates:   true,
		MeetingReminders: true,
		FeedbackResponse: true,
		SystemAlerts:     true,
	}
	return models.NotificationPreferences{
		Email:    all,
		Push:     all,
		RealTime: models.RealTimePreferences{Enabled: true, Sound: true, Desktop: true},
	}
}

// EmailEnabledFor reports whether prefs allow email for a notification type.
// task_completed and general have no preference field and always send.
func EmailEnabledFor(notificationType string, prefs models.NotificationPreferences) bool {
	switch notificationType {
	case models.NotificationTypeTaskAssigned:
		return prefs.Email.TaskAssigned
	case models.NotificationTypeTaskDue:
		return prefs.Email.TaskDue
	case models.NotificationTypeProjectUpdate, models.NotificationTypeProjectMilestone:
		return prefs.Email.ProjectUpdates
	case models.NotificationTypeMeetingReminder:
		return prefs.Email.MeetingReminders
	case models.NotificationTypeFeedbackResponse:
		return prefs.Email.FeedbackResponse
	case models.NotificationTypeSystemAlert:
		return prefs.Email.SystemAlerts
	default:
		return true
	}
}

// PreferenceResolver reads and replaces user notification preferences.
type PreferenceResolver struct {
	store PreferenceStore
}

// NewPreferenceResolver constructs a resolver backed by store.
func NewPreferenceResolver(store PreferenceStore) (*PreferenceResolver, error) {
	if store == nil {
		return nil, errors.New("preference resolver: store is required")
	}
	return &PreferenceResolver{store: store}, nil
}

// Get returns the stored preferences or the defaults when none were saved.
func (r *PreferenceResolver) Get(ctx context.Context, userID string) (models.NotificationPreferences, error) {
	prefs, err := r.store.LoadPreferences(ctx, userID)
	if err != nil {
		return models.NotificationPreferences{}, err
	}
	if prefs == nil {
		return DefaultPreferences(), nil
	}
	return *prefs, nil
}

// Update replaces the stored preferences wholesale.
func (r *PreferenceResolver) Update(ctx context.Context, userID string, prefs models.NotificationPreferences) error {
	return r.store.SavePreferences(ctx, userID, prefs)
}

// ChannelPreferencesInput is the wire form of ChannelPreferences. Every field is required.
type ChannelPreferencesInput struct {
	TaskAssigned     *bool `json:"taskAssigned" validate:"required"`
	TaskDue          *bool `json:"taskDue" validate:"required"`
	ProjectUpdates   *bool `json:"projectUpdates" validate:"required"`
	MeetingReminders *bool `json:"meetingReminders" validate:"required"`
	FeedbackResponse *bool `json:"feedbackResponse" validate:"required"`
	SystemAlerts     *bool `json:"systemAlerts" validate:"required"`
}

// RealTimePreferencesInput is the wire form of RealTimePreferences.
type RealTimePreferencesInput struct {
	Enabled *bool `json:"enabled" validate:"required"`
	Sound   *bool `json:"sound" validate:"required"`
	Desktop *bool `json:"desktop" validate:"required"`
}

// PreferencesInput is a complete preferences document supplied by a client.
// Partial documents are rejected because updates replace the stored value.
type PreferencesInput struct {
	Email    ChannelPreferencesInput  `json:"email"`
	Push     ChannelPreferencesInput  `json:"push"`
	RealTime RealTimePreferencesInput `json:"realTime"`
}

// Preferences validates the input and converts it to the stored form.
func (in PreferencesInput) Preferences() (models.NotificationPreferences, error) {
	if err := validate(in); err != nil {
		return models.NotificationPreferences{}, err
	}
	return models.NotificationPreferences{
		Email: in.Email.value(),
		Push:  in.Push.value(),
		RealTime: models.RealTimePreferences{
			Enabled: *in.RealTime.Enabled,
			Sound:   *in.RealTime.Sound,
			Desktop: *in.RealTime.Desktop,
		},
	}, nil
}

func (in ChannelPreferencesInput) value() models.ChannelPreferences {
	return models.ChannelPreferences{
		TaskAssigned:     *in.TaskAssigned,
		TaskDue:          *in.TaskDue,
		ProjectUpdates:   *in.ProjectUpdates,
		MeetingReminders: *in.MeetingReminders,
		FeedbackResponse: *in.FeedbackResponse,
		SystemAlerts:     *in.SystemAlerts,
	}
}
