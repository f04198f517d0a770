package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types.
const (
	NotificationTypeTaskAssigned     = "task_assigned"
	NotificationTypeTaskDue          = "task_due"
	NotificationTypeTaskCompleted    = "task_completed"
	NotificationTypeProjectUpdate    = "project_update"
	NotificationTypeProjectMilestone = "project_milestone"
	NotificationTypeMeetingReminder  = "meeting_reminder"
	NotificationTypeFeedbackResponse = "feedback_response"
	NotificationTypeSystemAlert      = "system_alert"
	NotificationTypeGeneral          = "general"
)

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// NotificationLifetime is the default distance between creation and expiry.
const NotificationLifetime = 30 * 24 * time.Hour

// NotificationTypes lists every accepted notification type.
var NotificationTypes = []string{
	NotificationTypeTaskAssigned,
	NotificationTypeTaskDue,
	NotificationTypeTaskCompleted,
	NotificationTypeProjectUpdate,
	NotificationTypeProjectMilestone,
	NotificationTypeMeetingReminder,
	NotificationTypeFeedbackResponse,
	NotificationTypeSystemAlert,
	NotificationTypeGeneral,
}

// NotificationMetadata carries optional cross references to other records.
type NotificationMetadata struct {
	ProjectID      string         `json:"projectId,omitempty" bson:"projectId,omitempty"`
	TaskID         string         `json:"taskId,omitempty" bson:"taskId,omitempty"`
	MeetingID      string         `json:"meetingId,omitempty" bson:"meetingId,omitempty"`
	FeedbackID     string         `json:"feedbackId,omitempty" bson:"feedbackId,omitempty"`
	EntityID       string         `json:"entityId,omitempty" bson:"entityId,omitempty"`
	EntityType     string         `json:"entityType,omitempty" bson:"entityType,omitempty"`
	AdditionalData map[string]any `json:"additionalData,omitempty" bson:"additionalData,omitempty"`
}

// Notification is the durable record of one delivery intent for a single user.
// Only Read, ReadAt and UpdatedAt change after creation.
type Notification struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id" bson:"_id"`
	UserID string `gorm:"type:uuid;not null;index:idx_notifications_user_read,priority:1;index:idx_notifications_user_type,priority:1;index:idx_notifications_user_priority,priority:1" json:"userId" bson:"userId"`

	Type     string `gorm:"type:varchar(32);not null;index:idx_notifications_user_type,priority:2" json:"type" bson:"type"`
	Title    string `gorm:"type:varchar(200);not null" json:"title" bson:"title"`
	Message  string `gorm:"type:varchar(1000);not null" json:"message" bson:"message"`
	Priority string `gorm:"type:varchar(16);not null;default:'medium';index:idx_notifications_user_priority,priority:2" json:"priority" bson:"priority"`

	Read   bool       `gorm:"column:is_read;not null;default:false;index:idx_notifications_user_read,priority:2" json:"read" bson:"read"`
	ReadAt *time.Time `json:"readAt,omitempty" bson:"readAt,omitempty"`

	Actionable bool   `gorm:"not null;default:false" json:"actionable" bson:"actionable"`
	Action     string `gorm:"type:varchar(100)" json:"action,omitempty" bson:"action,omitempty"`
	Link       string `gorm:"type:varchar(500)" json:"link,omitempty" bson:"link,omitempty"`

	Metadata NotificationMetadata `gorm:"type:text;serializer:json" json:"metadata" bson:"metadata"`

	ExpiresAt time.Time `gorm:"index" json:"expiresAt" bson:"expiresAt"`
	CreatedAt time.Time `gorm:"index:idx_notifications_user_read,priority:3;index:idx_notifications_user_type,priority:3;index:idx_notifications_user_priority,priority:3" json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Prepare fills identity, timestamps and defaults prior to the first write.
func (n *Notification) Prepare(now time.Time) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	if n.ExpiresAt.IsZero() {
		n.ExpiresAt = n.CreatedAt.Add(NotificationLifetime)
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
}

// BeforeCreate ensures defaults are applied for records written through gorm.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	n.Prepare(time.Now().UTC())
	return nil
}

// IsValidNotificationType reports whether t is one of the accepted notification types.
func IsValidNotificationType(t string) bool {
	for _, candidate := range NotificationTypes {
		if candidate == t {
			return true
		}
	}
	return false
}
