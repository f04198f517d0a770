package notifications

import (
	"context"
	"time"

	"github.com/nexushq/nexus/internal/models"
)

// Server to client event names.
const (
	EventNewNotification     = "new_notification"
	EventNotificationSummary = "notification_summary"
	EventNotificationsList   = "notifications_list"
	EventPreferencesUpdated  = "preferences_updated"
	EventPong                = "pong"
)

const (
	defaultSummarySize  = 5
	defaultRetention    = 30 * 24 * time.Hour
	defaultEmailTimeout = 30 * time.Second
	defaultListLimit    = 20
	maxListLimit        = 100
)

// Event is one message pushed to a client channel.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"data,omitempty"`
}

// Channel is a live push connection to one client session.
// Send must not block on a slow client.
type Channel interface {
	Send(event Event) error
	Close() error
}

// WaitingChannel is a Channel that can also wait for outbound capacity. The
// dispatcher uses SendWait for the backlog it delivers on connect.
type WaitingChannel interface {
	Channel
	SendWait(ctx context.Context, event Event) error
}

func sendWaiting(ctx context.Context, ch Channel, event Event) error {
	if waiting, ok := ch.(WaitingChannel); ok {
		return waiting.SendWait(ctx, event)
	}
	return ch.Send(event)
}

// Intent describes what to tell whom. One record is persisted per user id.
type Intent struct {
	UserIDs    []string                    `json:"userIds" validate:"required,min=1,dive,required"`
	Type       string                      `json:"type" validate:"required,notification_type"`
	Title      string                      `json:"title" validate:"required,max=200"`
	Message    string                      `json:"message" validate:"required,max=1000"`
	Priority   string                      `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Actionable bool                        `json:"actionable"`
	Action     string                      `json:"action" validate:"max=100"`
	Link       string                      `json:"link" validate:"max=500"`
	Metadata   models.NotificationMetadata `json:"metadata"`

	// EmailNotification defaults to true; set it to false to suppress email for this intent.
	EmailNotification *bool `json:"emailNotification"`
}

func (i Intent) wantsEmail() bool {
	return i.EmailNotification == nil || *i.EmailNotification
}

func (i Intent) record(userID string) *models.Notification {
	return &models.Notification{
		UserID:     userID,
		Type:       i.Type,
		Title:      i.Title,
		Message:    i.Message,
		Priority:   i.Priority,
		Actionable: i.Actionable,
		Action:     i.Action,
		Link:       i.Link,
		Metadata:   i.Metadata,
	}
}

// SendResult reports the outcome of Send.
type SendResult struct {
	Created []models.Notification `json:"created"`
	Failed  []string              `json:"failed,omitempty"`
}

// Reference is a cross-referenced entity resolved to its display title.
type Reference struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Related groups the resolved references of one notification.
type Related struct {
	Project  *Reference `json:"project,omitempty"`
	Task     *Reference `json:"task,omitempty"`
	Meeting  *Reference `json:"meeting,omitempty"`
	Feedback *Reference `json:"feedback,omitempty"`
}

// View is a notification as presented to clients.
type View struct {
	models.Notification
	Related *Related `json:"related,omitempty"`
}

// Summary is the unread snapshot pushed after every state change.
type Summary struct {
	UnreadCount         int64  `json:"unreadCount"`
	RecentNotifications []View `json:"recentNotifications"`
}

// ListOptions are the client supplied filters for a notification page.
type ListOptions struct {
	Page       int    `json:"page" form:"page"`
	Limit      int    `json:"limit" form:"limit"`
	UnreadOnly bool   `json:"unreadOnly" form:"unreadOnly"`
	Type       string `json:"type" form:"type"`
	Priority   string `json:"priority" form:"priority"`
}

func (o ListOptions) normalise() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit <= 0 {
		o.Limit = defaultListLimit
	}
	if o.Limit > maxListLimit {
		o.Limit = maxListLimit
	}
	return o
}

// Pagination describes the returned page.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// ListResult is one page of notifications plus the caller's unread count.
type ListResult struct {
	Notifications []View     `json:"notifications"`
	Pagination    Pagination `json:"pagination"`
	UnreadCount   int64      `json:"unreadCount"`
}

// Query is the store level filter for List.
type Query struct {
	UserID     string
	UnreadOnly bool
	Type       string
	Priority   string
	Offset     int
	Limit      int
}

// StoreStats are the persisted counters reported by the store.
type StoreStats struct {
	Total  int64
	Unread int64
	Urgent int64
	Recent int64
}

// Stats is the administrative overview.
type Stats struct {
	Total          int64 `json:"total"`
	Unread         int64 `json:"unread"`
	Urgent         int64 `json:"urgent"`
	Last24Hours    int64 `json:"last24Hours"`
	ConnectedUsers int   `json:"connectedUsers"`
	PendingQueued  int   `json:"pendingQueued"`
}

// Recipient is the directory entry for a notification target.
type Recipient struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// ConnectionStatus reports the live channel state of a user.
type ConnectionStatus struct {
	Online          bool `json:"online"`
	ConnectionCount int  `json:"connectionCount"`
}
