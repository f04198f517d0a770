package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nexushq/nexus/internal/models"
	"github.com/nexushq/nexus/internal/notifications"
	"github.com/nexushq/nexus/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for notifications.
type NotificationHandler struct {
	dispatcher *notifications.Dispatcher
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(dispatcher *notifications.Dispatcher) (*NotificationHandler, error) {
	if dispatcher == nil {
		return nil, errors.New("notification handler: dispatcher is required")
	}
	return &NotificationHandler{dispatcher: dispatcher}, nil
}

// broadcastPayload is an intent without explicit recipients.
type broadcastPayload struct {
	Role              string                      `json:"role" validate:"omitempty,oneof=admin manager member"`
	Type              string                      `json:"type" validate:"required,oneof=task_assigned task_due task_completed project_update project_milestone meeting_reminder feedback_response system_alert general"`
	Title             string                      `json:"title" validate:"required,max=200"`
	Message           string                      `json:"message" validate:"required,max=1000"`
	Priority          string                      `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Actionable        bool                        `json:"actionable"`
	Action            string                      `json:"action" validate:"max=100"`
	Link              string                      `json:"link" validate:"max=500"`
	Metadata          models.NotificationMetadata `json:"metadata"`
	EmailNotification *bool                       `json:"emailNotification"`
}

func (p broadcastPayload) intent() notifications.Intent {
	return notifications.Intent{
		Type:              p.Type,
		Title:             p.Title,
		Message:           p.Message,
		Priority:          p.Priority,
		Actionable:        p.Actionable,
		Action:            p.Action,
		Link:              p.Link,
		Metadata:          p.Metadata,
		EmailNotification: p.EmailNotification,
	}
}

// testPayload lets an administrator send a sample notification. Every field is optional.
type testPayload struct {
	UserID   string `json:"userId"`
	Type     string `json:"type" validate:"omitempty,oneof=task_assigned task_due task_completed project_update project_milestone meeting_reminder feedback_response system_alert general"`
	Title    string `json:"title" validate:"max=200"`
	Message  string `json:"message" validate:"max=1000"`
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Email    *bool  `json:"emailNotification"`
}

// List returns a page of the caller's notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var opts notifications.ListOptions
	if !bindQuery(c, &opts) {
		return
	}

	result, err := h.dispatcher.List(requestContext(c), userID, opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Summary returns the unread count and most recent unread notifications.
func (h *NotificationHandler) Summary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	summary, err := h.dispatcher.Summary(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}

// MarkRead marks one of the caller's notifications read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	record, err := h.dispatcher.MarkAsRead(requestContext(c), userID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, record)
}

// MarkAllRead marks every unread notification of the caller read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	updated, err := h.dispatcher.MarkAllAsRead(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}

// Delete removes one of the caller's notifications.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.dispatcher.Delete(requestContext(c), userID, strings.TrimSpace(c.Param("id"))); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// DeleteAll clears every notification of the caller.
func (h *NotificationHandler) DeleteAll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	deleted, err := h.dispatcher.DeleteAll(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": deleted})
}

// GetPreferences returns the caller's effective preferences.
func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	prefs, err := h.dispatcher.Preferences(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, prefs)
}

// UpdatePreferences replaces the caller's preferences with a complete document.
func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var payload notifications.PreferencesInput
	if !bindAndValidate(c, &payload) {
		return
	}
	prefs, err := payload.Preferences()
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.dispatcher.UpdatePreferences(requestContext(c), userID, prefs); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, prefs)
}

// Test sends a sample notification to the caller or to the given user.
func (h *NotificationHandler) Test(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var payload testPayload
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &payload) {
		return
	}

	intent := notifications.Intent{
		UserIDs:           []string{firstNonEmpty(payload.UserID, userID)},
		Type:              firstNonEmpty(payload.Type, models.NotificationTypeSystemAlert),
		Title:             firstNonEmpty(payload.Title, "Test notification"),
		Message:           firstNonEmpty(payload.Message, "This is a test notification."),
		Priority:          payload.Priority,
		EmailNotification: payload.Email,
	}

	result, err := h.dispatcher.Send(requestContext(c), intent)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// Stats returns the administrative overview.
func (h *NotificationHandler) Stats(c *gin.Context) {
	stats, err := h.dispatcher.Stats(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// Broadcast sends a notification to every active user, or to one role.
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var payload broadcastPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	var (
		result *notifications.SendResult
		err    error
	)
	if payload.Role != "" {
		result, err = h.dispatcher.BroadcastToRole(requestContext(c), payload.Role, payload.intent())
	} else {
		result, err = h.dispatcher.BroadcastToAll(requestContext(c), payload.intent())
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"sent":   len(result.Created),
		"failed": result.Failed,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
