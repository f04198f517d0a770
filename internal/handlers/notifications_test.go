package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexushq/nexus/internal/handlers/testutil"
	"github.com/nexushq/nexus/internal/models"
	"github.com/nexushq/nexus/internal/notifications"
)

type listPayload struct {
	Notifications []notifications.View    `json:"notifications"`
	Pagination    notifications.Pagination `json:"pagination"`
	UnreadCount   int64                    `json:"unreadCount"`
}

func send(t *testing.T, env *testutil.Env, userID, title string, mutate ...func(*notifications.Intent)) models.Notification {
	t.Helper()

	noEmail := false
	intent := notifications.Intent{
		UserIDs:           []string{userID},
		Type:              models.NotificationTypeTaskAssigned,
		Title:             title,
		Message:           title + " body",
		EmailNotification: &noEmail,
	}
	for _, fn := range mutate {
		fn(&intent)
	}

	result, err := env.Dispatcher.Send(context.Background(), intent)
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	return result.Created[0]
}

func TestNotificationRoutesRequireAuthentication(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, path := range []string{"/api/notifications", "/api/notifications/summary", "/api/notifications/preferences"} {
		w := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusUnauthorized, w.Code, path)

		resp := testutil.DecodeResponse(t, w)
		require.False(t, resp.Success)
		require.Equal(t, "AUTHENTICATION_FAILED", resp.Error.Code)
	}

	w := env.Request(http.MethodGet, "/api/notifications", nil, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotificationListAndSummary(t *testing.T) {
	env := testutil.NewEnv(t)
	user, token := env.CreateUser("ada", models.RoleMember)
	other, _ := env.CreateUser("grace", models.RoleMember)

	for i := 0; i < 3; i++ {
		send(t, env, user.ID, fmt.Sprintf("Task %d", i))
	}
	send(t, env, user.ID, "Outage", func(in *notifications.Intent) {
		in.Type = models.NotificationTypeSystemAlert
		in.Priority = models.PriorityUrgent
	})
	send(t, env, other.ID, "Not yours")

	w := env.Request(http.MethodGet, "/api/notifications?page=1&limit=2", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page listPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &page)
	require.Len(t, page.Notifications, 2)
	require.EqualValues(t, 4, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)
	require.EqualValues(t, 4, page.UnreadCount)
	require.Equal(t, "Outage", page.Notifications[0].Title)

	w = env.Request(http.MethodGet, "/api/notifications?type=system_alert&priority=urgent", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &page)
	require.Len(t, page.Notifications, 1)
	require.Equal(t, models.NotificationTypeSystemAlert, page.Notifications[0].Type)

	w = env.Request(http.MethodGet, "/api/notifications?page=abc", nil, token)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Request(http.MethodGet, "/api/notifications/summary", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var summary notifications.Summary
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &summary)
	require.EqualValues(t, 4, summary.UnreadCount)
	require.Len(t, summary.RecentNotifications, 4)
}

func TestNotificationMarkReadIsScopedToCaller(t *testing.T) {
	env := testutil.NewEnv(t)
	user, token := env.CreateUser("ada", models.RoleMember)
	other, otherToken := env.CreateUser("grace", models.RoleMember)

	mine := send(t, env, user.ID, "Review")
	theirs := send(t, env, other.ID, "Private")

	w := env.Request(http.MethodPatch, "/api/notifications/"+theirs.ID+"/read", nil, token)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodPatch, "/api/notifications/"+mine.ID+"/read", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var record models.Notification
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &record)
	require.True(t, record.Read)
	require.NotNil(t, record.ReadAt)

	w = env.Request(http.MethodGet, "/api/notifications?unreadOnly=true", nil, otherToken)
	var page listPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &page)
	require.Len(t, page.Notifications, 1)
	require.False(t, page.Notifications[0].Read)
}

func TestNotificationMarkAllAndDelete(t *testing.T) {
	env := testutil.NewEnv(t)
	user, token := env.CreateUser("ada", models.RoleMember)

	first := send(t, env, user.ID, "One")
	send(t, env, user.ID, "Two")
	send(t, env, user.ID, "Three")

	w := env.Request(http.MethodPatch, "/api/notifications/mark-all-read", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var updated struct {
		Updated int64 `json:"updated"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &updated)
	require.EqualValues(t, 3, updated.Updated)

	w = env.Request(http.MethodDelete, "/api/notifications/"+first.ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodDelete, "/api/notifications/"+first.ID, nil, token)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodDelete, "/api/notifications", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var deleted struct {
		Deleted int64 `json:"deleted"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &deleted)
	require.EqualValues(t, 2, deleted.Deleted)

	w = env.Request(http.MethodGet, "/api/notifications", nil, token)
	var page listPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &page)
	require.Empty(t, page.Notifications)
}

func TestNotificationPreferences(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.CreateUser("ada", models.RoleMember)

	w := env.Request(http.MethodGet, "/api/notifications/preferences", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var prefs models.NotificationPreferences
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &prefs)
	require.Equal(t, notifications.DefaultPreferences(), prefs)

	channel := map[string]bool{
		"taskAssigned":     false,
		"taskDue":          true,
		"projectUpdates":   true,
		"meetingReminders": true,
		"feedbackResponse": true,
		"systemAlerts":     true,
	}
	payload := map[string]any{
		"email":    channel,
		"push":     channel,
		"realTime": map[string]bool{"enabled": true, "sound": false, "desktop": true},
	}

	w = env.Request(http.MethodPut, "/api/notifications/preferences", payload, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/notifications/preferences", nil, token)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &prefs)
	require.False(t, prefs.Email.TaskAssigned)
	require.False(t, prefs.RealTime.Sound)
	require.True(t, prefs.RealTime.Desktop)

	w = env.Request(http.MethodPut, "/api/notifications/preferences", map[string]any{"email": channel}, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := testutil.DecodeResponse(t, w)
	require.Contains(t, resp.Error.Message, "push.taskAssigned is required")
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.CreateUser("ada", models.RoleMember)

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/api/notifications/test", nil},
		{http.MethodGet, "/api/notifications/stats", nil},
		{http.MethodPost, "/api/notifications/broadcast", map[string]string{"type": "general", "title": "Hi", "message": "Hello"}},
	}
	for _, tc := range cases {
		w := env.Request(tc.method, tc.path, tc.body, token)
		require.Equal(t, http.StatusForbidden, w.Code, tc.path)
	}
}

func TestAdminBroadcastAndStats(t *testing.T) {
	env := testutil.NewEnv(t)
	_, adminToken := env.CreateUser("root", models.RoleAdmin)
	for i := 0; i < 2; i++ {
		env.CreateUser(fmt.Sprintf("manager-%d", i), models.RoleManager)
	}
	for i := 0; i < 2; i++ {
		env.CreateUser(fmt.Sprintf("member-%d", i), models.RoleMember)
	}

	w := env.Request(http.MethodPost, "/api/notifications/broadcast", map[string]any{
		"type":              "general",
		"title":             "Maintenance",
		"message":           "Downtime at midnight",
		"emailNotification": false,
	}, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var outcome struct {
		Sent int `json:"sent"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &outcome)
	require.Equal(t, 5, outcome.Sent)

	w = env.Request(http.MethodPost, "/api/notifications/broadcast", map[string]any{
		"role":     "manager",
		"type":     "project_update",
		"title":    "Roadmap",
		"message":  "Q3 roadmap published",
		"priority": "urgent",
	}, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &outcome)
	require.Equal(t, 2, outcome.Sent)

	w = env.Request(http.MethodPost, "/api/notifications/broadcast", map[string]any{"type": "general"}, adminToken)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Request(http.MethodGet, "/api/notifications/stats", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)

	var stats notifications.Stats
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &stats)
	require.EqualValues(t, 7, stats.Total)
	require.EqualValues(t, 7, stats.Unread)
	require.EqualValues(t, 2, stats.Urgent)
	require.EqualValues(t, 7, stats.Last24Hours)
	require.Zero(t, stats.ConnectedUsers)

	env.Dispatcher.Flush()
	require.Len(t, env.Mailer.Sent(), 2)
}

func TestAdminTestNotification(t *testing.T) {
	env := testutil.NewEnv(t)
	admin, adminToken := env.CreateUser("root", models.RoleAdmin)

	w := env.Request(http.MethodPost, "/api/notifications/test", nil, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result notifications.SendResult
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &result)
	require.Len(t, result.Created, 1)
	require.Equal(t, admin.ID, result.Created[0].UserID)
	require.Equal(t, models.NotificationTypeSystemAlert, result.Created[0].Type)

	env.Dispatcher.Flush()
	sent := env.Mailer.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "[Nexus] Test notification", sent[0].Subject)
}

func TestHealthAndMetrics(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `nexus_api_latency_seconds_count{method="GET",path="/health",status="200"}`)

	w = env.Request(http.MethodGet, "/api/unknown", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}
