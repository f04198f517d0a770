package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nexushq/nexus/internal/models"
	"github.com/nexushq/nexus/internal/notifications"
	apperrors "github.com/nexushq/nexus/pkg/errors"
)

// mustConnect opens an isolated database on the server named by
// NEXUS_TEST_MONGO_URI and drops it when the test finishes.
func mustConnect(t *testing.T) *Client {
	t.Helper()

	uri := os.Getenv("NEXUS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("NEXUS_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Connect(ctx, Config{URI: uri, Database: "nexus_test_" + uuid.NewString()[:8]})
	require.NoError(t, err)
	require.NoError(t, client.EnsureIndexes(ctx))

	t.Cleanup(func() {
		_ = client.Database().Drop(context.Background())
		_ = client.Close(context.Background())
	})
	return client
}

func insertUser(t *testing.T, client *Client, name, role string, active bool) string {
	t.Helper()
	id := uuid.NewString()
	_, err := client.Database().Collection(UsersCollection).InsertOne(context.Background(), bson.M{
		"_id":       id,
		"name":      name,
		"email":     name + "@example.com",
		"role":      role,
		"isActive":  active,
		"createdAt": time.Now().UTC(),
	})
	require.NoError(t, err)
	return id
}

func TestConnectValidatesConfig(t *testing.T) {
	_, err := Connect(context.Background(), Config{Database: "nexus"})
	require.Error(t, err)

	_, err = Connect(context.Background(), Config{URI: "mongodb://localhost:27017"})
	require.Error(t, err)
}

func TestNotificationStoreLifecycle(t *testing.T) {
	client := mustConnect(t)
	store := client.Notifications()
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	first := &models.Notification{UserID: "alice", Type: models.NotificationTypeGeneral, Title: "first", Message: "m", CreatedAt: base}
	second := &models.Notification{UserID: "alice", Type: models.NotificationTypeSystemAlert, Title: "second", Message: "m", Priority: models.PriorityUrgent, CreatedAt: base.Add(time.Minute)}
	other := &models.Notification{UserID: "bob", Type: models.NotificationTypeGeneral, Title: "bob", Message: "m", CreatedAt: base}
	for _, n := range []*models.Notification{first, second, other} {
		require.NoError(t, store.Create(ctx, n))
	}

	rows, total, err := store.List(ctx, notifications.Query{UserID: "alice", Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, "second", rows[0].Title)

	_, err = store.Get(ctx, "bob", first.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	read, err := store.MarkRead(ctx, "alice", first.ID, base.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, read.Read)

	again, err := store.MarkRead(ctx, "alice", first.ID, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.True(t, read.ReadAt.Equal(*again.ReadAt))

	unread, err := store.CountUnread(ctx, "alice")
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)

	stats, err := store.Stats(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, notifications.StoreStats{Total: 3, Unread: 2, Urgent: 1, Recent: 3}, stats)

	removed, err := store.DeleteReadBefore(ctx, base.Add(time.Second))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	latest, err := store.FindLatest(ctx, "alice", "second", "m")
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)

	updated, err := store.MarkAllRead(ctx, "alice", base.Add(3*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	require.ErrorIs(t, store.Delete(ctx, "bob", second.ID), apperrors.ErrNotFound)
	require.NoError(t, store.Delete(ctx, "alice", second.ID))

	removed, err = store.DeleteAll(ctx, "bob")
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
}

func TestUserDirectoryAndPreferences(t *testing.T) {
	client := mustConnect(t)
	dir := client.Users()
	ctx := context.Background()

	admin := insertUser(t, client, "root", models.RoleAdmin, true)
	member := insertUser(t, client, "dana", models.RoleMember, true)
	insertUser(t, client, "eve", models.RoleMember, false)

	ids, err := dir.UserIDs(ctx, "")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{admin, member}, ids)

	ids, err = dir.UserIDs(ctx, models.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, []string{admin}, ids)

	identity, err := dir.ResolveIdentity(ctx, admin)
	require.NoError(t, err)
	require.True(t, identity.IsAdmin())

	prefs, err := dir.LoadPreferences(ctx, member)
	require.NoError(t, err)
	require.Nil(t, prefs)

	saved := notifications.DefaultPreferences()
	saved.Email.TaskDue = false
	require.NoError(t, dir.SavePreferences(ctx, member, saved))

	prefs, err = dir.LoadPreferences(ctx, member)
	require.NoError(t, err)
	require.Equal(t, saved, *prefs)

	require.ErrorIs(t, dir.SavePreferences(ctx, "missing", saved), apperrors.ErrNotFound)
}

func TestReferenceResolver(t *testing.T) {
	client := mustConnect(t)
	ctx := context.Background()

	_, err := client.Database().Collection(ProjectsCollection).InsertOne(ctx, bson.M{"_id": "p1", "name": "Apollo"})
	require.NoError(t, err)
	_, err = client.Database().Collection(TasksCollection).InsertOne(ctx, bson.M{"_id": "t1", "title": "Write notes"})
	require.NoError(t, err)

	titles, err := client.References().ResolveTitles(ctx, notifications.ReferenceIDs{
		Projects: []string{"p1", "missing"},
		Tasks:    []string{"t1"},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"p1": "Apollo"}, titles.Projects)
	require.Equal(t, map[string]string{"t1": "Write notes"}, titles.Tasks)
	require.Nil(t, titles.Meetings)
}
