package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexushq/nexus/internal/models"
)

type resolverFunc func(ctx context.Context, ids ReferenceIDs) (ReferenceTitles, error)

func (f resolverFunc) ResolveTitles(ctx context.Context, ids ReferenceIDs) (ReferenceTitles, error) {
	return f(ctx, ids)
}

func TestCollectReferencesDeduplicates(t *testing.T) {
	items := []models.Notification{
		{Metadata: models.NotificationMetadata{ProjectID: "p1", TaskID: "t1"}},
		{Metadata: models.NotificationMetadata{ProjectID: "p1", MeetingID: "m1"}},
		{Metadata: models.NotificationMetadata{FeedbackID: "f1"}},
	}

	ids := CollectReferences(items)
	require.Equal(t, []string{"p1"}, ids.Projects)
	require.Equal(t, []string{"t1"}, ids.Tasks)
	require.Equal(t, []string{"m1"}, ids.Meetings)
	require.Equal(t, []string{"f1"}, ids.Feedback)
	require.True(t, CollectReferences(nil).Empty())
}

func TestEnrichAttachesResolvedTitles(t *testing.T) {
	items := []models.Notification{
		{ID: "n1", Metadata: models.NotificationMetadata{ProjectID: "p1", TaskID: "gone"}},
		{ID: "n2"},
	}
	calls := 0
	resolver := resolverFunc(func(_ context.Context, ids ReferenceIDs) (ReferenceTitles, error) {
		calls++
		return ReferenceTitles{Projects: map[string]string{"p1": "Apollo"}}, nil
	})

	views, err := Enrich(context.Background(), resolver, items)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Len(t, views, 2)
	require.NotNil(t, views[0].Related)
	require.Equal(t, &Reference{ID: "p1", Title: "Apollo"}, views[0].Related.Project)
	require.Nil(t, views[0].Related.Task)
	require.Nil(t, views[1].Related)
	require.Equal(t, "n1", items[0].ID)
}

func TestEnrichDegradesOnResolverFailure(t *testing.T) {
	items := []models.Notification{{ID: "n1", Metadata: models.NotificationMetadata{ProjectID: "p1"}}}
	resolver := resolverFunc(func(context.Context, ReferenceIDs) (ReferenceTitles, error) {
		return ReferenceTitles{}, errors.New("database unavailable")
	})

	views, err := Enrich(context.Background(), resolver, items)
	require.Error(t, err)
	require.Len(t, views, 1)
	require.Nil(t, views[0].Related)
}
