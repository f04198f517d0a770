package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexushq/nexus/internal/database/testutil"
	"github.com/nexushq/nexus/internal/models"
	"github.com/nexushq/nexus/internal/notifications"
)

func TestReferenceResolverResolvesTitles(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	resolver, err := NewReferenceResolver(db)
	require.NoError(t, err)

	project := models.Project{Name: "Apollo"}
	require.NoError(t, db.Create(&project).Error)
	task := models.Task{ProjectID: project.ID, Title: "Write launch notes"}
	require.NoError(t, db.Create(&task).Error)
	meeting := models.Meeting{ProjectID: project.ID, Title: "Kickoff"}
	require.NoError(t, db.Create(&meeting).Error)
	feedback := models.Feedback{ProjectID: project.ID, Title: "Logo concerns"}
	require.NoError(t, db.Create(&feedback).Error)

	titles, err := resolver.ResolveTitles(context.Background(), notifications.ReferenceIDs{
		Projects: []string{project.ID, project.ID, "missing"},
		Tasks:    []string{task.ID},
		Meetings: []string{meeting.ID},
		Feedback: []string{feedback.ID},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{project.ID: "Apollo"}, titles.Projects)
	require.Equal(t, "Write launch notes", titles.Tasks[task.ID])
	require.Equal(t, "Kickoff", titles.Meetings[meeting.ID])
	require.Equal(t, "Logo concerns", titles.Feedback[feedback.ID])
}

func TestReferenceResolverSkipsEmptyKinds(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	resolver, err := NewReferenceResolver(db)
	require.NoError(t, err)

	titles, err := resolver.ResolveTitles(context.Background(), notifications.ReferenceIDs{})
	require.NoError(t, err)
	require.Nil(t, titles.Projects)
	require.Nil(t, titles.Tasks)
}
