package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nexushq/nexus/internal/models"
	"github.com/nexushq/nexus/internal/notifications"
)

// ReferenceResolver looks up display titles of projects, tasks, meetings and
// feedback referenced by notification metadata.
type ReferenceResolver struct {
	db *gorm.DB
}

var _ notifications.ReferenceResolver = (*ReferenceResolver)(nil)

// NewReferenceResolver constructs a ReferenceResolver.
func NewReferenceResolver(db *gorm.DB) (*ReferenceResolver, error) {
	if db == nil {
		return nil, errors.New("reference resolver: db is required")
	}
	return &ReferenceResolver{db: db}, nil
}

// ResolveTitles issues one query per entity kind that has ids to resolve.
func (r *ReferenceResolver) ResolveTitles(ctx context.Context, ids notifications.ReferenceIDs) (notifications.ReferenceTitles, error) {
	ctx = ensureContext(ctx)

	var (
		titles notifications.ReferenceTitles
		err    error
	)
	if titles.Projects, err = r.titles(ctx, &models.Project{}, "projects", "name", ids.Projects); err != nil {
		return notifications.ReferenceTitles{}, err
	}
	if titles.Tasks, err = r.titles(ctx, &models.Task{}, "tasks", "title", ids.Tasks); err != nil {
		return notifications.ReferenceTitles{}, err
	}
	if titles.Meetings, err = r.titles(ctx, &models.Meeting{}, "meetings", "title", ids.Meetings); err != nil {
		return notifications.ReferenceTitles{}, err
	}
	if titles.Feedback, err = r.titles(ctx, &models.Feedback{}, "feedback", "title", ids.Feedback); err != nil {
		return notifications.ReferenceTitles{}, err
	}
	return titles, nil
}

func (r *ReferenceResolver) titles(ctx context.Context, model any, kind, column string, ids []string) (map[string]string, error) {
	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []struct {
		ID    string
		Title string
	}
	err := r.db.WithContext(ctx).
		Model(model).
		Select(fmt.Sprintf("id, %s AS title", column)).
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("reference resolver: load %s: %w", kind, err)
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Title
	}
	return out, nil
}
