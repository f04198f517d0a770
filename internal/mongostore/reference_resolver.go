package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nexushq/nexus/internal/notifications"
)

// ReferenceResolver looks up display titles in the entity collections.
type ReferenceResolver struct {
	db *mongo.Database
}

var _ notifications.ReferenceResolver = (*ReferenceResolver)(nil)

// ResolveTitles issues one query per collection that has ids to resolve.
func (r *ReferenceResolver) ResolveTitles(ctx context.Context, ids notifications.ReferenceIDs) (notifications.ReferenceTitles, error) {
	var (
		titles notifications.ReferenceTitles
		err    error
	)
	if titles.Projects, err = r.titles(ctx, ProjectsCollection, "name", ids.Projects); err != nil {
		return notifications.ReferenceTitles{}, err
	}
	if titles.Tasks, err = r.titles(ctx, TasksCollection, "title", ids.Tasks); err != nil {
		return notifications.ReferenceTitles{}, err
	}
	if titles.Meetings, err = r.titles(ctx, MeetingsCollection, "title", ids.Meetings); err != nil {
		return notifications.ReferenceTitles{}, err
	}
	if titles.Feedback, err = r.titles(ctx, FeedbackCollection, "title", ids.Feedback); err != nil {
		return notifications.ReferenceTitles{}, err
	}
	return titles, nil
}

func (r *ReferenceResolver) titles(ctx context.Context, collection, field string, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.db.Collection(collection).Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{field: 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongostore: load %s: %w", collection, err)
	}

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("mongostore: decode %s: %w", collection, err)
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		id, _ := row["_id"].(string)
		title, _ := row[field].(string)
		if id != "" {
			out[id] = title
		}
	}
	return out, nil
}
