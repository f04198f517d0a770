package notifications

import (
	"context"

	"github.com/nexushq/nexus/internal/models"
)

// CollectReferences gathers the distinct entity ids referenced by notifications.
func CollectReferences(items []models.Notification) ReferenceIDs {
	var ids ReferenceIDs
	seen := make(map[string]struct{})
	add := func(kind string, id string, dst *[]string) {
		if id == "" {
			return
		}
		key := kind + ":" + id
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		*dst = append(*dst, id)
	}

	for _, item := range items {
		add("project", item.Metadata.ProjectID, &ids.Projects)
		add("task", item.Metadata.TaskID, &ids.Tasks)
		add("meeting", item.Metadata.MeetingID, &ids.Meetings)
		add("feedback", item.Metadata.FeedbackID, &ids.Feedback)
	}
	return ids
}

// Enrich projects notifications into views with their references resolved.
// It never mutates its input. On resolver failure the plain views are
// returned together with the error so callers may degrade gracefully.
func Enrich(ctx context.Context, resolver ReferenceResolver, items []models.Notification) ([]View, error) {
	views := make([]View, len(items))
	for i := range items {
		views[i] = View{Notification: items[i]}
	}

	if resolver == nil {
		return views, nil
	}
	ids := CollectReferences(items)
	if ids.Empty() {
		return views, nil
	}

	titles, err := resolver.ResolveTitles(ctx, ids)
	if err != nil {
		return views, err
	}

	for i := range views {
		meta := views[i].Metadata
		related := Related{
			Project:  reference(meta.ProjectID, titles.Projects),
			Task:     reference(meta.TaskID, titles.Tasks),
			Meeting:  reference(meta.MeetingID, titles.Meetings),
			Feedback: reference(meta.FeedbackID, titles.Feedback),
		}
		if related != (Related{}) {
			views[i].Related = &related
		}
	}
	return views, nil
}

func reference(id string, titles map[string]string) *Reference {
	if id == "" {
		return nil
	}
	title, ok := titles[id]
	if !ok {
		return nil
	}
	return &Reference{ID: id, Title: title}
}
