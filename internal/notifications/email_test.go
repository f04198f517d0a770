package notifications

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexushq/nexus/internal/models"
)

func TestEmailRendererActionURL(t *testing.T) {
	renderer, err := NewEmailRenderer("https://app.example.com/", "", "noreply@example.com")
	require.NoError(t, err)

	require.Empty(t, renderer.ActionURL(models.Notification{Link: "/tasks/1"}))
	require.Equal(t, "https://app.example.com/tasks/1", renderer.ActionURL(models.Notification{Actionable: true, Link: "/tasks/1"}))
	require.Equal(t, "https://app.example.com/tasks/1", renderer.ActionURL(models.Notification{Actionable: true, Link: "tasks/1"}))
	require.Equal(t, "https://other.example.com/x", renderer.ActionURL(models.Notification{Actionable: true, Link: "https://other.example.com/x"}))
	require.Equal(t, "[Nexus] Deploy finished", renderer.Subject("Deploy finished"))
}

func TestEmailRendererRender(t *testing.T) {
	renderer, err := NewEmailRenderer("https://app.example.com", "[Acme]", "noreply@example.com")
	require.NoError(t, err)

	msg, err := renderer.Render(models.Notification{
		Title:      "Task assigned",
		Message:    "Review <the> launch plan",
		Actionable: true,
		Link:       "/tasks/42",
	}, Recipient{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	require.Equal(t, "noreply@example.com", msg.From)
	require.Equal(t, []string{"ada@example.com"}, msg.To)
	require.Equal(t, "[Acme] Task assigned", msg.Subject)
	require.Contains(t, msg.Body, "Hi Ada,")
	require.Contains(t, msg.Body, "View details: https://app.example.com/tasks/42")
	require.Contains(t, msg.HTMLBody, `href="https://app.example.com/tasks/42"`)
	require.Contains(t, msg.HTMLBody, "Review &lt;the&gt; launch plan")
}

func TestEmailRendererOmitsActionWhenNotActionable(t *testing.T) {
	renderer, err := NewEmailRenderer("https://app.example.com", "", "")
	require.NoError(t, err)

	msg, err := renderer.Render(models.Notification{Title: "FYI", Message: "Nothing to do", Action: "Open", Link: "/x"}, Recipient{Email: "x@example.com"})
	require.NoError(t, err)
	require.NotContains(t, msg.Body, "Open:")
	require.NotContains(t, msg.HTMLBody, "href=")
}
