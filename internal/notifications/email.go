package notifications

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/nexushq/nexus/internal/models"
	"github.com/nexushq/nexus/pkg/mail"
)

//go:embed templates/*
var templateFS embed.FS

const (
	defaultSubjectPrefix = "[Nexus]"
	defaultActionLabel   = "View details"
)

// EmailRenderer turns notifications into outbound email messages.
type EmailRenderer struct {
	baseURL       string
	subjectPrefix string
	from          string
	html          *htmltemplate.Template
	text          *texttemplate.Template
}

type emailData struct {
	Name      string
	Title     string
	Message   string
	Action    string
	ActionURL string
}

// NewEmailRenderer parses the embedded templates. Links are resolved against baseURL.
func NewEmailRenderer(baseURL, subjectPrefix, from string) (*EmailRenderer, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/notification.html")
	if err != nil {
		return nil, fmt.Errorf("email renderer: parse html template: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/notification.txt")
	if err != nil {
		return nil, fmt.Errorf("email renderer: parse text template: %w", err)
	}

	prefix := strings.TrimSpace(subjectPrefix)
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}

	return &EmailRenderer{
		baseURL:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		subjectPrefix: prefix,
		from:          strings.TrimSpace(from),
		html:          html,
		text:          text,
	}, nil
}

// Subject returns the prefixed subject line for a notification title.
func (r *EmailRenderer) Subject(title string) string {
	return r.subjectPrefix + " " + title
}

// ActionURL returns the absolute call-to-action link, or "" when the
// notification is not actionable.
func (r *EmailRenderer) ActionURL(n models.Notification) string {
	link := strings.TrimSpace(n.Link)
	if !n.Actionable || link == "" {
		return ""
	}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	if !strings.HasPrefix(link, "/") {
		link = "/" + link
	}
	return r.baseURL + link
}

// Render builds the multipart email for n addressed to recipient.
func (r *EmailRenderer) Render(n models.Notification, recipient Recipient) (mail.Message, error) {
	data := emailData{
		Name:      recipient.Name,
		Title:     n.Title,
		Message:   n.Message,
		ActionURL: r.ActionURL(n),
	}
	if data.ActionURL != "" {
		data.Action = strings.TrimSpace(n.Action)
		if data.Action == "" {
			data.Action = defaultActionLabel
		}
	}

	var html bytes.Buffer
	if err := r.html.ExecuteTemplate(&html, "notification.html", data); err != nil {
		return mail.Message{}, fmt.Errorf("email renderer: execute html template: %w", err)
	}
	var text bytes.Buffer
	if err := r.text.ExecuteTemplate(&text, "notification.txt", data); err != nil {
		return mail.Message{}, fmt.Errorf("email renderer: execute text template: %w", err)
	}

	return mail.Message{
		From:     r.from,
		To:       []string{recipient.Email},
		Subject:  r.Subject(n.Title),
		Body:     text.String(),
		HTMLBody: html.String(),
	}, nil
}
