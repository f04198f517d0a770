package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nexushq/nexus/internal/models"
	apperrors "github.com/nexushq/nexus/pkg/errors"
	"github.com/nexushq/nexus/pkg/logger"
	"github.com/nexushq/nexus/pkg/mail"
	"github.com/nexushq/nexus/pkg/metrics"
)

// Dependencies are the collaborators a Dispatcher is built from.
// References and Mailer are optional.
type Dependencies struct {
	Store       Store
	Users       UserDirectory
	Preferences PreferenceStore
	References  ReferenceResolver
	Mailer      mail.Mailer
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the time source used for timestamps and cutoffs.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithRetention sets how long read notifications are kept before Cleanup removes them.
func WithRetention(retention time.Duration) Option {
	return func(d *Dispatcher) {
		if retention > 0 {
			d.retention = retention
		}
	}
}

// WithSummarySize sets how many unread notifications a summary carries.
func WithSummarySize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.summarySize = size
		}
	}
}

// WithEmailTimeout bounds a single email delivery attempt.
func WithEmailTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.emailTimeout = timeout
		}
	}
}

// WithEmail configures the link base URL, subject prefix and sender used for email.
func WithEmail(baseURL, subjectPrefix, from string) Option {
	return func(d *Dispatcher) {
		d.baseURL = baseURL
		d.subjectPrefix = subjectPrefix
		d.from = from
	}
}

// Dispatcher persists notification intents and routes them to live channels,
// the offline queue and email. It owns the connection registry and queue.
type Dispatcher struct {
	store      Store
	users      UserDirectory
	prefs      *PreferenceResolver
	references ReferenceResolver
	mailer     mail.Mailer
	renderer   *EmailRenderer

	registry *Registry
	queue    *Queue

	// delivery serialises, per user, "is the user online, then push or
	// enqueue" against "register a channel, then drain the queue".
	delivery userLocks
	emails   taskGroup

	now          func() time.Time
	log          *zap.Logger
	retention    time.Duration
	summarySize  int
	emailTimeout time.Duration

	baseURL       string
	subjectPrefix string
	from          string
}

// NewDispatcher constructs a Dispatcher with an empty registry and queue.
func NewDispatcher(deps Dependencies, opts ...Option) (*Dispatcher, error) {
	if deps.Store == nil {
		return nil, errors.New("dispatcher: store is required")
	}
	if deps.Users == nil {
		return nil, errors.New("dispatcher: user directory is required")
	}
	prefs, err := NewPreferenceResolver(deps.Preferences)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	d := &Dispatcher{
		store:        deps.Store,
		users:        deps.Users,
		prefs:        prefs,
		references:   deps.References,
		mailer:       deps.Mailer,
		registry:     NewRegistry(),
		queue:        NewQueue(),
		now:          func() time.Time { return time.Now().UTC() },
		log:          logger.WithModule("dispatcher"),
		retention:    defaultRetention,
		summarySize:  defaultSummarySize,
		emailTimeout: defaultEmailTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.emails.log = d.log

	if d.mailer != nil {
		renderer, err := NewEmailRenderer(d.baseURL, d.subjectPrefix, d.from)
		if err != nil {
			return nil, fmt.Errorf("dispatcher: %w", err)
		}
		d.renderer = renderer
	}

	return d, nil
}

// Send persists one record per target user, pushes it live or queues it, and
// schedules the email. A failure for one user is logged and reported in
// SendResult.Failed without affecting the others.
func (d *Dispatcher) Send(ctx context.Context, intent Intent) (*SendResult, error) {
	intent.UserIDs = uniqueIDs(intent.UserIDs)
	if intent.Priority == "" {
		intent.Priority = models.PriorityMedium
	}
	if err := validate(intent); err != nil {
		return nil, err
	}

	result := &SendResult{Created: make([]models.Notification, 0, len(intent.UserIDs))}
	for _, userID := range intent.UserIDs {
		record, err := d.deliver(ctx, intent, userID)
		if err != nil {
			d.log.Error("notification delivery failed",
				zap.String("user_id", userID),
				zap.String("type", intent.Type),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, userID)
			continue
		}
		result.Created = append(result.Created, *record)
	}

	return result, nil
}

// BroadcastToAll sends intent to every active user.
func (d *Dispatcher) BroadcastToAll(ctx context.Context, intent Intent) (*SendResult, error) {
	return d.broadcastToRole(ctx, "", intent)
}

// BroadcastToRole sends intent to every active user holding role.
func (d *Dispatcher) BroadcastToRole(ctx context.Context, role string, intent Intent) (*SendResult, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, apperrors.NewBadRequest("role is required")
	}
	return d.broadcastToRole(ctx, role, intent)
}

func (d *Dispatcher) broadcastToRole(ctx context.Context, role string, intent Intent) (*SendResult, error) {
	ids, err := d.users.UserIDs(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: resolve recipients: %w", err)
	}
	if len(ids) == 0 {
		return &SendResult{Created: []models.Notification{}}, nil
	}
	intent.UserIDs = ids
	return d.Send(ctx, intent)
}

func (d *Dispatcher) deliver(ctx context.Context, intent Intent, userID string) (*models.Notification, error) {
	record := intent.record(userID)
	record.Prepare(d.now())

	if err := d.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(record.Type).Inc()

	if d.route(record) {
		d.PushSummary(ctx, userID)
	}

	if intent.wantsEmail() {
		d.scheduleEmail(ctx, *record)
	}

	return record, nil
}

// route pushes record to the user's live channels or queues it. It reports
// whether the user was online.
func (d *Dispatcher) route(record *models.Notification) bool {
	unlock := d.delivery.lock(record.UserID)
	defer unlock()

	channels := d.registry.Channels(record.UserID)
	if len(channels) == 0 {
		d.queue.Enqueue(record.UserID, QueuedDelivery{
			NotificationID: record.ID,
			Title:          record.Title,
			Message:        record.Message,
			QueuedAt:       d.now(),
		})
		metrics.Deliveries.WithLabelValues("queued", "success").Inc()
		metrics.PendingDeliveries.Set(float64(d.queue.Depth()))
		return false
	}

	d.broadcast(channels, Event{Name: EventNewNotification, Payload: View{Notification: *record}}, "live")
	return true
}

func (d *Dispatcher) broadcast(channels []Channel, event Event, path string) {
	for _, ch := range channels {
		if err := ch.Send(event); err != nil {
			metrics.Deliveries.WithLabelValues(path, "failure").Inc()
			d.log.Debug("channel send failed", zap.String("event", event.Name), zap.Error(err))
			continue
		}
		metrics.Deliveries.WithLabelValues(path, "success").Inc()
	}
}

// Connect registers ch for userID, delivers everything queued while the user
// was offline and pushes an initial summary to ch. The backlog is written with
// back-pressure so it may exceed the channel's buffer. If ch fails part way,
// it is deregistered, the undelivered entries go back to the queue and an
// error is returned.
func (d *Dispatcher) Connect(ctx context.Context, userID string, ch Channel) error {
	if strings.TrimSpace(userID) == "" || ch == nil {
		return errors.New("dispatcher: user id and channel are required")
	}

	unlock := d.delivery.lock(userID)
	first := d.registry.Add(userID, ch)
	pending := d.queue.Take(userID)

	delivered, err := d.drain(ctx, userID, ch, pending)
	if err != nil {
		d.registry.Remove(userID, ch)
		d.queue.Requeue(userID, pending[delivered:])
	}
	metrics.ConnectedUsers.Set(float64(d.registry.ConnectedCount()))
	metrics.PendingDeliveries.Set(float64(d.queue.Depth()))
	unlock()

	if err != nil {
		d.log.Warn("queued delivery interrupted",
			zap.String("user_id", userID),
			zap.Int("delivered", delivered),
			zap.Int("requeued", len(pending)-delivered),
			zap.Error(err),
		)
		return fmt.Errorf("dispatcher: drain queued notifications: %w", err)
	}

	d.log.Debug("channel connected",
		zap.String("user_id", userID),
		zap.Bool("first", first),
		zap.Int("drained", delivered),
	)

	summary, err := d.Summary(ctx, userID)
	if err != nil {
		d.log.Warn("build notification summary failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if err := sendWaiting(ctx, ch, Event{Name: EventNotificationSummary, Payload: summary}); err != nil {
		metrics.Deliveries.WithLabelValues("summary", "failure").Inc()
		d.log.Debug("initial summary send failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	metrics.Deliveries.WithLabelValues("summary", "success").Inc()
	return nil
}

// drain writes the queued entries to ch in order. It returns how many entries
// were consumed before ch failed.
func (d *Dispatcher) drain(ctx context.Context, userID string, ch Channel, pending []QueuedDelivery) (int, error) {
	for i, entry := range pending {
		record, err := d.lookupQueued(ctx, userID, entry)
		if err != nil {
			metrics.Deliveries.WithLabelValues("drained", "failure").Inc()
			if !errors.Is(err, apperrors.ErrNotFound) {
				d.log.Warn("queued notification lookup failed",
					zap.String("user_id", userID),
					zap.String("notification_id", entry.NotificationID),
					zap.Error(err),
				)
			}
			continue
		}

		event := Event{Name: EventNewNotification, Payload: View{Notification: *record}}
		if err := sendWaiting(ctx, ch, event); err != nil {
			metrics.Deliveries.WithLabelValues("drained", "failure").Inc()
			return i, err
		}
		metrics.Deliveries.WithLabelValues("drained", "success").Inc()
	}
	return len(pending), nil
}

func (d *Dispatcher) lookupQueued(ctx context.Context, userID string, entry QueuedDelivery) (*models.Notification, error) {
	if entry.NotificationID != "" {
		record, err := d.store.Get(ctx, userID, entry.NotificationID)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}
	return d.store.FindLatest(ctx, userID, entry.Title, entry.Message)
}

// Disconnect deregisters ch.
func (d *Dispatcher) Disconnect(userID string, ch Channel) {
	offline := d.registry.Remove(userID, ch)
	metrics.ConnectedUsers.Set(float64(d.registry.ConnectedCount()))
	d.log.Debug("channel disconnected", zap.String("user_id", userID), zap.Bool("offline", offline))
}

// ConnectionStatus reports the live channel state of userID.
func (d *Dispatcher) ConnectionStatus(userID string) ConnectionStatus {
	return d.registry.Status(userID)
}

// PendingCount returns the number of queued deliveries for userID.
func (d *Dispatcher) PendingCount(userID string) int {
	return d.queue.Len(userID)
}

// PushSummary sends a fresh summary to every live channel of userID.
func (d *Dispatcher) PushSummary(ctx context.Context, userID string) {
	d.pushSummaryTo(ctx, userID, d.registry.Channels(userID))
}

func (d *Dispatcher) pushSummaryTo(ctx context.Context, userID string, channels []Channel) {
	if len(channels) == 0 {
		return
	}
	summary, err := d.Summary(ctx, userID)
	if err != nil {
		d.log.Warn("build notification summary failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	d.broadcast(channels, Event{Name: EventNotificationSummary, Payload: summary}, "summary")
}

// Summary returns the unread count and the most recent unread notifications.
func (d *Dispatcher) Summary(ctx context.Context, userID string) (*Summary, error) {
	count, err := d.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: count unread: %w", err)
	}
	items, err := d.store.ListUnread(ctx, userID, d.summarySize)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: list unread: %w", err)
	}

	return &Summary{UnreadCount: count, RecentNotifications: d.enrich(ctx, items)}, nil
}

// List returns one page of the caller's notifications.
func (d *Dispatcher) List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error) {
	opts = opts.normalise()

	items, total, err := d.store.List(ctx, Query{
		UserID:     userID,
		UnreadOnly: opts.UnreadOnly,
		Type:       strings.TrimSpace(opts.Type),
		Priority:   strings.TrimSpace(opts.Priority),
		Offset:     (opts.Page - 1) * opts.Limit,
		Limit:      opts.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatcher: list notifications: %w", err)
	}

	unread, err := d.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: count unread: %w", err)
	}

	pages := int((total + int64(opts.Limit) - 1) / int64(opts.Limit))
	return &ListResult{
		Notifications: d.enrich(ctx, items),
		Pagination: Pagination{
			Page:       opts.Page,
			Limit:      opts.Limit,
			Total:      total,
			TotalPages: pages,
		},
		UnreadCount: unread,
	}, nil
}

func (d *Dispatcher) enrich(ctx context.Context, items []models.Notification) []View {
	views, err := Enrich(ctx, d.references, items)
	if err != nil {
		d.log.Warn("resolve notification references failed", zap.Error(err))
	}
	return views
}

// MarkAsRead marks one of the caller's notifications as read. Notifications
// owned by someone else are reported as not found.
func (d *Dispatcher) MarkAsRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	record, err := d.store.MarkRead(ctx, userID, id, d.now())
	if err != nil {
		return nil, err
	}
	d.PushSummary(ctx, userID)
	return record, nil
}

// MarkAllAsRead marks every unread notification of the caller as read.
func (d *Dispatcher) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	updated, err := d.store.MarkAllRead(ctx, userID, d.now())
	if err != nil {
		return 0, err
	}
	d.PushSummary(ctx, userID)
	return updated, nil
}

// Delete removes one of the caller's notifications.
func (d *Dispatcher) Delete(ctx context.Context, userID, id string) error {
	if err := d.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	d.PushSummary(ctx, userID)
	return nil
}

// DeleteAll removes every notification of the caller.
func (d *Dispatcher) DeleteAll(ctx context.Context, userID string) (int64, error) {
	removed, err := d.store.DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	d.PushSummary(ctx, userID)
	return removed, nil
}

// Preferences returns the caller's preferences, defaulted when unset.
func (d *Dispatcher) Preferences(ctx context.Context, userID string) (models.NotificationPreferences, error) {
	return d.prefs.Get(ctx, userID)
}

// UpdatePreferences replaces the caller's preferences.
func (d *Dispatcher) UpdatePreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error {
	return d.prefs.Update(ctx, userID, prefs)
}

// Stats returns the administrative overview.
func (d *Dispatcher) Stats(ctx context.Context) (*Stats, error) {
	stored, err := d.store.Stats(ctx, d.now().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("dispatcher: stats: %w", err)
	}
	return &Stats{
		Total:          stored.Total,
		Unread:         stored.Unread,
		Urgent:         stored.Urgent,
		Last24Hours:    stored.Recent,
		ConnectedUsers: d.registry.ConnectedCount(),
		PendingQueued:  d.queue.Depth(),
	}, nil
}

// Cleanup deletes read notifications older than the retention period.
// Unread notifications are left to expiry.
func (d *Dispatcher) Cleanup(ctx context.Context) (int64, error) {
	removed, err := d.store.DeleteReadBefore(ctx, d.now().Add(-d.retention))
	if err != nil {
		return 0, fmt.Errorf("dispatcher: cleanup: %w", err)
	}
	return removed, nil
}

// ProcessScheduled is the periodic hook for scheduled notifications. Nothing
// schedules notifications yet, so it only records that the sweep ran.
func (d *Dispatcher) ProcessScheduled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.log.Debug("scheduled notification sweep", zap.Int("pending_queued", d.queue.Depth()))
	return nil
}

// Flush blocks until every scheduled email attempt has finished.
func (d *Dispatcher) Flush() {
	d.emails.Wait()
}

// Close waits for email attempts and closes every live channel.
func (d *Dispatcher) Close() {
	d.Flush()
	d.registry.CloseAll()
	metrics.ConnectedUsers.Set(0)
}

func (d *Dispatcher) scheduleEmail(ctx context.Context, record models.Notification) {
	if d.mailer == nil || d.renderer == nil {
		return
	}

	fields := []zap.Field{
		zap.String("user_id", record.UserID),
		zap.String("notification_id", record.ID),
		zap.String("type", record.Type),
	}

	prefs, err := d.prefs.Get(ctx, record.UserID)
	if err != nil {
		metrics.EmailSends.WithLabelValues("skipped").Inc()
		d.log.Warn("load notification preferences failed", append(fields, zap.Error(err))...)
		return
	}
	if !EmailEnabledFor(record.Type, prefs) {
		metrics.EmailSends.WithLabelValues("skipped").Inc()
		return
	}

	recipient, err := d.users.Recipient(ctx, record.UserID)
	if err != nil {
		metrics.EmailSends.WithLabelValues("skipped").Inc()
		d.log.Warn("resolve email recipient failed", append(fields, zap.Error(err))...)
		return
	}
	if strings.TrimSpace(recipient.Email) == "" {
		metrics.EmailSends.WithLabelValues("skipped").Inc()
		return
	}

	msg, err := d.renderer.Render(record, *recipient)
	if err != nil {
		metrics.EmailSends.WithLabelValues("failed").Inc()
		d.log.Warn("render notification email failed", append(fields, zap.Error(err))...)
		return
	}

	base := context.WithoutCancel(ctx)
	d.emails.Go("notification email", fields, func() error {
		sendCtx, cancel := context.WithTimeout(base, d.emailTimeout)
		defer cancel()

		if err := d.mailer.Send(sendCtx, msg); err != nil {
			metrics.EmailSends.WithLabelValues("failed").Inc()
			return err
		}
		metrics.EmailSends.WithLabelValues("sent").Inc()
		return nil
	})
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
