package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nexushq/nexus/internal/auth"
	"github.com/nexushq/nexus/internal/models"
	"github.com/nexushq/nexus/internal/notifications"
	apperrors "github.com/nexushq/nexus/pkg/errors"
	"github.com/nexushq/nexus/pkg/logger"
)

// Client to server event names.
const (
	EventMarkRead          = "mark_notification_read"
	EventMarkAllRead       = "mark_all_notifications_read"
	EventGetNotifications  = "get_notifications"
	EventUpdatePreferences = "update_notification_preferences"
	EventPing              = "ping"
)

// Dispatcher is the notification surface a session drives.
type Dispatcher interface {
	Connect(ctx context.Context, userID string, ch notifications.Channel) error
	Disconnect(userID string, ch notifications.Channel)
	MarkAsRead(ctx context.Context, userID, id string) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	List(ctx context.Context, userID string, opts notifications.ListOptions) (*notifications.ListResult, error)
	UpdatePreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error
}

// Options configure a Gateway.
type Options struct {
	// AllowedOrigins lists browser origins permitted to open sessions in
	// addition to same-host and loopback origins. "*" allows any origin.
	AllowedOrigins []string
	// BufferSize is the per-connection outbound queue length.
	BufferSize int
}

// Gateway upgrades authenticated requests into notification sessions.
type Gateway struct {
	dispatcher Dispatcher
	upgrader   websocket.Upgrader
	bufferSize int
	log        *zap.Logger
}

// NewGateway constructs a Gateway.
func NewGateway(dispatcher Dispatcher, opts Options) (*Gateway, error) {
	if dispatcher == nil {
		return nil, errors.New("realtime gateway: dispatcher is required")
	}

	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		if origin = normalizeOrigin(origin); origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return &Gateway{
		dispatcher: dispatcher,
		bufferSize: opts.BufferSize,
		log:        logger.WithModule("realtime"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowed, r)
			},
		},
	}, nil
}

// Serve upgrades the request and runs the session for identity until the
// client goes away. The caller must have authenticated the request.
func (g *Gateway) Serve(identity *auth.Identity, w http.ResponseWriter, r *http.Request) {
	socket, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := newConnection(socket, identity.UserID, g.bufferSize, g.log)
	go conn.writeLoop()

	if err := g.dispatcher.Connect(ctx, identity.UserID, conn); err != nil {
		g.log.Warn("register session failed", zap.String("user_id", identity.UserID), zap.Error(err))
		_ = conn.Close()
		return
	}
	defer g.dispatcher.Disconnect(identity.UserID, conn)

	conn.readLoop(func(msg inbound) {
		g.handle(ctx, conn, identity.UserID, msg)
	})
}

// handle runs one inbound event. Failures and panics are logged; the client
// only ever sees the events a successful handler emits.
func (g *Gateway) handle(ctx context.Context, conn *connection, userID string, msg inbound) {
	fields := []zap.Field{zap.String("user_id", userID), zap.String("event", msg.Event)}
	defer func() {
		if rec := recover(); rec != nil {
			g.log.Error("session handler panicked", append(fields, zap.String("panic", fmt.Sprint(rec)))...)
		}
	}()

	err := g.dispatch(ctx, conn, userID, msg)
	if err == nil {
		return
	}
	if apperrors.FromError(err).StatusCode >= http.StatusInternalServerError {
		g.log.Error("session event failed", append(fields, zap.Error(err))...)
		return
	}
	g.log.Warn("session event rejected", append(fields, zap.Error(err))...)
}

func (g *Gateway) dispatch(ctx context.Context, conn *connection, userID string, msg inbound) error {
	switch strings.TrimSpace(msg.Event) {
	case EventPing:
		return conn.Send(notifications.Event{
			Name:    notifications.EventPong,
			Payload: map[string]any{"timestamp": time.Now().UTC()},
		})

	case EventMarkRead:
		var data struct {
			NotificationID string `json:"notificationId"`
		}
		if err := decode(msg.Data, &data); err != nil {
			return err
		}
		if strings.TrimSpace(data.NotificationID) == "" {
			return apperrors.NewBadRequest("notificationId is required")
		}
		_, err := g.dispatcher.MarkAsRead(ctx, userID, data.NotificationID)
		return err

	case EventMarkAllRead:
		_, err := g.dispatcher.MarkAllAsRead(ctx, userID)
		return err

	case EventGetNotifications:
		var opts notifications.ListOptions
		if err := decode(msg.Data, &opts); err != nil {
			return err
		}
		result, err := g.dispatcher.List(ctx, userID, opts)
		if err != nil {
			return err
		}
		return conn.Send(notifications.Event{Name: notifications.EventNotificationsList, Payload: result})

	case EventUpdatePreferences:
		var data struct {
			Preferences notifications.PreferencesInput `json:"preferences"`
		}
		if err := decode(msg.Data, &data); err != nil {
			return err
		}
		prefs, err := data.Preferences.Preferences()
		if err != nil {
			return err
		}
		if err := g.dispatcher.UpdatePreferences(ctx, userID, prefs); err != nil {
			return err
		}
		return conn.Send(notifications.Event{
			Name:    notifications.EventPreferencesUpdated,
			Payload: map[string]any{"success": true},
		})

	default:
		return apperrors.NewBadRequest(fmt.Sprintf("Unsupported event %q", msg.Event))
	}
}

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.NewBadRequest("Invalid event data").WithInternal(err)
	}
	return nil
}

func originAllowed(allowed map[string]struct{}, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if _, ok := allowed["*"]; ok {
		return true
	}
	if _, ok := allowed[normalizeOrigin(origin)]; ok {
		return true
	}
	originHost := hostWithoutPort(origin)
	return originHost == hostWithoutPort(r.Host) || isLoopback(originHost)
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		if parsed, err := url.Parse(host); err == nil {
			return hostWithoutPort(parsed.Host)
		}
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
