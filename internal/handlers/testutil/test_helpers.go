package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nexushq/nexus/internal/api"
	"github.com/nexushq/nexus/internal/app"
	iauth "github.com/nexushq/nexus/internal/auth"
	sharedtestutil "github.com/nexushq/nexus/internal/database/testutil"
	"github.com/nexushq/nexus/internal/models"
	"github.com/nexushq/nexus/internal/notifications"
	"github.com/nexushq/nexus/internal/realtime"
	"github.com/nexushq/nexus/internal/services"
	"github.com/nexushq/nexus/pkg/mail"
	"github.com/nexushq/nexus/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T          *testing.T
	DB         *gorm.DB
	Router     *gin.Engine
	JWT        *iauth.JWTService
	Dispatcher *notifications.Dispatcher
	Mailer     *Mailer
}

// Mailer records outgoing messages instead of delivering them.
type Mailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

// Send implements mail.Mailer.
func (m *Mailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of every recorded message.
func (m *Mailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-suite-super-secret-key-32-bytes!!",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	store, err := services.NewNotificationStore(db)
	require.NoError(t, err)
	directory, err := services.NewUserDirectory(db)
	require.NoError(t, err)
	references, err := services.NewReferenceResolver(db)
	require.NoError(t, err)

	mailer := &Mailer{}
	dispatcher, err := notifications.NewDispatcher(notifications.Dependencies{
		Store:       store,
		Users:       directory,
		Preferences: directory,
		References:  references,
		Mailer:      mailer,
	}, notifications.WithEmail("https://app.example.com", "[Nexus]", "noreply@example.com"))
	require.NoError(t, err)
	t.Cleanup(dispatcher.Close)

	authenticator, err := iauth.NewAuthenticator(jwtSvc, directory)
	require.NoError(t, err)

	gateway, err := realtime.NewGateway(dispatcher, realtime.Options{})
	require.NoError(t, err)

	cfg := &app.Config{
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}

	router, err := api.NewRouter(api.Dependencies{
		Config:        cfg,
		Dispatcher:    dispatcher,
		Gateway:       gateway,
		Authenticator: authenticator,
	})
	require.NoError(t, err)

	return &Env{
		T:          t,
		DB:         db,
		Router:     router,
		JWT:        jwtSvc,
		Dispatcher: dispatcher,
		Mailer:     mailer,
	}
}

// CreateUser inserts an active user with the given role and returns it with a bearer token.
func (e *Env) CreateUser(name, role string) (*models.User, string) {
	e.T.Helper()

	user := sharedtestutil.MustCreateUser(e.T, e.DB, name, role)
	return user, e.Token(user)
}

// Token issues an access token for user.
func (e *Env) Token(user *models.User) string {
	e.T.Helper()

	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Role: user.Role})
	require.NoError(e.T, err)
	return token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
