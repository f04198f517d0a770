package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexushq/nexus/internal/app"
	"github.com/nexushq/nexus/internal/database"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()

	cfg := &app.Config{
		Database: app.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "nexus.sqlite"),
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true},
		},
	}
	_, err := app.ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	return cfg
}

func TestBootstrapRuntimePersistsJWTSecret(t *testing.T) {
	cfg := testConfig(t)
	log := zap.NewNop()
	first := cfg.Auth.JWT.Secret

	stack, err := bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	stack.Shutdown(context.Background(), log)

	// A restart with a freshly generated secret keeps the stored one.
	cfg.Auth.JWT.Secret = "rotated-secret-that-should-be-ignored"
	stack, err = bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), log) })
	require.Equal(t, first, cfg.Auth.JWT.Secret)
}

func TestBootstrapRuntimeRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestBootstrapRuntimeRequiresMongoURI(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "mongodb"
	cfg.Database.MongoDB = app.MongoDBConfig{Database: "nexus"}

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "uri is required")
}

func TestInitialiseMailerDisabled(t *testing.T) {
	mailer, err := initialiseMailer(&app.Config{}, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, mailer)

	cfg := &app.Config{Email: app.EmailConfig{SMTP: app.SMTPConfig{Enabled: true}}}
	_, err = initialiseMailer(cfg, zap.NewNop())
	require.Error(t, err)
}

func TestInitialiseDatabaseMigrates(t *testing.T) {
	cfg := testConfig(t)

	db, err := initialiseDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	version, err := database.GetSystemSetting(context.Background(), db, database.SchemaVersionSetting)
	require.NoError(t, err)
	require.Equal(t, "1", version)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "does not exist")
}
