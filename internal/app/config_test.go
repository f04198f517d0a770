package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexushq/nexus/internal/auth"
	"github.com/nexushq/nexus/internal/database"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "https://nexus.example.com", cfg.Server.BaseURL)
	require.Equal(t, []string{"https://nexus.example.com", "https://admin.nexus.example.com"}, cfg.Server.AllowedOrigins)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 6543, cfg.Database.Postgres.Port)
	require.Equal(t, "nexus", cfg.Database.MongoDB.Database)
	require.Equal(t, 10*time.Second, cfg.Database.MongoDB.Timeout)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "nexus-api", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)

	require.Equal(t, "[Nexus Staging]", cfg.Email.SubjectPrefix)
	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.Equal(t, 240*time.Hour, cfg.Notifications.Retention)
	require.Equal(t, 8, cfg.Notifications.SummarySize)
	require.Equal(t, 128, cfg.Notifications.ClientBuffer)
	require.Equal(t, "@every 30m", cfg.Notifications.CleanupSchedule)
	require.Equal(t, "@every 1m", cfg.Notifications.ScheduledSchedule)
	require.Equal(t, 30*time.Second, cfg.Notifications.EmailTimeout)

	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("NEXUS_SERVER_PORT", "7070")
	t.Setenv("NEXUS_DATABASE_DRIVER", "mongodb")
	t.Setenv("NEXUS_NOTIFICATIONS_RETENTION", "48h")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Server.Port)
	require.True(t, cfg.Database.UsesMongo())
	require.Equal(t, 48*time.Hour, cfg.Notifications.Retention)
	require.Equal(t, 5, cfg.Notifications.SummarySize)
	require.Equal(t, "[Nexus]", cfg.Email.SubjectPrefix)
	require.Equal(t, "@hourly", cfg.Notifications.CleanupSchedule)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{
		JWT: JWTSettings{
			Secret: "secret",
			Issuer: "issuer",
			TTL:    30 * time.Minute,
		},
	}

	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
	}, cfg.JWTServiceConfig())

	var empty AuthConfig
	require.Equal(t, auth.DefaultAccessTokenTTL, empty.JWTServiceConfig().AccessTokenTTL)
}

func TestDatabaseConfigAdapter(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "MySQL",
		MySQL: DBAuthConfig{
			Host:     "mysql.internal",
			Port:     3307,
			Database: "nexus",
			Username: "svc",
			Password: "pw",
		},
	}

	require.Equal(t, database.Config{
		Driver:   "mysql",
		Host:     "mysql.internal",
		Port:     3307,
		User:     "svc",
		Password: "pw",
		Name:     "nexus",
	}, cfg.SQLConfig())
	require.False(t, cfg.UsesMongo())

	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./data/test.sqlite"}
	require.Equal(t, database.Config{Driver: "sqlite", Path: "./data/test.sqlite"}, sqlite.SQLConfig())
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		From: "Nexus <notify@example.com>",
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "user", settings.Username)
	require.Equal(t, "pass", settings.Password)
	require.Equal(t, "Nexus <notify@example.com>", settings.From)
	require.True(t, settings.UseTLS)
	require.Equal(t, 10*time.Second, settings.Timeout)

	cfg.SMTP.From = "smtp@example.com"
	require.Equal(t, "smtp@example.com", cfg.SMTPSettings().From)
}
