package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nexushq/nexus/internal/api"
	"github.com/nexushq/nexus/internal/app"
	"github.com/nexushq/nexus/internal/app/maintenance"
	iauth "github.com/nexushq/nexus/internal/auth"
	"github.com/nexushq/nexus/internal/database"
	"github.com/nexushq/nexus/internal/handlers"
	"github.com/nexushq/nexus/internal/mongostore"
	"github.com/nexushq/nexus/internal/notifications"
	"github.com/nexushq/nexus/internal/realtime"
	"github.com/nexushq/nexus/internal/services"
	"github.com/nexushq/nexus/pkg/logger"
	"github.com/nexushq/nexus/pkg/mail"
)

// userDirectory is everything the runtime needs from the user records.
type userDirectory interface {
	notifications.UserDirectory
	notifications.PreferenceStore
	iauth.IdentityResolver
}

// backend bundles the storage implementations for the selected driver.
type backend struct {
	store      notifications.Store
	users      userDirectory
	references notifications.ReferenceResolver
	// expirer is nil for stores that expire records themselves.
	expirer maintenance.Expirer
	ping    handlers.Pinger
	close   func(ctx context.Context) error
	// jwtSecret resolves the signing secret; nil keeps the configured one.
	jwtSecret func(ctx context.Context, candidate string) (string, error)
}

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	Backend    *backend
	Dispatcher *notifications.Dispatcher
	Cleaner    *maintenance.Cleaner
	Router     *gin.Engine
}

// bootstrapRuntime initialises storage, the dispatcher, background jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Database.UsesMongo() {
		stack.Backend, err = openMongoBackend(ctx, cfg)
	} else {
		stack.Backend, err = openSQLBackend(cfg)
	}
	if err != nil {
		return nil, err
	}

	if stack.Backend.jwtSecret != nil {
		if cfg.Auth.JWT.Secret, err = stack.Backend.jwtSecret(ctx, cfg.Auth.JWT.Secret); err != nil {
			return nil, fmt.Errorf("resolve jwt secret: %w", err)
		}
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	authenticator, err := iauth.NewAuthenticator(jwtSvc, stack.Backend.users)
	if err != nil {
		return nil, fmt.Errorf("initialise authenticator: %w", err)
	}

	mailer, err := initialiseMailer(cfg, log)
	if err != nil {
		return nil, err
	}

	smtp := cfg.Email.SMTPSettings()
	stack.Dispatcher, err = notifications.NewDispatcher(notifications.Dependencies{
		Store:       stack.Backend.store,
		Users:       stack.Backend.users,
		Preferences: stack.Backend.users,
		References:  stack.Backend.references,
		Mailer:      mailer,
	},
		notifications.WithRetention(cfg.Notifications.Retention),
		notifications.WithSummarySize(cfg.Notifications.SummarySize),
		notifications.WithEmailTimeout(cfg.Notifications.EmailTimeout),
		notifications.WithEmail(cfg.Server.BaseURL, cfg.Email.SubjectPrefix, smtp.From),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise dispatcher: %w", err)
	}

	cleanerOpts := []maintenance.Option{
		maintenance.WithCleanupSchedule(cfg.Notifications.CleanupSchedule),
		maintenance.WithScheduledSchedule(cfg.Notifications.ScheduledSchedule),
		maintenance.WithExpirySchedule(cfg.Notifications.ExpirySchedule),
	}
	if stack.Backend.expirer != nil {
		cleanerOpts = append(cleanerOpts, maintenance.WithExpirer(stack.Backend.expirer))
	}
	stack.Cleaner = maintenance.NewCleaner(stack.Dispatcher, cleanerOpts...)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	gateway, err := realtime.NewGateway(stack.Dispatcher, realtime.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		BufferSize:     cfg.Notifications.ClientBuffer,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise gateway: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:        cfg,
		Dispatcher:    stack.Dispatcher,
		Gateway:       gateway,
		Authenticator: authenticator,
		Ping:          stack.Backend.ping,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Dispatcher != nil {
		s.Dispatcher.Close()
	}

	if s.Backend != nil && s.Backend.close != nil {
		if err := s.Backend.close(context.Background()); err != nil {
			log.Warn("failed to close storage", zap.Error(err))
		}
	}
}

func openSQLBackend(cfg *app.Config) (*backend, error) {
	db, err := initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	store, err := services.NewNotificationStore(db)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserDirectory(db)
	if err != nil {
		return nil, err
	}
	references, err := services.NewReferenceResolver(db)
	if err != nil {
		return nil, err
	}

	return &backend{
		store:      store,
		users:      users,
		references: references,
		expirer:    store,
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func(context.Context) error {
			return database.Close(db)
		},
		jwtSecret: func(ctx context.Context, candidate string) (string, error) {
			return database.EnsureJWTSecret(ctx, db, candidate)
		},
	}, nil
}

func openMongoBackend(ctx context.Context, cfg *app.Config) (*backend, error) {
	client, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Database.MongoDB.URI,
		Database: cfg.Database.MongoDB.Database,
		Timeout:  cfg.Database.MongoDB.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open mongodb: %w", err)
	}

	if err := client.EnsureIndexes(ctx); err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("ensure mongodb indexes: %w", err)
	}

	logger.WithModule("database").Info("database connected",
		zap.String("driver", "mongodb"),
		zap.String("database", cfg.Database.MongoDB.Database),
	)

	return &backend{
		store:      client.Notifications(),
		users:      client.Users(),
		references: client.References(),
		ping:       client.Ping,
		close:      client.Close,
	}, nil
}

func initialiseMailer(cfg *app.Config, log *zap.Logger) (mail.Mailer, error) {
	settings := cfg.Email.SMTPSettings()
	if !settings.Enabled {
		log.Info("smtp disabled; email fallback is off")
		return nil, nil
	}

	mailer, err := mail.NewSMTPMailer(settings)
	if err != nil {
		return nil, fmt.Errorf("initialise smtp mailer: %w", err)
	}
	log.Info("smtp enabled", zap.String("host", settings.Host), zap.Int("port", settings.Port))
	return mailer, nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.SQLConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}
