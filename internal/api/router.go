package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nexushq/nexus/internal/app"
	"github.com/nexushq/nexus/internal/handlers"
	"github.com/nexushq/nexus/internal/middleware"
	"github.com/nexushq/nexus/internal/notifications"
	"github.com/nexushq/nexus/internal/realtime"
)

const notificationStreamPath = "/ws/notifications"

// Dependencies are the collaborators the HTTP surface is built on.
type Dependencies struct {
	Config        *app.Config
	Dispatcher    *notifications.Dispatcher
	Gateway       *realtime.Gateway
	Authenticator middleware.Authenticator
	// RateStore defaults to a process local store.
	RateStore middleware.RateStore
	// Ping reports storage health on /health; nil skips the check.
	Ping handlers.Pinger
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher must be provided")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway must be provided")
	}
	if deps.Authenticator == nil {
		return nil, fmt.Errorf("authenticator must be provided")
	}
	if deps.RateStore == nil {
		deps.RateStore = middleware.NewMemoryRateStore()
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics(notificationStreamPath))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(deps.Config.Server.AllowedOrigins...))
	// Basic rate limiting: 300 requests/minute per IP+path
	r.Use(middleware.RateLimit(deps.RateStore, 300, time.Minute))

	registerHealthRoutes(r, deps.Config, deps.Ping)

	notificationHandler, err := handlers.NewNotificationHandler(deps.Dispatcher)
	if err != nil {
		return nil, err
	}
	realtimeHandler, err := handlers.NewRealtimeHandler(deps.Gateway, deps.Authenticator)
	if err != nil {
		return nil, err
	}

	// The websocket route authenticates itself so it can accept the token
	// as a query parameter.
	r.GET(notificationStreamPath, realtimeHandler.Stream)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Authenticator))
	registerNotificationRoutes(api, notificationHandler)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
