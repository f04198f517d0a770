package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexushq/nexus/internal/app"
	"github.com/nexushq/nexus/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, ping handlers.Pinger) {
	health := handlers.Health(ping)
	r.GET("/health", health)
	r.GET("/api/health", health)

	if !cfg.Monitoring.Prometheus.Enabled {
		return
	}

	endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
