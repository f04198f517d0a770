package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexushq/nexus/pkg/errors"
	"github.com/nexushq/nexus/pkg/logger"
	"github.com/nexushq/nexus/pkg/response"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

// Health returns a simple status payload useful for readiness checks. When
// ping is set, an unreachable store turns the response into a 503.
func Health(ping Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(requestContext(c), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				logger.WithModule("http").Warn("health check failed", zap.Error(err))
				response.Error(c, errors.New("UNAVAILABLE", "Storage unavailable", http.StatusServiceUnavailable))
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
