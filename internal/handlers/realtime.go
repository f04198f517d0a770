package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/nexushq/nexus/internal/auth"
	"github.com/nexushq/nexus/internal/middleware"
	"github.com/nexushq/nexus/internal/realtime"
	apperrors "github.com/nexushq/nexus/pkg/errors"
	"github.com/nexushq/nexus/pkg/logger"
	"github.com/nexushq/nexus/pkg/metrics"
	"github.com/nexushq/nexus/pkg/response"
)

// RealtimeHandler upgrades authenticated HTTP requests into notification sessions.
type RealtimeHandler struct {
	gateway       *realtime.Gateway
	authenticator middleware.Authenticator
}

// NewRealtimeHandler constructs a realtime handler.
func NewRealtimeHandler(gateway *realtime.Gateway, authenticator middleware.Authenticator) (*RealtimeHandler, error) {
	if gateway == nil {
		return nil, errors.New("realtime handler: gateway is required")
	}
	if authenticator == nil {
		return nil, errors.New("realtime handler: authenticator is required")
	}
	return &RealtimeHandler{gateway: gateway, authenticator: authenticator}, nil
}

// Stream authenticates the caller before the upgrade; a rejected credential
// never reaches the websocket handshake.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	identity, err := h.authenticator.Authenticate(requestContext(c), iauth.TokenFromRequest(c.Request))
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("gateway", "failure").Inc()
		logger.WithModule("gateway").Debug("session rejected",
			zap.String("client_ip", c.ClientIP()),
			zap.Error(err),
		)
		response.Error(c, apperrors.ErrAuthenticationFailed)
		return
	}
	metrics.AuthAttempts.WithLabelValues("gateway", "success").Inc()
	c.Set(middleware.CtxUserIDKey, identity.UserID)

	h.gateway.Serve(identity, c.Writer, c.Request)
}
