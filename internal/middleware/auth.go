package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	iauth "github.com/nexushq/nexus/internal/auth"
	"github.com/nexushq/nexus/pkg/errors"
	"github.com/nexushq/nexus/pkg/metrics"
	"github.com/nexushq/nexus/pkg/response"
)

const (
	CtxIdentityKey = "identity"
	CtxUserIDKey   = "userID"
)

// Authenticator resolves a bearer token to the calling user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*iauth.Identity, error)
}

// Auth rejects requests without a valid Authorization bearer token and stores
// the resolved identity on the context. Query parameter tokens are ignored.
func Auth(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authenticator.Authenticate(c.Request.Context(), iauth.BearerToken(c.Request))
		if err != nil {
			metrics.AuthAttempts.WithLabelValues("api", "failure").Inc()
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrAuthenticationFailed)
			c.Abort()
			return
		}
		metrics.AuthAttempts.WithLabelValues("api", "success").Inc()

		c.Set(CtxIdentityKey, identity)
		c.Set(CtxUserIDKey, identity.UserID)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c *gin.Context) (*iauth.Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*iauth.Identity)
	return identity, ok && identity != nil
}
