package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nexushq/nexus/pkg/errors"
	"github.com/nexushq/nexus/pkg/response"
)

// RequireRole allows the request through only when the authenticated user
// holds one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		for _, role := range roles {
			if strings.EqualFold(identity.Role, role) {
				c.Next()
				return
			}
		}
		response.Error(c, errors.ErrForbidden)
		c.Abort()
	}
}

// RequireAdmin restricts a route to administrators.
func RequireAdmin() gin.HandlerFunc {
	return RequireRole("admin")
}
