package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/nexushq/nexus/pkg/errors"
	"github.com/nexushq/nexus/pkg/logger"
)

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Role   string
}

// IsAdmin reports whether the identity carries the administrator role.
func (i *Identity) IsAdmin() bool {
	return i != nil && strings.EqualFold(i.Role, "admin")
}

// IdentityResolver maps a verified token subject onto the current user record.
// Implementations return apperrors.ErrNotFound for unknown users.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID string) (*Identity, error)
}

// Authenticator verifies bearer tokens and resolves them to live users.
type Authenticator struct {
	jwt      *JWTService
	resolver IdentityResolver
}

// NewAuthenticator wires token verification to the user directory.
func NewAuthenticator(jwt *JWTService, resolver IdentityResolver) (*Authenticator, error) {
	if jwt == nil {
		return nil, errors.New("authenticator: jwt service is required")
	}
	if resolver == nil {
		return nil, errors.New("authenticator: identity resolver is required")
	}
	return &Authenticator{jwt: jwt, resolver: resolver}, nil
}

// Authenticate validates token and resolves its user. Every failure collapses to
// apperrors.ErrAuthenticationFailed; the cause is kept as the internal error.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.ErrAuthenticationFailed.WithInternal(errors.New("missing bearer token"))
	}

	claims, err := a.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, apperrors.ErrAuthenticationFailed.WithInternal(err)
	}

	identity, err := a.resolver.ResolveIdentity(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.WithModule("auth").Warn("identity lookup failed",
				zap.String("user_id", claims.UserID),
				zap.Error(err),
			)
		}
		return nil, apperrors.ErrAuthenticationFailed.WithInternal(err)
	}
	if identity == nil {
		return nil, apperrors.ErrAuthenticationFailed.WithInternal(errors.New("user not found"))
	}

	return identity, nil
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// TokenFromRequest is BearerToken with a fallback to the token/access_token
// query parameters. Only websocket upgrades, which cannot set headers from a
// browser, should use it.
func TokenFromRequest(r *http.Request) string {
	if token := BearerToken(r); token != "" || r == nil {
		return token
	}

	query := r.URL.Query()
	for _, key := range []string{"token", "access_token"} {
		if value := strings.TrimSpace(query.Get(key)); value != "" {
			return value
		}
	}

	return ""
}
