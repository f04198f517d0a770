package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/nexushq/nexus/pkg/errors"
)

type stubResolver map[string]*Identity

func (s stubResolver) ResolveIdentity(_ context.Context, userID string) (*Identity, error) {
	identity, ok := s[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return identity, nil
}

func newTestAuthenticator(t *testing.T, now func() time.Time) (*Authenticator, *JWTService) {
	t.Helper()

	svc, err := NewJWTService(JWTConfig{Secret: "secret", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)

	authenticator, err := NewAuthenticator(svc, stubResolver{
		"user-1": {UserID: "user-1", Name: "Ada", Role: "admin"},
	})
	require.NoError(t, err)
	return authenticator, svc
}

func TestAuthenticateResolvesIdentity(t *testing.T) {
	authenticator, svc := newTestAuthenticator(t, time.Now)

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1", Role: "member"})
	require.NoError(t, err)

	identity, err := authenticator.Authenticate(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "user-1", identity.UserID)
	require.True(t, identity.IsAdmin(), "role must come from the user record, not the token")
}

func TestAuthenticateFailures(t *testing.T) {
	current := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	authenticator, svc := newTestAuthenticator(t, func() time.Time { return current })

	unknown, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "ghost"})
	require.NoError(t, err)
	expired, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	cases := map[string]func() string{
		"missing":      func() string { return "" },
		"malformed":    func() string { return "not-a-jwt" },
		"unknown user": func() string { return unknown },
		"expired": func() string {
			current = current.Add(5 * time.Minute)
			return expired
		},
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := authenticator.Authenticate(context.Background(), token())
			require.Error(t, err)
			require.True(t, errors.Is(err, apperrors.ErrAuthenticationFailed))

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			require.Equal(t, "Authentication failed", appErr.Message)
		})
	}
}

func TestNewAuthenticatorRequiresDependencies(t *testing.T) {
	_, err := NewAuthenticator(nil, stubResolver{})
	require.Error(t, err)

	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)
	_, err = NewAuthenticator(svc, nil)
	require.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws/notifications?token=query-token", nil)
	require.Equal(t, "query-token", TokenFromRequest(req))

	req = httptest.NewRequest("GET", "/ws/notifications?access_token=alt-token", nil)
	require.Equal(t, "alt-token", TokenFromRequest(req))

	req = httptest.NewRequest("GET", "/ws/notifications?token=query-token", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	require.Equal(t, "header-token", TokenFromRequest(req))

	req = httptest.NewRequest("GET", "/ws/notifications", nil)
	req.Header.Set("Authorization", "Basic abc")
	require.Equal(t, "", TokenFromRequest(req))

	require.Equal(t, "", TokenFromRequest(nil))
}

func TestBearerTokenIgnoresQueryParameters(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/notifications?token=query-token", nil)
	require.Equal(t, "", BearerToken(req))

	req.Header.Set("Authorization", "bearer  header-token ")
	require.Equal(t, "header-token", BearerToken(req))

	require.Equal(t, "", BearerToken(nil))
}
