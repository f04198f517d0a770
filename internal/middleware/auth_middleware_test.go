package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/nexushq/nexus/internal/auth"
	apperrors "github.com/nexushq/nexus/pkg/errors"
	"github.com/nexushq/nexus/pkg/response"
)

type authenticatorFunc func(ctx context.Context, token string) (*iauth.Identity, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (*iauth.Identity, error) {
	return f(ctx, token)
}

func staticAuthenticator(tokens map[string]*iauth.Identity) Authenticator {
	return authenticatorFunc(func(_ context.Context, token string) (*iauth.Identity, error) {
		identity, ok := tokens[token]
		if !ok {
			return nil, apperrors.ErrAuthenticationFailed
		}
		return identity, nil
	})
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	authenticator := staticAuthenticator(map[string]*iauth.Identity{
		"good-token": {UserID: "user-123", Role: "member"},
	})

	r := gin.New()
	r.GET("/secure", Auth(authenticator), func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(CtxUserIDKey),
			"role":    identity.Role,
		})
	})

	// Missing Authorization header -> 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	var failure response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &failure))
	require.Equal(t, "AUTHENTICATION_FAILED", failure.Error.Code)

	// Token in the query string is not accepted for API calls
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure?token=good-token", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token -> downstream handler executes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "user-123", payload["user_id"])
	require.Equal(t, "member", payload["role"])
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	authenticator := staticAuthenticator(map[string]*iauth.Identity{
		"admin-token":  {UserID: "admin-1", Role: "admin"},
		"member-token": {UserID: "user-1", Role: "member"},
	})

	r := gin.New()
	r.GET("/admin", Auth(authenticator), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/unguarded", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		path   string
		token  string
		status int
	}{
		{"/admin", "admin-token", http.StatusOK},
		{"/admin", "member-token", http.StatusForbidden},
		{"/unguarded", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		r.ServeHTTP(w, req)
		require.Equal(t, tc.status, w.Code, "%s with %q", tc.path, tc.token)
	}
}
