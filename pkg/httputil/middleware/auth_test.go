package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/hub/pkg/auth"
	"github.com/creatorhub/hub/pkg/httputil"
)

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", 15*time.Minute, 24*time.Hour)
	creatorID := uuid.New()
	pair, err := tokens.IssuePair(creatorID, "creator@example.com", "session-1")
	require.NoError(t, err)

	handler := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := httputil.CreatorID(r)
		assert.True(t, ok)
		assert.Equal(t, creatorID, got)

		claims, ok := Claims(r)
		assert.True(t, ok)
		assert.Equal(t, "creator@example.com", claims.Email)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/assistant", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("token from cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/assistant", nil)
		req.AddCookie(&http.Cookie{Name: "hub_token", Value: pair.AccessToken})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/assistant", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/assistant", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/assistant", nil)
		req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
