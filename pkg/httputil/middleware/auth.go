package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/creatorhub/hub/pkg/auth"
	"github.com/creatorhub/hub/pkg/httputil"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	VerifyAccess(token string) (*auth.Claims, error)
}

// RequireAuth verifies the JWT bearer token on every request and stores the
// claims and the creator (tenant) ID in the request context. Requests without
// a valid token get a 401.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				httputil.Error(w, http.StatusUnauthorized, "Authorization header missing")
				return
			}

			claims, err := verifier.VerifyAccess(token)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), httputil.ClaimsCtxKey, claims)
			ctx = context.WithValue(ctx, httputil.CreatorIDCtxKey, claims.CreatorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Claims retrieves verified token claims from the request context.
func Claims(r *http.Request) (*auth.Claims, bool) {
	claims, ok := r.Context().Value(httputil.ClaimsCtxKey).(*auth.Claims)
	return claims, ok
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[len("bearer "):])
	}
	// The web widget keeps its token in a cookie.
	if cookie, err := r.Cookie("hub_token"); err == nil {
		return cookie.Value
	}
	return ""
}
