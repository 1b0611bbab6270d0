package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/creatorhub/hub/pkg/httputil"
	"github.com/creatorhub/hub/pkg/util"
)

// TenantFromOIDC resolves the creator ID for SSO logins from a claim on the
// introspected token, identified by a jq-style path (e.g. ".hub.creator_id").
// It runs after VerifyOIDCToken and before handlers that need tenant scope.
// Requests already carrying a creator ID (JWT path) pass through untouched.
func TenantFromOIDC(claimPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Value(httputil.CreatorIDCtxKey).(uuid.UUID); ok {
				next.ServeHTTP(w, r)
				return
			}

			user, ok := r.Context().Value(httputil.OIDCUserCtxKey).(*oidc.IntrospectionResponse)
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			raw, err := util.Jq(user.Claims, claimPath)
			if err != nil {
				httputil.Error(w, http.StatusForbidden, "No tenant claim")
				return
			}
			s, ok := raw.(string)
			if !ok {
				httputil.Error(w, http.StatusForbidden, "No tenant claim")
				return
			}
			creatorID, err := uuid.Parse(s)
			if err != nil {
				httputil.Error(w, http.StatusForbidden, "Invalid tenant claim")
				return
			}

			ctx := context.WithValue(r.Context(), httputil.CreatorIDCtxKey, creatorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
