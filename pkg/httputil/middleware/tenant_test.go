package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/creatorhub/hub/pkg/httputil"
)

func TestTenantFromOIDC(t *testing.T) {
	creatorID := uuid.New()

	tests := []struct {
		name       string
		claims     map[string]any
		claimPath  string
		wantStatus int
		wantTenant bool
	}{
		{
			name:       "creator id in nested claim",
			claims:     map[string]any{"hub": map[string]any{"creator_id": creatorID.String()}},
			claimPath:  ".hub.creator_id",
			wantStatus: http.StatusOK,
			wantTenant: true,
		},
		{
			name:       "missing claim",
			claims:     map[string]any{"hub": map[string]any{}},
			claimPath:  ".hub.creator_id",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "claim is not a uuid",
			claims:     map[string]any{"hub": map[string]any{"creator_id": "not-a-uuid"}},
			claimPath:  ".hub.creator_id",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "claim is not a string",
			claims:     map[string]any{"hub": map[string]any{"creator_id": 42}},
			claimPath:  ".hub.creator_id",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTenant uuid.UUID
			var tenantSet bool
			handler := TenantFromOIDC(tt.claimPath)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotTenant, tenantSet = httputil.CreatorID(r)
				w.WriteHeader(http.StatusOK)
			}))

			user := &oidc.IntrospectionResponse{Active: true, Claims: tt.claims}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/assistant", nil)
			req = req.WithContext(context.WithValue(req.Context(), httputil.OIDCUserCtxKey, user))
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantTenant {
				assert.True(t, tenantSet)
				assert.Equal(t, creatorID, gotTenant)
			}
		})
	}
}

func TestTenantFromOIDCKeepsExistingCreatorID(t *testing.T) {
	existing := uuid.New()
	handler := TenantFromOIDC(".hub.creator_id")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := httputil.CreatorID(r)
		assert.True(t, ok)
		assert.Equal(t, existing, got)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assistant", nil)
	req = req.WithContext(context.WithValue(req.Context(), httputil.CreatorIDCtxKey, existing))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTenantFromOIDCWithoutUser(t *testing.T) {
	handler := TenantFromOIDC(".hub.creator_id")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assistant", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
