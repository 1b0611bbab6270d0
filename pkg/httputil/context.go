package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/zitadel/oidc/v3/pkg/oidc"
)

type ContextKey string

const (
	RequestIDCtxKey ContextKey = "RequestID"
	LogEntryCtxKey  ContextKey = "LogEntry"
	ClaimsCtxKey    ContextKey = "Claims"
	CreatorIDCtxKey ContextKey = "CreatorID"
	OIDCUserCtxKey  ContextKey = "OIDCUser"
)

// CreatorID extracts the authenticated creator (tenant) ID from the request
// context. It is set by the auth middleware after token verification.
func CreatorID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(CreatorIDCtxKey).(uuid.UUID)
	return id, ok
}

// OIDCUser extracts the OIDC introspection result from the request context
// when the SSO login path is in use.
func OIDCUser(r *http.Request) (*oidc.IntrospectionResponse, bool) {
	user, ok := r.Context().Value(OIDCUserCtxKey).(*oidc.IntrospectionResponse)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// BindOrError decodes the JSON body of an HTTP request into dst.
// If decoding fails, it responds with a 400 Bad Request error.
func BindOrError(r *http.Request, w http.ResponseWriter, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return err
	}
	return nil
}

// JSON writes a JSON response with the given status code and data.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Text writes a plain text response with the given status code.
func Text(w http.ResponseWriter, statusCode int, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(text)); err != nil {
		http.Error(w, "Failed to write response", http.StatusInternalServerError)
	}
}

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Error sends a JSON response with an error code and message.
func Error(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	errorResponse := ErrorResponse{
		Code:    statusCode,
		Message: message,
	}
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
