package middleware

import (
	"net/http"
	"strconv"

	"github.com/creatorhub/hub/pkg/metrics"
)

// Metrics records one observation per request, labeled by the matched route
// pattern rather than the raw path so cardinality stays bounded.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := NewResponseRecorder(w)
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.StatusCode)).Inc()
	})
}
