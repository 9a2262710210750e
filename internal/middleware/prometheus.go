package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crucial707/auditlog-admin/internal/metrics"
)

// unmeteredPaths are probe and scrape endpoints left out of the request metrics.
var unmeteredPaths = map[string]bool{"/metrics": true, "/health": true, "/ready": true}

// Prometheus records request duration and count. The path label is the
// matched chi route pattern so entry ids do not multiply series; unmatched
// paths fall back to metrics.NormalizePath.
func Prometheus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unmeteredPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		sw := wrapWriter(w)
		next.ServeHTTP(sw, r)
		metrics.RecordRequest(r.Method, routeLabel(r), sw.status, time.Since(start).Seconds())
	})
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	if r.URL.Path == "" {
		return "/"
	}
	return r.URL.Path
}
