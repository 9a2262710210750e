package middleware

import (
	"net/http"
)

// Content-Security-Policy values for the two HTTP surfaces.
const (
	// APIContentPolicy allows nothing; the admin API only serves JSON.
	APIContentPolicy = "default-src 'none'; frame-ancestors 'none'"
	// UIContentPolicy allows same-origin pages, forms and the inline styles of the layout.
	UIContentPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'"
)

// SecurityHeaders sets the common security response headers with the given
// Content-Security-Policy. When hsts is true (serving HTTPS), Strict-Transport-Security is added.
func SecurityHeaders(policy string, hsts bool) func(http.Handler) http.Handler {
	if policy == "" {
		policy = APIContentPolicy
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "same-origin")
			h.Set("Content-Security-Policy", policy)
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
