package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes caps admin request bodies (1 MiB). Login and user
// payloads are a few hundred bytes.
const DefaultMaxBodyBytes = 1 << 20

// MaxBytes limits request bodies to maxBytes. A declared Content-Length above
// the limit is refused with 413 before the handler runs; otherwise the body
// reader fails once the limit is crossed.
func MaxBytes(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
