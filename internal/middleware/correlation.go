package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// CorrelationIDHeader carries the id that groups log entries written by one logical operation.
const CorrelationIDHeader = "X-Correlation-ID"

const cidKey key = "cid"

var validCID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,255}$`)

// CorrelationID takes the correlation id from the request header, or generates one,
// and echoes it on the response.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(CorrelationIDHeader)
		if !validCID.MatchString(cid) {
			cid = uuid.NewString()
		}
		w.Header().Set(CorrelationIDHeader, cid)
		next.ServeHTTP(w, r.WithContext(WithCorrelationID(r.Context(), cid)))
	})
}

func WithCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, cidKey, cid)
}

// GetCorrelationID returns the request's correlation id, or "".
func GetCorrelationID(ctx context.Context) string {
	cid, _ := ctx.Value(cidKey).(string)
	return cid
}
