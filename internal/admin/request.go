package admin

import (
	"context"
	"net/http"
	"net/url"

	"github.com/crucial707/auditlog-admin/internal/models"
)

type ctxKey struct{}

// ResolverMatch describes the named route that served a request.
type ResolverMatch struct {
	URLName string
}

// Request is what permission gates and display helpers see of an HTTP request.
type Request struct {
	User          *models.User
	ResolverMatch *ResolverMatch
	Path          string
	Query         url.Values
}

// WithURLName records the route name on ctx.
func WithURLName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKey{}, name)
}

// URLName returns the route name recorded on ctx, if any.
func URLName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(ctxKey{}).(string)
	return name, ok && name != ""
}

// Named wraps h so requests it serves carry the route name.
func Named(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r.WithContext(WithURLName(r.Context(), name)))
	}
}

// NewRequest builds a Request from r for user. ResolverMatch is nil when the route was not named.
func NewRequest(r *http.Request, user *models.User) *Request {
	req := &Request{
		User:  user,
		Path:  r.URL.Path,
		Query: r.URL.Query(),
	}
	if name, ok := URLName(r.Context()); ok {
		req.ResolverMatch = &ResolverMatch{URLName: name}
	}
	return req
}
