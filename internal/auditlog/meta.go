package auditlog

import (
	"net/http"

	"github.com/crucial707/auditlog-admin/internal/middleware"
)

// MetaFromRequest collects the actor, client address and correlation id of r.
func MetaFromRequest(r *http.Request) Meta {
	var meta Meta
	if id, ok := middleware.GetUserID(r.Context()); ok {
		meta.ActorID = &id
	}
	meta.RemoteAddr, meta.RemotePort = middleware.ClientAddr(r)
	meta.CID = middleware.GetCorrelationID(r.Context())
	return meta
}
