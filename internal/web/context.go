package web

import (
	"context"
	"net/http"
)

// importContext detaches an import from its request. A notification source
// that hangs up must not roll back a file halfway through, so only the
// request values (request ID) carry over and the import gets its own
// deadline.
func (s *Server) importContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(r.Context())
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
