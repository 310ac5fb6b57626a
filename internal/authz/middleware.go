package authz

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/wardenhq/warden/internal/platform/httpx"
)

// Middleware wires capability guards for HTTP handlers. Handlers behind a
// guard can assume a principal is present in the request context.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
	// OnDenied is invoked for every refused capability check, for audit
	// and metrics purposes. May be nil.
	OnDenied func(r *http.Request, p Principal, capability string)
}

// RequireAuthenticated ensures a principal was resolved for the request.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFromContext(r.Context()); !ok {
				httpx.Unauthorized(w, "not authenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCapability ensures the current principal holds the capability.
func (m Middleware) RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.Unauthorized(w, "not authenticated")
				return
			}
			if err := m.Evaluator.RequireCapability(p, capability); err != nil {
				m.deny(w, r, p, capability)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyCapability ensures the current principal holds at least one of
// the capabilities. An empty list allows every authenticated principal.
func (m Middleware) RequireAnyCapability(capabilities ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.Unauthorized(w, "not authenticated")
				return
			}
			if len(capabilities) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			for _, c := range capabilities {
				if m.Evaluator.HasCapability(p, c) {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.deny(w, r, p, strings.Join(capabilities, "|"))
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, p Principal, capability string) {
	if m.Logger != nil {
		m.Logger.Warn("capability denied",
			slog.String("identity", p.Identity),
			slog.String("capability", capability),
			slog.String("path", r.URL.Path),
		)
	}
	if m.OnDenied != nil {
		m.OnDenied(r, p, capability)
	}
	httpx.Forbidden(w, capability)
}
