package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/auth"
	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/content"
	"github.com/wardenhq/warden/internal/observability"
	"github.com/wardenhq/warden/internal/token"
)

// Capabilities required by the protected routes.
const (
	CapabilityRead   = "read"
	CapabilityUpdate = "update"
	CapabilityDelete = "delete"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger    *slog.Logger
	Config    *Config
	Evaluator *authz.Evaluator
	Tokens    *token.Store
	Recorder  audit.Recorder
	Metrics   *observability.Metrics
}

// NewRouter constructs the chi.Router with Warden defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	recorder := params.Recorder
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}

	authHandler := auth.NewHandler(params.Logger, params.Evaluator, params.Tokens, recorder, params.Metrics)
	contentHandler := content.NewHandler(params.Logger, params.Evaluator)

	guard := authz.Middleware{
		Evaluator: params.Evaluator,
		Logger:    params.Logger,
		OnDenied: func(req *http.Request, p authz.Principal, capability string) {
			if params.Metrics != nil {
				params.Metrics.ObserveDecision(audit.OpCapability, audit.OutcomeDenied)
			}
			recorder.Record(req.Context(), audit.Decision{
				Identity:   p.Identity,
				Op:         audit.OpCapability,
				Capability: capability,
				Outcome:    audit.OutcomeDenied,
				RemoteAddr: req.RemoteAddr,
			})
		},
	}
	authenticator := auth.Authenticator{
		Logger:    params.Logger,
		Tokens:    params.Tokens,
		Evaluator: params.Evaluator,
	}

	loginLimit := 10
	if params.Config != nil && params.Config.LoginRateLimit > 0 {
		loginLimit = params.Config.LoginRateLimit
	}

	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(loginLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/token", authHandler.IssueToken)
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticator.Middleware)
		r.Delete("/token", authHandler.RevokeToken)
		r.Get("/me", contentHandler.Me)
		r.Get("/authz/capabilities", contentHandler.Capabilities)
		r.With(guard.RequireCapability(CapabilityRead)).Get("/authz/roles", contentHandler.Roles)
		r.With(guard.RequireCapability(CapabilityRead)).Get("/public-content", contentHandler.Public)
		r.With(guard.RequireCapability(CapabilityUpdate)).Get("/editor-content", contentHandler.Editor)
		r.With(guard.RequireCapability(CapabilityDelete)).Get("/admin-only", contentHandler.Admin)
	})

	return r
}
