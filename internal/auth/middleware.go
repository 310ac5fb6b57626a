package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/platform/httpx"
	"github.com/wardenhq/warden/internal/token"
)

type bearerContextKey struct{}

// BearerFromContext extracts the raw bearer token the request carried.
func BearerFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(bearerContextKey{}).(string)
	return value, ok
}

// Authenticator resolves bearer tokens into principals for downstream
// handlers. Requests without a valid token are rejected.
type Authenticator struct {
	Logger    *slog.Logger
	Tokens    *token.Store
	Evaluator *authz.Evaluator
}

// Middleware performs the token-to-principal resolution.
func (a Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value, ok := bearerToken(r)
		if !ok {
			httpx.Unauthorized(w, "not authenticated")
			return
		}

		identity, err := a.Tokens.Resolve(r.Context(), value)
		if err != nil {
			if errors.Is(err, token.ErrNotFound) {
				httpx.Unauthorized(w, "invalid authentication credentials")
				return
			}
			a.Logger.Error("resolve token", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}

		// The registry may have changed across a restart while the
		// token outlived it in Redis.
		principal, ok := a.Evaluator.Principal(identity)
		if !ok {
			httpx.Unauthorized(w, "invalid authentication credentials")
			return
		}
		if !principal.Active {
			httpx.Problem(w, http.StatusBadRequest, "Inactive Principal", "principal is disabled")
			return
		}

		ctx := authz.ContextWithPrincipal(r.Context(), principal)
		ctx = context.WithValue(ctx, bearerContextKey{}, value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
