// Package auth exposes the token-issuing HTTP surface: login, logout and
// the bearer-token middleware protected routes sit behind.
package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/observability"
	"github.com/wardenhq/warden/internal/platform/httpx"
	"github.com/wardenhq/warden/internal/token"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	evaluator *authz.Evaluator
	tokens    *token.Store
	recorder  audit.Recorder
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, evaluator *authz.Evaluator, tokens *token.Store, recorder audit.Recorder, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		evaluator: evaluator,
		tokens:    tokens,
		recorder:  recorder,
		metrics:   metrics,
		validator: validator.New(),
	}
}

type loginRequest struct {
	Identity   string `json:"identity" validate:"required"`
	Credential string `json:"credential" validate:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// IssueToken authenticates identity/credential and returns a fresh bearer
// token. Unknown identities and wrong credentials get the same response so
// the endpoint does not reveal which identities exist.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "identity and credential are required")
		return
	}

	principal, err := h.evaluator.Authenticate(req.Identity, req.Credential)
	if err != nil {
		h.observe(audit.OutcomeDenied)
		h.recorder.Record(r.Context(), audit.Decision{
			Identity:   req.Identity,
			Op:         audit.OpAuthenticate,
			Outcome:    audit.OutcomeDenied,
			Reason:     authFailureReason(err),
			RemoteAddr: r.RemoteAddr,
		})
		if errors.Is(err, authz.ErrPrincipalDisabled) {
			httpx.Problem(w, http.StatusBadRequest, "Inactive Principal", "principal is disabled")
			return
		}
		httpx.Unauthorized(w, "incorrect identity or credential")
		return
	}

	issued, err := h.tokens.Issue(r.Context(), principal.Identity)
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	h.observe(audit.OutcomeGranted)
	h.recorder.Record(r.Context(), audit.Decision{
		Identity:   principal.Identity,
		Op:         audit.OpAuthenticate,
		Outcome:    audit.OutcomeGranted,
		RemoteAddr: r.RemoteAddr,
	})

	httpx.JSON(w, http.StatusOK, loginResponse{
		AccessToken: issued.Value,
		TokenType:   "bearer",
		ExpiresIn:   int64(issued.ExpiresIn.Seconds()),
	})
}

// RevokeToken invalidates the caller's bearer token.
func (h *Handler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	value, ok := BearerFromContext(r.Context())
	if !ok {
		httpx.Unauthorized(w, "not authenticated")
		return
	}
	if err := h.tokens.Revoke(r.Context(), value); err != nil {
		h.logger.Error("revoke token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) observe(outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveDecision(audit.OpAuthenticate, outcome)
	}
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, authz.ErrUnknownPrincipal):
		return "unknown principal"
	case errors.Is(err, authz.ErrInvalidCredential):
		return "invalid credential"
	case errors.Is(err, authz.ErrPrincipalDisabled):
		return "principal disabled"
	default:
		return err.Error()
	}
}
