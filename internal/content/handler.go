// Package content serves the capability-gated demo resources.
package content

import (
	"log/slog"
	"net/http"

	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/platform/httpx"
)

// Handler serves protected resources. Capability checks happen in the guard
// middleware; these handlers only shape responses.
type Handler struct {
	logger    *slog.Logger
	evaluator *authz.Evaluator
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, evaluator *authz.Evaluator) *Handler {
	return &Handler{logger: logger, evaluator: evaluator}
}

type messageResponse struct {
	Message string `json:"message"`
}

type principalResponse struct {
	Identity string   `json:"identity"`
	Roles    []string `json:"roles"`
	Active   bool     `json:"active"`
}

type capabilitiesResponse struct {
	Identity     string   `json:"identity"`
	Capabilities []string `json:"capabilities"`
}

type roleResponse struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

// Me returns the calling principal.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Unauthorized(w, "not authenticated")
		return
	}
	httpx.JSON(w, http.StatusOK, principalResponse{
		Identity: p.Identity,
		Roles:    p.Roles,
		Active:   p.Active,
	})
}

// Capabilities returns the caller's effective capability set.
func (h *Handler) Capabilities(w http.ResponseWriter, r *http.Request) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Unauthorized(w, "not authenticated")
		return
	}
	httpx.JSON(w, http.StatusOK, capabilitiesResponse{
		Identity:     p.Identity,
		Capabilities: h.evaluator.EffectiveCapabilities(p),
	})
}

// Roles returns the role/capability matrix.
func (h *Handler) Roles(w http.ResponseWriter, r *http.Request) {
	roles := h.evaluator.Roles()
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		caps := h.evaluator.EffectiveCapabilities(authz.Principal{Roles: []string{role.Name}})
		out = append(out, roleResponse{Name: role.Name, Capabilities: caps})
	}
	httpx.JSON(w, http.StatusOK, map[string][]roleResponse{"roles": out})
}

// Public serves content every authenticated principal with read access sees.
func (h *Handler) Public(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, messageResponse{Message: "This is public content accessible to all authenticated users"})
}

// Editor serves content for principals with update access.
func (h *Handler) Editor(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, messageResponse{Message: "This is an editor content route"})
}

// Admin serves content for principals with delete access.
func (h *Handler) Admin(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, messageResponse{Message: "This is an admin-only route"})
}
