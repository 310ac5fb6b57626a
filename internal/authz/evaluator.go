package authz

import (
	"crypto/subtle"
	"log/slog"
	"sort"
)

// Evaluator answers authentication and capability questions over principal
// and role registries that are immutable after construction. It is safe for
// concurrent use without locking.
type Evaluator struct {
	principals map[string]Principal
	roles      map[string]Role
}

// NewEvaluator builds an Evaluator from static registry configuration.
// Role references that do not resolve are kept (evaluation skips them) but
// reported through the logger so a misconfigured registry is visible at
// startup instead of silently shrinking a principal's capabilities.
func NewEvaluator(cfg Config, logger *slog.Logger) *Evaluator {
	e := &Evaluator{
		principals: make(map[string]Principal, len(cfg.Principals)),
		roles:      make(map[string]Role, len(cfg.Roles)),
	}
	for _, rc := range cfg.Roles {
		caps := make(map[string]struct{}, len(rc.Capabilities))
		for _, c := range rc.Capabilities {
			caps[c] = struct{}{}
		}
		e.roles[rc.Name] = Role{Name: rc.Name, Capabilities: caps}
	}
	for _, pc := range cfg.Principals {
		roles := make([]string, len(pc.Roles))
		copy(roles, pc.Roles)
		e.principals[pc.Identity] = Principal{
			Identity:   pc.Identity,
			Credential: pc.Credential,
			Roles:      roles,
			Active:     pc.IsActive(),
		}
		if logger == nil {
			continue
		}
		for _, name := range pc.Roles {
			if _, ok := e.roles[name]; !ok {
				logger.Warn("principal references unknown role",
					slog.String("identity", pc.Identity),
					slog.String("role", name),
				)
			}
		}
	}
	return e
}

// Authenticate resolves identity/credential against the principal registry.
// Failure modes are distinct: ErrUnknownPrincipal for an absent identity,
// ErrInvalidCredential for a mismatch, ErrPrincipalDisabled for an inactive
// principal with a correct credential.
func (e *Evaluator) Authenticate(identity, credential string) (Principal, error) {
	p, ok := e.principals[identity]
	if !ok {
		return Principal{}, ErrUnknownPrincipal
	}
	if subtle.ConstantTimeCompare([]byte(p.Credential), []byte(credential)) != 1 {
		return Principal{}, ErrInvalidCredential
	}
	if !p.Active {
		return Principal{}, ErrPrincipalDisabled
	}
	return p, nil
}

// HasCapability reports whether any of the principal's resolved roles grants
// the capability. Unresolvable role references are skipped; the first grant
// wins.
func (e *Evaluator) HasCapability(p Principal, capability string) bool {
	for _, name := range p.Roles {
		role, ok := e.roles[name]
		if !ok {
			continue
		}
		if role.Grants(capability) {
			return true
		}
	}
	return false
}

// RequireCapability is the gate protected operations pass before executing.
// It returns a ForbiddenError naming the capability when the check fails.
func (e *Evaluator) RequireCapability(p Principal, capability string) error {
	if e.HasCapability(p, capability) {
		return nil
	}
	return &ForbiddenError{Capability: capability}
}

// EffectiveCapabilities returns the sorted union of capabilities across the
// principal's resolved roles.
func (e *Evaluator) EffectiveCapabilities(p Principal) []string {
	union := make(map[string]struct{})
	for _, name := range p.Roles {
		role, ok := e.roles[name]
		if !ok {
			continue
		}
		for c := range role.Capabilities {
			union[c] = struct{}{}
		}
	}
	caps := make([]string, 0, len(union))
	for c := range union {
		caps = append(caps, c)
	}
	sort.Strings(caps)
	return caps
}

// Principal looks up a registry entry by identity.
func (e *Evaluator) Principal(identity string) (Principal, bool) {
	p, ok := e.principals[identity]
	return p, ok
}

// Roles lists all registered roles ordered by name.
func (e *Evaluator) Roles() []Role {
	roles := make([]Role, 0, len(e.roles))
	for _, r := range e.roles {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles
}
