package authz

// Principal describes an actor known to the registry.
type Principal struct {
	Identity   string
	Credential string
	Roles      []string
	Active     bool
}

// Role is a named bundle of capabilities.
type Role struct {
	Name         string
	Capabilities map[string]struct{}
}

// Grants reports whether the role contains the capability.
func (r Role) Grants(capability string) bool {
	_, ok := r.Capabilities[capability]
	return ok
}

// CapabilityList returns the role's capabilities as a slice in map order.
func (r Role) CapabilityList() []string {
	caps := make([]string, 0, len(r.Capabilities))
	for c := range r.Capabilities {
		caps = append(caps, c)
	}
	return caps
}
