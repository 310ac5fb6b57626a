package authz

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPrincipal indicates the identity is not present in the registry.
	ErrUnknownPrincipal = errors.New("authz: unknown principal")
	// ErrInvalidCredential indicates a credential mismatch for a known identity.
	ErrInvalidCredential = errors.New("authz: invalid credential")
	// ErrPrincipalDisabled indicates the principal exists but is inactive.
	ErrPrincipalDisabled = errors.New("authz: principal disabled")
	// ErrForbidden indicates an authenticated principal lacks a capability.
	ErrForbidden = errors.New("authz: forbidden")
)

// ForbiddenError carries the capability a principal was missing.
type ForbiddenError struct {
	Capability string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("authz: require %s capability", e.Capability)
}

// Unwrap lets callers match the error with errors.Is(err, ErrForbidden).
func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}
