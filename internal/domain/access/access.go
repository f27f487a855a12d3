// Package access holds the ownership rule applied to clients and orders.
package access

import (
	"fmt"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
)

// Principal is the authenticated seller on whose behalf an operation runs.
type Principal struct {
	ID         string
	Email      string
	GivenName  string
	FamilyName string
}

// Owned is any record that belongs to a single seller.
type Owned interface {
	Owner() string
}

var (
	ErrForbidden = fmt.Errorf("access: %w", apperr.ErrForbidden)
	ErrAnonymous = fmt.Errorf("access: %w", apperr.ErrUnauthenticated)
)

// AssertOwner fails with ErrForbidden unless the record belongs to the principal.
func AssertOwner(record Owned, p Principal) error {
	if record == nil || p.ID == "" || record.Owner() != p.ID {
		return ErrForbidden
	}
	return nil
}

// RequirePrincipal fails with ErrAnonymous when no identity is attached to the call.
func RequirePrincipal(p *Principal) error {
	if p == nil || p.ID == "" {
		return ErrAnonymous
	}
	return nil
}
