package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/access"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
)

var (
	ErrNotFound   = fmt.Errorf("user: %w", apperr.ErrNotFound)
	ErrEmailTaken = fmt.Errorf("user: email already registered: %w", apperr.ErrAlreadyExists)
)

// User is a seller account.
type User struct {
	ID           string
	GivenName    string
	FamilyName   string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func New(id, givenName, familyName, email, passwordHash string, now time.Time) (*User, error) {
	u := &User{
		ID:           id,
		GivenName:    strings.TrimSpace(givenName),
		FamilyName:   strings.TrimSpace(familyName),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now.UTC(),
	}
	switch {
	case u.GivenName == "":
		return nil, apperr.Invalid("nombre", "is required")
	case u.FamilyName == "":
		return nil, apperr.Invalid("apellido", "is required")
	case u.Email == "":
		return nil, apperr.Invalid("email", "is required")
	case u.PasswordHash == "":
		return nil, apperr.Invalid("password", "is required")
	}
	return u, nil
}

// Principal is the identity carried by tokens issued for u.
func (u *User) Principal() access.Principal {
	return access.Principal{
		ID:         u.ID,
		Email:      u.Email,
		GivenName:  u.GivenName,
		FamilyName: u.FamilyName,
	}
}

// NormalizeEmail trims and lower-cases an address so uniqueness holds regardless of input casing.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Repository interface {
	// Insert fails with ErrEmailTaken when the email is already registered.
	Insert(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
