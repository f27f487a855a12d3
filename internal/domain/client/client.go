package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/user"
)

var (
	ErrNotFound   = fmt.Errorf("client: %w", apperr.ErrNotFound)
	ErrEmailTaken = fmt.Errorf("client: email already registered: %w", apperr.ErrAlreadyExists)
)

// Client is a customer record owned by exactly one seller.
type Client struct {
	ID         string
	GivenName  string
	FamilyName string
	Company    string
	Email      string
	Phone      string
	OwnerID    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Details are the caller-editable fields of a client.
type Details struct {
	GivenName  string
	FamilyName string
	Company    string
	Email      string
	Phone      string
}

// Patch is a partial update. There is no owner field: ownership never changes.
type Patch struct {
	GivenName  *string
	FamilyName *string
	Company    *string
	Email      *string
	Phone      *string
}

func New(id, ownerID string, d Details, now time.Time) (*Client, error) {
	if ownerID == "" {
		return nil, apperr.Invalid("vendedor", "is required")
	}
	now = now.UTC()
	c := &Client{ID: id, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	c.set(d)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Owner() string {
	if c == nil {
		return ""
	}
	return c.OwnerID
}

func (c *Client) set(d Details) {
	c.GivenName = strings.TrimSpace(d.GivenName)
	c.FamilyName = strings.TrimSpace(d.FamilyName)
	c.Company = strings.TrimSpace(d.Company)
	c.Email = user.NormalizeEmail(d.Email)
	c.Phone = strings.TrimSpace(d.Phone)
}

func (c *Client) details() Details {
	return Details{
		GivenName:  c.GivenName,
		FamilyName: c.FamilyName,
		Company:    c.Company,
		Email:      c.Email,
		Phone:      c.Phone,
	}
}

func (c *Client) validate() error {
	switch {
	case c.GivenName == "":
		return apperr.Invalid("nombre", "is required")
	case c.FamilyName == "":
		return apperr.Invalid("apellido", "is required")
	case c.Company == "":
		return apperr.Invalid("empresa", "is required")
	case c.Email == "":
		return apperr.Invalid("email", "is required")
	}
	return nil
}

// Apply merges patch into c; c is untouched when the result is invalid.
func (c *Client) Apply(patch Patch, now time.Time) error {
	d := c.details()
	if patch.GivenName != nil {
		d.GivenName = *patch.GivenName
	}
	if patch.FamilyName != nil {
		d.FamilyName = *patch.FamilyName
	}
	if patch.Company != nil {
		d.Company = *patch.Company
	}
	if patch.Email != nil {
		d.Email = *patch.Email
	}
	if patch.Phone != nil {
		d.Phone = *patch.Phone
	}

	next := *c
	next.set(d)
	if err := next.validate(); err != nil {
		return err
	}
	next.UpdatedAt = now.UTC()
	*c = next
	return nil
}

func (c *Client) Clone() *Client {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Filter narrows List; zero value matches every client.
type Filter struct {
	OwnerID string
}

type Repository interface {
	// Insert fails with ErrEmailTaken when the email is already registered.
	Insert(ctx context.Context, c *Client) error
	Get(ctx context.Context, id string) (*Client, error)
	FindByEmail(ctx context.Context, email string) (*Client, error)
	List(ctx context.Context, f Filter) ([]*Client, error)
	Update(ctx context.Context, id string, fn func(c *Client) error) (*Client, error)
	Delete(ctx context.Context, id string) error
}
