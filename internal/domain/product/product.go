package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = fmt.Errorf("product: %w", apperr.ErrNotFound)
	ErrInvalidQuantity = fmt.Errorf("product: quantity must be greater than zero: %w", apperr.ErrValidation)
)

type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	Name  *string
	Price *decimal.Decimal
	Stock *int
}

func New(id, name string, price decimal.Decimal, stock int, now time.Time) (*Product, error) {
	now = now.UTC()
	p := &Product{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Price:     price,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Product) validate() error {
	switch {
	case p.Name == "":
		return apperr.Invalid("nombre", "is required")
	case p.Price.IsNegative():
		return apperr.Invalid("precio", "must not be negative")
	case p.Stock < 0:
		return apperr.Invalid("existencia", "must not be negative")
	}
	return nil
}

// Apply merges patch into p. p is left unchanged when the result would be invalid.
func (p *Product) Apply(patch Patch, now time.Time) error {
	next := *p
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Price != nil {
		next.Price = *patch.Price
	}
	if patch.Stock != nil {
		next.Stock = *patch.Stock
	}
	if err := next.validate(); err != nil {
		return err
	}
	next.UpdatedAt = now.UTC()
	*p = next
	return nil
}

// Deduct removes quantity units from stock or reports an InsufficientStockError.
func (p *Product) Deduct(quantity int, now time.Time) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > p.Stock {
		return &apperr.InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   quantity,
			Available:   p.Stock,
		}
	}
	p.Stock -= quantity
	p.UpdatedAt = now.UTC()
	return nil
}

func (p *Product) Restock(quantity int, now time.Time) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.Stock += quantity
	p.UpdatedAt = now.UTC()
	return nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

type Repository interface {
	Insert(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	// Search returns products whose name contains any of terms, in insertion order.
	Search(ctx context.Context, terms []string) ([]*Product, error)
	// Update applies fn to the stored product as one atomic read-modify-write.
	// An error from fn aborts the write and is returned unchanged.
	Update(ctx context.Context, id string, fn func(p *Product) error) (*Product, error)
	Delete(ctx context.Context, id string) error
}
