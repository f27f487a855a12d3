package order

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = fmt.Errorf("order: %w", apperr.ErrNotFound)
	ErrNoItems       = fmt.Errorf("order: at least one item is required: %w", apperr.ErrValidation)
	ErrBadItem       = fmt.Errorf("order: item needs a product id and a positive quantity: %w", apperr.ErrValidation)
	ErrNegativeTotal = fmt.Errorf("order: total must not be negative: %w", apperr.ErrValidation)
)

// LineItem is one product line; Name and Price are captured when stock is reserved.
type LineItem struct {
	ProductID string
	Quantity  int
	Name      string
	Price     decimal.Decimal
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ItemRequest is a requested quantity of one product.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

type Order struct {
	ID        string
	OwnerID   string
	ClientID  string
	Status    Status
	Total     decimal.Decimal
	Items     []LineItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *Order) Owner() string {
	if o == nil {
		return ""
	}
	return o.OwnerID
}

// Consolidate validates requested items and merges repeated products, keeping first-seen order.
func Consolidate(items []ItemRequest) ([]ItemRequest, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	index := make(map[string]int, len(items))
	out := make([]ItemRequest, 0, len(items))
	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return nil, ErrBadItem
		}
		if i, ok := index[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out, nil
}

// ComputeTotal sums price times quantity over items.
func ComputeTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// New builds a pending order unless status says otherwise. A nil total is computed from items.
func New(id, ownerID, clientID string, items []LineItem, status Status, total *decimal.Decimal, now time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return nil, apperr.Invalid("estado", "unknown status "+string(status))
	}
	sum := ComputeTotal(items)
	if total != nil {
		if total.IsNegative() {
			return nil, ErrNegativeTotal
		}
		sum = *total
	}
	now = now.UTC()
	return &Order{
		ID:        id,
		OwnerID:   ownerID,
		ClientID:  clientID,
		Status:    status,
		Total:     sum,
		Items:     append([]LineItem(nil), items...),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Changes is a partial order update. Items, when set, replace every line.
type Changes struct {
	ClientID *string
	Items    []LineItem
	Status   *Status
	Total    *decimal.Decimal
}

// Apply merges c into o. A new item set without an explicit total recomputes it.
func (o *Order) Apply(c Changes, now time.Time) error {
	next := *o
	if c.ClientID != nil {
		next.ClientID = *c.ClientID
	}
	if c.Status != nil {
		if !c.Status.Valid() {
			return apperr.Invalid("estado", "unknown status "+string(*c.Status))
		}
		next.Status = *c.Status
	}
	if c.Items != nil {
		if len(c.Items) == 0 {
			return ErrNoItems
		}
		next.Items = append([]LineItem(nil), c.Items...)
		next.Total = ComputeTotal(next.Items)
	}
	if c.Total != nil {
		if c.Total.IsNegative() {
			return ErrNegativeTotal
		}
		next.Total = *c.Total
	}
	next.UpdatedAt = now.UTC()
	*o = next
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]LineItem(nil), o.Items...)
	return &clone
}

// Filter narrows List; empty fields match everything.
type Filter struct {
	OwnerID string
	Status  Status
}

func (f Filter) Match(o *Order) bool {
	if f.OwnerID != "" && o.OwnerID != f.OwnerID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return true
}

type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f Filter) ([]*Order, error)
	Update(ctx context.Context, id string, fn func(o *Order) error) (*Order, error)
	Delete(ctx context.Context, id string) error
}
