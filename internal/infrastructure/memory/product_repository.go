package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/product"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*product.Product
	order    []string
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]*product.Product)}
}

func (r *ProductRepository) Insert(ctx context.Context, p *product.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("product repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[p.ID]; exists {
		return fmt.Errorf("product repository: duplicate id %s", p.ID)
	}
	r.products[p.ID] = p.Clone()
	r.order = append(r.order, p.ID)
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*product.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *ProductRepository) List(ctx context.Context) ([]*product.Product, error) {
	return r.filter(ctx, func(*product.Product) bool { return true }), nil
}

func (r *ProductRepository) Search(ctx context.Context, terms []string) ([]*product.Product, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	return r.filter(ctx, func(p *product.Product) bool {
		name := strings.ToLower(p.Name)
		for _, t := range terms {
			if strings.Contains(name, strings.ToLower(t)) {
				return true
			}
		}
		return false
	}), nil
}

func (r *ProductRepository) filter(ctx context.Context, keep func(*product.Product) bool) []*product.Product {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*product.Product, 0, len(r.order))
	for _, id := range r.order {
		if p := r.products[id]; keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Update holds the write lock across fn so stock changes are atomic per product.
func (r *ProductRepository) Update(ctx context.Context, id string, fn func(p *product.Product) error) (*product.Product, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	r.products[id] = next
	return next.Clone(), nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.products, id)
	r.order = removeID(r.order, id)
	return nil
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
