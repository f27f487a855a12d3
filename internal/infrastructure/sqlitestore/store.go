// Package sqlitestore implements the domain repositories on top of docstore.
package sqlitestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/client"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/docstore"
)

const (
	collectionUsers    = "users"
	collectionProducts = "products"
	collectionClients  = "clients"
	collectionOrders   = "orders"
)

// mapErr translates docstore sentinels into the domain's own.
func mapErr(err, notFound, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return notFound
	case duplicate != nil && errors.Is(err, docstore.ErrDuplicate):
		return duplicate
	}
	return err
}

func decodeAll[R any, T any](docs []docstore.Document, conv func(R) *T) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	for _, d := range docs {
		var rec R
		if err := d.Decode(&rec); err != nil {
			return nil, err
		}
		out = append(out, conv(rec))
	}
	return out, nil
}

// UserRepository

type UserRepository struct{ c *docstore.Collection }

func NewUserRepository(s *docstore.Store) *UserRepository {
	return &UserRepository{c: s.Collection(collectionUsers)}
}

func (r *UserRepository) Insert(ctx context.Context, u *user.User) error {
	return mapErr(r.c.Insert(ctx, u.ID, fromUser(u)), user.ErrNotFound, user.ErrEmailTaken)
}

func (r *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	var rec userRecord
	if _, err := r.c.Get(ctx, id, &rec); err != nil {
		return nil, mapErr(err, user.ErrNotFound, nil)
	}
	return rec.toDomain(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var rec userRecord
	q := docstore.Query{Equal: []docstore.Match{{Field: "email", Value: user.NormalizeEmail(email)}}}
	if err := r.c.FindOne(ctx, q, &rec); err != nil {
		return nil, mapErr(err, user.ErrNotFound, nil)
	}
	return rec.toDomain(), nil
}

// ProductRepository

type ProductRepository struct{ c *docstore.Collection }

func NewProductRepository(s *docstore.Store) *ProductRepository {
	return &ProductRepository{c: s.Collection(collectionProducts)}
}

func (r *ProductRepository) Insert(ctx context.Context, p *product.Product) error {
	return r.c.Insert(ctx, p.ID, fromProduct(p))
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*product.Product, error) {
	var rec productRecord
	if _, err := r.c.Get(ctx, id, &rec); err != nil {
		return nil, mapErr(err, product.ErrNotFound, nil)
	}
	return rec.toDomain(), nil
}

func (r *ProductRepository) List(ctx context.Context) ([]*product.Product, error) {
	docs, err := r.c.Find(ctx, docstore.Query{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return decodeAll(docs, productRecord.toDomain)
}

func (r *ProductRepository) Search(ctx context.Context, terms []string) ([]*product.Product, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	docs, err := r.c.Find(ctx, docstore.Query{Contains: &docstore.Contains{Field: "nombre", Terms: terms}})
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return decodeAll(docs, productRecord.toDomain)
}

func (r *ProductRepository) Update(ctx context.Context, id string, fn func(p *product.Product) error) (*product.Product, error) {
	rec, err := docstore.Modify(ctx, r.c, id, func(rec *productRecord) error {
		p := rec.toDomain()
		if err := fn(p); err != nil {
			return err
		}
		*rec = fromProduct(p)
		return nil
	})
	if err != nil {
		return nil, mapErr(err, product.ErrNotFound, nil)
	}
	return rec.toDomain(), nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return mapErr(r.c.Delete(ctx, id), product.ErrNotFound, nil)
}

// ClientRepository

type ClientRepository struct{ c *docstore.Collection }

func NewClientRepository(s *docstore.Store) *ClientRepository {
	return &ClientRepository{c: s.Collection(collectionClients)}
}

func (r *ClientRepository) Insert(ctx context.Context, c *client.Client) error {
	return mapErr(r.c.Insert(ctx, c.ID, fromClient(c)), client.ErrNotFound, client.ErrEmailTaken)
}

func (r *ClientRepository) Get(ctx context.Context, id string) (*client.Client, error) {
	var rec clientRecord
	if _, err := r.c.Get(ctx, id, &rec); err != nil {
		return nil, mapErr(err, client.ErrNotFound, nil)
	}
	return rec.toDomain(), nil
}

func (r *ClientRepository) FindByEmail(ctx context.Context, email string) (*client.Client, error) {
	var rec clientRecord
	q := docstore.Query{Equal: []docstore.Match{{Field: "email", Value: user.NormalizeEmail(email)}}}
	if err := r.c.FindOne(ctx, q, &rec); err != nil {
		return nil, mapErr(err, client.ErrNotFound, nil)
	}
	return rec.toDomain(), nil
}

func (r *ClientRepository) List(ctx context.Context, f client.Filter) ([]*client.Client, error) {
	var q docstore.Query
	if f.OwnerID != "" {
		q.Equal = append(q.Equal, docstore.Match{Field: "vendedor", Value: f.OwnerID})
	}
	docs, err := r.c.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return decodeAll(docs, clientRecord.toDomain)
}

func (r *ClientRepository) Update(ctx context.Context, id string, fn func(c *client.Client) error) (*client.Client, error) {
	rec, err := docstore.Modify(ctx, r.c, id, func(rec *clientRecord) error {
		c := rec.toDomain()
		if err := fn(c); err != nil {
			return err
		}
		c.OwnerID = rec.OwnerID
		*rec = fromClient(c)
		return nil
	})
	if err != nil {
		return nil, mapErr(err, client.ErrNotFound, client.ErrEmailTaken)
	}
	return rec.toDomain(), nil
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	return mapErr(r.c.Delete(ctx, id), client.ErrNotFound, nil)
}

// OrderRepository

type OrderRepository struct{ c *docstore.Collection }

func NewOrderRepository(s *docstore.Store) *OrderRepository {
	return &OrderRepository{c: s.Collection(collectionOrders)}
}

func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	return r.c.Insert(ctx, o.ID, fromOrder(o))
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	var rec orderRecord
	if _, err := r.c.Get(ctx, id, &rec); err != nil {
		return nil, mapErr(err, order.ErrNotFound, nil)
	}
	return rec.toDomain(), nil
}

func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	var q docstore.Query
	if f.OwnerID != "" {
		q.Equal = append(q.Equal, docstore.Match{Field: "vendedor", Value: f.OwnerID})
	}
	if f.Status != "" {
		q.Equal = append(q.Equal, docstore.Match{Field: "estado", Value: string(f.Status)})
	}
	docs, err := r.c.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return decodeAll(docs, orderRecord.toDomain)
}

func (r *OrderRepository) Update(ctx context.Context, id string, fn func(o *order.Order) error) (*order.Order, error) {
	rec, err := docstore.Modify(ctx, r.c, id, func(rec *orderRecord) error {
		o := rec.toDomain()
		if err := fn(o); err != nil {
			return err
		}
		*rec = fromOrder(o)
		return nil
	})
	if err != nil {
		return nil, mapErr(err, order.ErrNotFound, nil)
	}
	return rec.toDomain(), nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return mapErr(r.c.Delete(ctx, id), order.ErrNotFound, nil)
}

var (
	_ user.Repository    = (*UserRepository)(nil)
	_ product.Repository = (*ProductRepository)(nil)
	_ client.Repository  = (*ClientRepository)(nil)
	_ order.Repository   = (*OrderRepository)(nil)
)
