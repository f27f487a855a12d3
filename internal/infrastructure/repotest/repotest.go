// Package repotest holds behaviour checks shared by every repository driver.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/client"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func Users(t *testing.T, repo user.Repository) {
	ctx := context.Background()

	u, err := user.New("u1", "Ana", "Lopez", "ana@example.com", "$2a$10$x", now)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, u))

	dup, err := user.New("u2", "Ana", "Twin", "ANA@example.com", "$2a$10$y", now)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Insert(ctx, dup), apperr.ErrAlreadyExists)

	got, err := repo.FindByEmail(ctx, " Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "$2a$10$x", got.PasswordHash)

	_, err = repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func Products(t *testing.T, repo product.Repository) {
	ctx := context.Background()

	laptop, err := product.New("p1", "Gaming Laptop", decimal.RequireFromString("1299.99"), 5, now)
	require.NoError(t, err)
	mouse, err := product.New("p2", "Mouse", decimal.RequireFromString("19.50"), 10, now)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, laptop))
	require.NoError(t, repo.Insert(ctx, mouse))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, laptop.Price.Equal(got.Price))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "p1", all[0].ID)

	hits, err := repo.Search(ctx, []string{"laptop"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "p1", hits[0].ID)

	updated, err := repo.Update(ctx, "p1", func(p *product.Product) error { return p.Deduct(3, now) })
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Stock)

	_, err = repo.Update(ctx, "p1", func(p *product.Product) error { return p.Deduct(3, now) })
	var stockErr *apperr.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Gaming Laptop", stockErr.ProductName)

	got, err = repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)

	_, err = repo.Update(ctx, "missing", func(*product.Product) error { return nil })
	assert.ErrorIs(t, err, product.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "p2"))
	assert.ErrorIs(t, repo.Delete(ctx, "p2"), product.ErrNotFound)
}

func Clients(t *testing.T, repo client.Repository) {
	ctx := context.Background()

	mk := func(id, owner, email string) *client.Client {
		c, err := client.New(id, owner, client.Details{
			GivenName: "Maria", FamilyName: "Perez", Company: "Acme", Email: email,
		}, now)
		require.NoError(t, err)
		return c
	}
	require.NoError(t, repo.Insert(ctx, mk("c1", "u1", "maria@acme.io")))
	require.NoError(t, repo.Insert(ctx, mk("c2", "u2", "bo@acme.io")))
	require.NoError(t, repo.Insert(ctx, mk("c3", "u1", "li@acme.io")))
	assert.ErrorIs(t, repo.Insert(ctx, mk("c4", "u2", "Maria@acme.io")), client.ErrEmailTaken)

	mine, err := repo.List(ctx, client.Filter{OwnerID: "u1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "c1", mine[0].ID)
	assert.Equal(t, "c3", mine[1].ID)

	all, err := repo.List(ctx, client.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	found, err := repo.FindByEmail(ctx, "bo@acme.io")
	require.NoError(t, err)
	assert.Equal(t, "c2", found.ID)

	taken := "bo@acme.io"
	_, err = repo.Update(ctx, "c1", func(c *client.Client) error {
		return c.Apply(client.Patch{Email: &taken}, now)
	})
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	company := "Globex"
	updated, err := repo.Update(ctx, "c1", func(c *client.Client) error {
		c.OwnerID = "intruder"
		return c.Apply(client.Patch{Company: &company}, now)
	})
	require.NoError(t, err)
	assert.Equal(t, "Globex", updated.Company)
	assert.Equal(t, "u1", updated.OwnerID)

	require.NoError(t, repo.Delete(ctx, "c1"))
	_, err = repo.Get(ctx, "c1")
	assert.ErrorIs(t, err, client.ErrNotFound)
	// the address is free again once its client is gone
	require.NoError(t, repo.Insert(ctx, mk("c5", "u2", "maria@acme.io")))
}

func Orders(t *testing.T, repo order.Repository) {
	ctx := context.Background()

	mk := func(id, owner string, status order.Status) *order.Order {
		o, err := order.New(id, owner, "c1", []order.LineItem{
			{ProductID: "p1", Quantity: 2, Name: "Mouse", Price: decimal.RequireFromString("19.50")},
		}, status, nil, now)
		require.NoError(t, err)
		return o
	}
	require.NoError(t, repo.Insert(ctx, mk("o1", "u1", order.StatusPending)))
	require.NoError(t, repo.Insert(ctx, mk("o2", "u1", order.StatusCompleted)))
	require.NoError(t, repo.Insert(ctx, mk("o3", "u2", order.StatusCompleted)))

	got, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "39.00", got.Total.StringFixed(2))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Mouse", got.Items[0].Name)

	completed, err := repo.List(ctx, order.Filter{OwnerID: "u1", Status: order.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "o2", completed[0].ID)

	all, err := repo.List(ctx, order.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	status := order.StatusCompleted
	updated, err := repo.Update(ctx, "o1", func(o *order.Order) error {
		return o.Apply(order.Changes{Status: &status}, now)
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, updated.Status)

	require.NoError(t, repo.Delete(ctx, "o1"))
	_, err = repo.Get(ctx, "o1")
	assert.ErrorIs(t, err, order.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "o1"), apperr.ErrNotFound)
}
