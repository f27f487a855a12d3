package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/client"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/product"
)

// Inventory is the slice of the catalog that orders reserve stock through.
type Inventory interface {
	Get(ctx context.Context, id string) (*product.Product, error)
	DecrementStock(ctx context.Context, id string, qty int) (*product.Product, error)
	RestoreStock(ctx context.Context, id string, qty int) (*product.Product, error)
}

type ClientLookup interface {
	Get(ctx context.Context, id string) (*client.Client, error)
}
