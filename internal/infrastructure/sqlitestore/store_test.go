package sqlitestore

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/docstore"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/repotest"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *docstore.Store {
	t.Helper()
	s, err := docstore.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestUserRepository(t *testing.T)    { repotest.Users(t, NewUserRepository(openStore(t))) }
func TestProductRepository(t *testing.T) { repotest.Products(t, NewProductRepository(openStore(t))) }
func TestClientRepository(t *testing.T)  { repotest.Clients(t, NewClientRepository(openStore(t))) }
func TestOrderRepository(t *testing.T)   { repotest.Orders(t, NewOrderRepository(openStore(t))) }
