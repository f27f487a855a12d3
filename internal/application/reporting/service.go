package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Zhima-Mochi/minishop-sales/internal/application"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/client"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	reportingService = "reporting-service"

	useCaseTopClients = "report.top_clients"
	useCaseTopSellers = "report.top_sellers"
	useCaseSearch     = "report.search_products"

	DefaultTopSellers = 3
	SearchLimit       = 10
)

type OrderLister interface {
	List(ctx context.Context, f order.Filter) ([]*order.Order, error)
}

type ClientLookup interface {
	Get(ctx context.Context, id string) (*client.Client, error)
}

type UserLookup interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

type ProductSearch interface {
	Search(ctx context.Context, text string, limit int) ([]*product.Product, error)
}

// ClientTotal is the completed-order revenue of one client. Client is nil when the
// record has been deleted since the orders were placed.
type ClientTotal struct {
	ClientID string
	Total    decimal.Decimal
	Client   *client.Client
}

// SellerTotal is the completed-order revenue of one seller.
type SellerTotal struct {
	SellerID string
	Total    decimal.Decimal
	Seller   *user.User
}

type Service struct {
	orders   OrderLister
	clients  ClientLookup
	users    UserLookup
	products ProductSearch
	probe    *application.Probe
}

func NewService(orders OrderLister, clients ClientLookup, users UserLookup, products ProductSearch, tel observability.Observability) *Service {
	return &Service{
		orders:   orders,
		clients:  clients,
		users:    users,
		products: products,
		probe:    application.NewProbe(reportingService, tel),
	}
}

// TopClients ranks every client with completed orders by the sum of their totals.
func (s *Service) TopClients(ctx context.Context) (_ []ClientTotal, err error) {
	ctx, run := s.probe.Start(ctx, useCaseTopClients, "TopClients")
	defer func() { run.End(err) }()

	groups, err := s.completedTotals(ctx, func(o *order.Order) string { return o.ClientID })
	if err != nil {
		return nil, err
	}
	out := make([]ClientTotal, len(groups))
	for i, g := range groups {
		c, err := s.clients.Get(ctx, g.key)
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrNotFound):
			c = nil
		default:
			return nil, fmt.Errorf("reporting: client %s: %w", g.key, err)
		}
		out[i] = ClientTotal{ClientID: g.key, Total: g.total, Client: c}
	}
	run.Annotate(observability.F("count", len(out)))
	return out, nil
}

// TopSellers ranks sellers by completed-order revenue and keeps the first limit.
// A limit <= 0 uses DefaultTopSellers.
func (s *Service) TopSellers(ctx context.Context, limit int) (_ []SellerTotal, err error) {
	ctx, run := s.probe.Start(ctx, useCaseTopSellers, "TopSellers", attribute.Int("report.limit", limit))
	defer func() { run.End(err) }()

	if limit <= 0 {
		limit = DefaultTopSellers
	}
	groups, err := s.completedTotals(ctx, func(o *order.Order) string { return o.OwnerID })
	if err != nil {
		return nil, err
	}
	if len(groups) > limit {
		groups = groups[:limit]
	}
	out := make([]SellerTotal, len(groups))
	for i, g := range groups {
		u, err := s.users.Get(ctx, g.key)
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrNotFound):
			u = nil
		default:
			return nil, fmt.Errorf("reporting: seller %s: %w", g.key, err)
		}
		out[i] = SellerTotal{SellerID: g.key, Total: g.total, Seller: u}
	}
	return out, nil
}

func (s *Service) SearchProducts(ctx context.Context, text string) (_ []*product.Product, err error) {
	ctx, run := s.probe.Start(ctx, useCaseSearch, "SearchProducts")
	defer func() { run.End(err) }()

	return s.products.Search(ctx, text, SearchLimit)
}

type group struct {
	key   string
	total decimal.Decimal
}

// completedTotals sums completed orders per key, highest total first. Ties keep the
// order in which each key was first seen.
func (s *Service) completedTotals(ctx context.Context, keyOf func(*order.Order) string) ([]group, error) {
	orders, err := s.orders.List(ctx, order.Filter{Status: order.StatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("reporting: %w", err)
	}
	index := make(map[string]int)
	var groups []group
	for _, o := range orders {
		k := keyOf(o)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, group{key: k})
		}
		groups[i].total = groups[i].total.Add(o.Total)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].total.GreaterThan(groups[j].total)
	})
	return groups, nil
}
