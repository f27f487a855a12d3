package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/application"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	catalogService = "catalog-service"

	useCaseCreate  = "product.create"
	useCaseGet     = "product.get"
	useCaseList    = "product.list"
	useCaseUpdate  = "product.update"
	useCaseDelete  = "product.delete"
	useCaseSearch  = "product.search"
	useCaseDeduct  = "product.decrement_stock"
	useCaseRestock = "product.restore_stock"

	DefaultSearchLimit = 10
)

type Service struct {
	repo  product.Repository
	ids   application.IDGenerator
	probe *application.Probe
	now   func() time.Time
}

func NewService(repo product.Repository, ids application.IDGenerator, tel observability.Observability) *Service {
	return &Service{
		repo:  repo,
		ids:   ids,
		probe: application.NewProbe(catalogService, tel),
		now:   time.Now,
	}
}

type CreateInput struct {
	Name  string
	Price *decimal.Decimal
	Stock int
}

func (s *Service) Create(ctx context.Context, in CreateInput) (_ *product.Product, err error) {
	ctx, run := s.probe.Start(ctx, useCaseCreate, "CreateProduct")
	defer func() { run.End(err) }()

	if in.Price == nil {
		return nil, apperr.Invalid("precio", "is required")
	}
	p, err := product.New(s.ids.NewID(), in.Name, *in.Price, in.Stock, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		run.Status("REPO_INSERT_FAILED")
		return nil, fmt.Errorf("catalog: insert: %w", err)
	}
	run.Span().SetAttributes(attribute.String("product.id", p.ID))
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (_ *product.Product, err error) {
	ctx, run := s.probe.Start(ctx, useCaseGet, "GetProduct", attribute.String("product.id", id))
	defer func() { run.End(err) }()

	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) (_ []*product.Product, err error) {
	ctx, run := s.probe.Start(ctx, useCaseList, "ListProducts")
	defer func() { run.End(err) }()

	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	run.Annotate(observability.F("count", len(products)))
	return products, nil
}

func (s *Service) Update(ctx context.Context, id string, patch product.Patch) (_ *product.Product, err error) {
	ctx, run := s.probe.Start(ctx, useCaseUpdate, "UpdateProduct", attribute.String("product.id", id))
	defer func() { run.End(err) }()

	now := s.now()
	return s.repo.Update(ctx, id, func(p *product.Product) error {
		return p.Apply(patch, now)
	})
}

func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, run := s.probe.Start(ctx, useCaseDelete, "DeleteProduct", attribute.String("product.id", id))
	defer func() { run.End(err) }()

	return s.repo.Delete(ctx, id)
}

// Search ranks products by how many words of text their name matches.
// Empty text yields no results; limit <= 0 uses DefaultSearchLimit.
func (s *Service) Search(ctx context.Context, text string, limit int) (_ []*product.Product, err error) {
	ctx, run := s.probe.Start(ctx, useCaseSearch, "SearchProducts")
	defer func() { run.End(err) }()

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	terms := product.Terms(text)
	if len(terms) == 0 {
		return []*product.Product{}, nil
	}
	candidates, err := s.repo.Search(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	hits := product.Rank(candidates, terms, limit)
	run.Annotate(observability.F("count", len(hits)))
	return hits, nil
}

// DecrementStock atomically removes qty units or fails with an InsufficientStockError.
func (s *Service) DecrementStock(ctx context.Context, id string, qty int) (_ *product.Product, err error) {
	ctx, run := s.probe.Start(ctx, useCaseDeduct, "DecrementStock",
		attribute.String("product.id", id), attribute.Int("quantity", qty))
	defer func() { run.End(err) }()

	now := s.now()
	return s.repo.Update(ctx, id, func(p *product.Product) error {
		return p.Deduct(qty, now)
	})
}

// RestoreStock returns qty units; used to undo a partially applied reservation.
func (s *Service) RestoreStock(ctx context.Context, id string, qty int) (_ *product.Product, err error) {
	ctx, run := s.probe.Start(ctx, useCaseRestock, "RestoreStock",
		attribute.String("product.id", id), attribute.Int("quantity", qty))
	defer func() { run.End(err) }()

	now := s.now()
	return s.repo.Update(ctx, id, func(p *product.Product) error {
		return p.Restock(qty, now)
	})
}
