package order

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/application"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/access"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	domain "github.com/Zhima-Mochi/minishop-sales/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-sales/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability/logctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService = "order-service"

	useCasePlace        = "order.place"
	useCaseGet          = "order.get"
	useCaseList         = "order.list"
	useCaseListByOwner  = "order.list_by_owner"
	useCaseListByStatus = "order.list_by_status"
	useCaseUpdate       = "order.update"
	useCaseCancel       = "order.cancel"
)

type Service struct {
	repo      domain.Repository
	clients   ClientLookup
	inventory Inventory
	ids       application.IDGenerator
	publisher domoutbox.Publisher
	probe     *application.Probe
	now       func() time.Time
}

func NewService(
	repo domain.Repository,
	clients ClientLookup,
	inventory Inventory,
	ids application.IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *Service {
	if publisher == nil {
		publisher = domoutbox.Discard
	}
	return &Service{
		repo:      repo,
		clients:   clients,
		inventory: inventory,
		ids:       ids,
		publisher: publisher,
		probe:     application.NewProbe(orderService, tel),
		now:       time.Now,
	}
}

type PlaceInput struct {
	ClientID string
	Items    []domain.ItemRequest
	// Status defaults to PENDING.
	Status domain.Status
	// Total overrides the computed sum of line subtotals.
	Total *decimal.Decimal
}

// Place validates ownership, reserves stock for every item and stores the order.
// Stock is reserved all-or-nothing: nothing is decremented when any item is short,
// and decrements already applied are restored if a later one fails.
func (s *Service) Place(ctx context.Context, p access.Principal, in PlaceInput) (_ *domain.Order, err error) {
	ctx, run := s.probe.Start(ctx, useCasePlace, "PlaceOrder",
		attribute.String("principal.id", p.ID),
		attribute.String("order.client_id", in.ClientID),
	)
	defer func() { run.End(err) }()

	if err := access.RequirePrincipal(&p); err != nil {
		return nil, err
	}
	c, err := s.clients.Get(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if err := access.AssertOwner(c, p); err != nil {
		return nil, err
	}
	items, err := domain.Consolidate(in.Items)
	if err != nil {
		return nil, err
	}
	if err := validateTerms(in.Status, in.Total); err != nil {
		return nil, err
	}

	orderID := s.ids.NewID()
	run.Span().SetAttributes(attribute.String("order.id", orderID))

	lines, reserved, err := s.reserve(ctx, run, items)
	if err != nil {
		return nil, err
	}

	o, err := domain.New(orderID, c.OwnerID, c.ID, lines, in.Status, in.Total, s.now())
	if err == nil {
		err = s.repo.Insert(ctx, o)
		if err != nil {
			run.Status("REPO_INSERT_FAILED")
			err = fmt.Errorf("order: insert: %w", err)
		}
	}
	if err != nil {
		s.release(ctx, items)
		return nil, err
	}

	_ = run.Publish(s.publisher, domain.NewPlacedEvent(o))
	for i, after := range reserved {
		_ = run.Publish(s.publisher, product.NewStockReservedEvent(after, o.ID, items[i].Quantity))
	}
	run.Annotate(
		observability.F("order_id", o.ID),
		observability.F("items", len(o.Items)),
		observability.F("total", o.Total.String()),
	)
	return o, nil
}

// reserve checks every item against a point-in-time snapshot, then decrements each
// product in order. It returns the priced lines and the products as left afterwards.
func (s *Service) reserve(ctx context.Context, run *application.Run, items []domain.ItemRequest) ([]domain.LineItem, []*product.Product, error) {
	lines := make([]domain.LineItem, len(items))
	for i, it := range items {
		p, err := s.inventory.Get(ctx, it.ProductID)
		if err != nil {
			return nil, nil, err
		}
		if it.Quantity > p.Stock {
			run.Status("INSUFFICIENT_STOCK")
			return nil, nil, &apperr.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   it.Quantity,
				Available:   p.Stock,
			}
		}
		lines[i] = domain.LineItem{ProductID: p.ID, Quantity: it.Quantity, Name: p.Name, Price: p.Price}
	}

	reserved := make([]*product.Product, 0, len(items))
	for i, it := range items {
		after, err := s.inventory.DecrementStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			run.Status("RESERVATION_RACE_LOST")
			run.Span().AddEvent("order.reservation_rollback",
				trace.WithAttributes(attribute.Int("order.items_applied", i)))
			s.release(ctx, items[:i])
			return nil, nil, err
		}
		reserved = append(reserved, after)
	}
	return lines, reserved, nil
}

// release puts back stock taken for items. Failures are logged, not returned:
// the caller is already reporting the error that triggered the rollback.
func (s *Service) release(ctx context.Context, items []domain.ItemRequest) {
	ctx = context.WithoutCancel(ctx)
	for _, it := range items {
		if _, err := s.inventory.RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
			logctx.FromOr(ctx, s.probe.Logger()).Error("stock_restore_failed",
				observability.F("product_id", it.ProductID),
				observability.F("quantity", it.Quantity),
				observability.F("error", err),
			)
		}
	}
}

// validateTerms rejects an unknown status or a negative total before any stock moves.
func validateTerms(status domain.Status, total *decimal.Decimal) error {
	if status != "" && !status.Valid() {
		return apperr.Invalid("estado", "unknown status "+string(status))
	}
	if total != nil && total.IsNegative() {
		return domain.ErrNegativeTotal
	}
	return nil
}

// Get returns an order that belongs to the principal.
func (s *Service) Get(ctx context.Context, p access.Principal, id string) (_ *domain.Order, err error) {
	ctx, run := s.probe.Start(ctx, useCaseGet, "GetOrder", attribute.String("order.id", id))
	defer func() { run.End(err) }()

	if err := access.RequirePrincipal(&p); err != nil {
		return nil, err
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.AssertOwner(o, p); err != nil {
		return nil, err
	}
	return o, nil
}

// List returns every order regardless of owner.
func (s *Service) List(ctx context.Context) (_ []*domain.Order, err error) {
	ctx, run := s.probe.Start(ctx, useCaseList, "ListOrders")
	defer func() { run.End(err) }()

	return s.list(ctx, domain.Filter{})
}

func (s *Service) ListByOwner(ctx context.Context, p access.Principal) (_ []*domain.Order, err error) {
	ctx, run := s.probe.Start(ctx, useCaseListByOwner, "ListOwnedOrders", attribute.String("principal.id", p.ID))
	defer func() { run.End(err) }()

	if err := access.RequirePrincipal(&p); err != nil {
		return nil, err
	}
	return s.list(ctx, domain.Filter{OwnerID: p.ID})
}

func (s *Service) ListByStatus(ctx context.Context, p access.Principal, status domain.Status) (_ []*domain.Order, err error) {
	ctx, run := s.probe.Start(ctx, useCaseListByStatus, "ListOrdersByStatus",
		attribute.String("principal.id", p.ID), attribute.String("order.status", string(status)))
	defer func() { run.End(err) }()

	if err := access.RequirePrincipal(&p); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Invalid("estado", "unknown status "+string(status))
	}
	return s.list(ctx, domain.Filter{OwnerID: p.ID, Status: status})
}

func (s *Service) list(ctx context.Context, f domain.Filter) ([]*domain.Order, error) {
	orders, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("order: %w", err)
	}
	return orders, nil
}

type UpdateInput struct {
	ClientID *string
	// Items, when non-nil, are reserved like a new order and replace every line.
	// Stock held by the previous lines is not returned.
	Items  []domain.ItemRequest
	Status *domain.Status
	Total  *decimal.Decimal
}

func (s *Service) Update(ctx context.Context, p access.Principal, id string, in UpdateInput) (_ *domain.Order, err error) {
	ctx, run := s.probe.Start(ctx, useCaseUpdate, "UpdateOrder", attribute.String("order.id", id))
	defer func() { run.End(err) }()

	if err := access.RequirePrincipal(&p); err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	clientID := existing.ClientID
	if in.ClientID != nil {
		clientID = *in.ClientID
	}
	c, err := s.clients.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := access.AssertOwner(existing, p); err != nil {
		return nil, err
	}
	if err := access.AssertOwner(c, p); err != nil {
		return nil, err
	}

	changes := domain.Changes{ClientID: in.ClientID, Status: in.Status, Total: in.Total}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.Invalid("estado", "unknown status "+string(*in.Status))
	}
	if err := validateTerms("", in.Total); err != nil {
		return nil, err
	}
	var (
		items    []domain.ItemRequest
		reserved []*product.Product
	)
	if in.Items != nil {
		items, err = domain.Consolidate(in.Items)
		if err != nil {
			return nil, err
		}
		changes.Items, reserved, err = s.reserve(ctx, run, items)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	updated, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		return o.Apply(changes, now)
	})
	if err != nil {
		s.release(ctx, items)
		return nil, err
	}

	_ = run.Publish(s.publisher, domain.NewUpdatedEvent(updated))
	for i, after := range reserved {
		_ = run.Publish(s.publisher, product.NewStockReservedEvent(after, updated.ID, items[i].Quantity))
	}
	return updated, nil
}

// Cancel deletes an order owned by the principal. Reserved stock stays consumed.
func (s *Service) Cancel(ctx context.Context, p access.Principal, id string) (err error) {
	ctx, run := s.probe.Start(ctx, useCaseCancel, "CancelOrder", attribute.String("order.id", id))
	defer func() { run.End(err) }()

	if err := access.RequirePrincipal(&p); err != nil {
		return err
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := access.AssertOwner(o, p); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = run.Publish(s.publisher, domain.NewCancelledEvent(o))
	return nil
}
