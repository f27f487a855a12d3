package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/access"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/client"
	domain "github.com/Zhima-Mochi/minishop-sales/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-sales/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	ana = access.Principal{ID: "u1", Email: "ana@example.com"}
	bo  = access.Principal{ID: "u2", Email: "bo@example.com"}
)

type seqIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s%d", s.prefix, s.n)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventName()
	}
	return out
}

type fixture struct {
	svc     *Service
	catalog *catalog.Service
	orders  *memory.OrderRepository
	clients *memory.ClientRepository
	events  *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	products := memory.NewProductRepository()
	f := &fixture{
		catalog: catalog.NewService(products, &seqIDs{prefix: "p"}, observability.Nop()),
		orders:  memory.NewOrderRepository(),
		clients: memory.NewClientRepository(),
		events:  &recordingPublisher{},
	}
	f.svc = NewService(f.orders, f.clients, f.catalog, &seqIDs{prefix: "o"}, f.events, observability.Nop())
	return f
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *product.Product {
	t.Helper()
	d := decimal.RequireFromString(price)
	p, err := f.catalog.Create(context.Background(), catalog.CreateInput{Name: name, Price: &d, Stock: stock})
	require.NoError(t, err)
	return p
}

func (f *fixture) client(t *testing.T, id, owner string) *client.Client {
	t.Helper()
	c, err := client.New(id, owner, client.Details{
		GivenName: "Maria", FamilyName: "Perez", Company: "Acme", Email: id + "@acme.io",
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.clients.Insert(context.Background(), c))
	return c
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.catalog.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestPlaceReservesStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	laptop := f.product(t, "Laptop", "999.90", 5)
	c := f.client(t, "c1", ana.ID)

	o, err := f.svc.Place(ctx, ana, PlaceInput{
		ClientID: c.ID,
		Items:    []domain.ItemRequest{{ProductID: laptop.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, ana.ID, o.OwnerID)
	assert.Equal(t, "2999.70", o.Total.StringFixed(2))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Laptop", o.Items[0].Name)
	assert.Equal(t, 2, f.stock(t, laptop.ID))
	assert.Equal(t, []string{"order.placed", "stock.reserved"}, f.events.names())
	reserved, ok := f.events.events[1].(product.StockReservedEvent)
	require.True(t, ok)
	assert.Equal(t, 2, reserved.Remaining)

	_, err = f.svc.Place(ctx, ana, PlaceInput{
		ClientID: c.ID,
		Items:    []domain.ItemRequest{{ProductID: laptop.ID, Quantity: 3}},
	})
	var stockErr *apperr.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Laptop", stockErr.ProductName)
	assert.Equal(t, 2, f.stock(t, laptop.ID))

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPlaceChecksClientAndOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	laptop := f.product(t, "Laptop", "10", 5)
	c := f.client(t, "c1", ana.ID)
	items := []domain.ItemRequest{{ProductID: laptop.ID, Quantity: 1}}

	_, err := f.svc.Place(ctx, bo, PlaceInput{ClientID: c.ID, Items: items})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Place(ctx, ana, PlaceInput{ClientID: "ghost", Items: items})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Place(ctx, access.Principal{}, PlaceInput{ClientID: c.ID, Items: items})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = f.svc.Place(ctx, ana, PlaceInput{ClientID: c.ID, Items: []domain.ItemRequest{{ProductID: "nope", Quantity: 1}}})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Place(ctx, ana, PlaceInput{ClientID: c.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.Equal(t, 5, f.stock(t, laptop.ID))
	assert.Empty(t, f.events.names())
}

func TestPlaceIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mouse := f.product(t, "Mouse", "20", 5)
	screen := f.product(t, "Screen", "200", 1)
	c := f.client(t, "c1", ana.ID)

	_, err := f.svc.Place(ctx, ana, PlaceInput{
		ClientID: c.ID,
		Items: []domain.ItemRequest{
			{ProductID: mouse.ID, Quantity: 2},
			{ProductID: screen.ID, Quantity: 2},
		},
	})
	var stockErr *apperr.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Screen", stockErr.ProductName)
	assert.Equal(t, 5, f.stock(t, mouse.ID))
	assert.Equal(t, 1, f.stock(t, screen.ID))

	orders, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceSumsRepeatedProducts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mouse := f.product(t, "Mouse", "20", 3)
	c := f.client(t, "c1", ana.ID)

	_, err := f.svc.Place(ctx, ana, PlaceInput{
		ClientID: c.ID,
		Items: []domain.ItemRequest{
			{ProductID: mouse.ID, Quantity: 2},
			{ProductID: mouse.ID, Quantity: 2},
		},
	})
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, 3, f.stock(t, mouse.ID))
}

// racingInventory lets another buyer take stock of one product between the
// snapshot and the decrement.
type racingInventory struct {
	Inventory
	steal   string
	stolen  int
	restore []string
}

func (r *racingInventory) DecrementStock(ctx context.Context, id string, qty int) (*product.Product, error) {
	if id == r.steal && r.stolen > 0 {
		if _, err := r.Inventory.DecrementStock(ctx, id, r.stolen); err != nil {
			return nil, err
		}
		r.stolen = 0
	}
	return r.Inventory.DecrementStock(ctx, id, qty)
}

func (r *racingInventory) RestoreStock(ctx context.Context, id string, qty int) (*product.Product, error) {
	r.restore = append(r.restore, id)
	return r.Inventory.RestoreStock(ctx, id, qty)
}

func TestPlaceRollsBackWhenRaceIsLost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mouse := f.product(t, "Mouse", "20", 5)
	screen := f.product(t, "Screen", "200", 2)
	c := f.client(t, "c1", ana.ID)

	inv := &racingInventory{Inventory: f.catalog, steal: screen.ID, stolen: 1}
	svc := NewService(f.orders, f.clients, inv, &seqIDs{prefix: "o"}, f.events, observability.Nop())

	_, err := svc.Place(ctx, ana, PlaceInput{
		ClientID: c.ID,
		Items: []domain.ItemRequest{
			{ProductID: mouse.ID, Quantity: 2},
			{ProductID: screen.ID, Quantity: 2},
		},
	})
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, []string{mouse.ID}, inv.restore)
	assert.Equal(t, 5, f.stock(t, mouse.ID))
	assert.Equal(t, 1, f.stock(t, screen.ID))
	assert.Empty(t, f.events.names())
}

func TestExplicitTotalAndStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mouse := f.product(t, "Mouse", "20", 5)
	c := f.client(t, "c1", ana.ID)
	total := decimal.NewFromInt(15)

	o, err := f.svc.Place(ctx, ana, PlaceInput{
		ClientID: c.ID,
		Items:    []domain.ItemRequest{{ProductID: mouse.ID, Quantity: 1}},
		Status:   domain.StatusCompleted,
		Total:    &total,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, o.Status)
	assert.True(t, total.Equal(o.Total))

	_, err = f.svc.Place(ctx, ana, PlaceInput{
		ClientID: c.ID,
		Items:    []domain.ItemRequest{{ProductID: mouse.ID, Quantity: 1}},
		Status:   domain.Status("SHIPPED"),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 4, f.stock(t, mouse.ID))
}

func TestUpdateReservesNewItemsWithoutRestoringOld(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mouse := f.product(t, "Mouse", "20", 5)
	pad := f.product(t, "Pad", "5", 5)
	c := f.client(t, "c1", ana.ID)
	o, err := f.svc.Place(ctx, ana, PlaceInput{ClientID: c.ID, Items: []domain.ItemRequest{{ProductID: mouse.ID, Quantity: 2}}})
	require.NoError(t, err)

	completed := domain.StatusCompleted
	updated, err := f.svc.Update(ctx, ana, o.ID, UpdateInput{
		Items:  []domain.ItemRequest{{ProductID: pad.ID, Quantity: 4}},
		Status: &completed,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, pad.ID, updated.Items[0].ProductID)
	assert.Equal(t, "20", updated.Total.String())
	assert.Equal(t, 3, f.stock(t, mouse.ID))
	assert.Equal(t, 1, f.stock(t, pad.ID))

	pending := domain.StatusPending
	statusOnly, err := f.svc.Update(ctx, ana, o.ID, UpdateInput{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, statusOnly.Status)
	assert.Equal(t, 1, f.stock(t, pad.ID))

	_, err = f.svc.Update(ctx, ana, o.ID, UpdateInput{Items: []domain.ItemRequest{{ProductID: pad.ID, Quantity: 2}}})
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
}

func TestUpdateChecksOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mouse := f.product(t, "Mouse", "20", 5)
	mine := f.client(t, "c1", ana.ID)
	theirs := f.client(t, "c2", bo.ID)
	o, err := f.svc.Place(ctx, ana, PlaceInput{ClientID: mine.ID, Items: []domain.ItemRequest{{ProductID: mouse.ID, Quantity: 1}}})
	require.NoError(t, err)

	completed := domain.StatusCompleted
	_, err = f.svc.Update(ctx, bo, o.ID, UpdateInput{Status: &completed})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Update(ctx, ana, o.ID, UpdateInput{ClientID: &theirs.ID})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	ghost := "ghost"
	_, err = f.svc.Update(ctx, ana, o.ID, UpdateInput{ClientID: &ghost})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Update(ctx, ana, "missing", UpdateInput{Status: &completed})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAnonymousCallerIsUnauthenticated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mouse := f.product(t, "Mouse", "20", 5)
	c := f.client(t, "c1", ana.ID)
	o, err := f.svc.Place(ctx, ana, PlaceInput{ClientID: c.ID, Items: []domain.ItemRequest{{ProductID: mouse.ID, Quantity: 1}}})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, access.Principal{}, o.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.ErrorIs(t, f.svc.Cancel(ctx, access.Principal{}, o.ID), apperr.ErrUnauthenticated)

	got, err := f.svc.Get(ctx, ana, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestCancelKeepsStockConsumed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mouse := f.product(t, "Mouse", "20", 5)
	c := f.client(t, "c1", ana.ID)
	o, err := f.svc.Place(ctx, ana, PlaceInput{ClientID: c.ID, Items: []domain.ItemRequest{{ProductID: mouse.ID, Quantity: 2}}})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Cancel(ctx, bo, o.ID), apperr.ErrForbidden)
	require.NoError(t, f.svc.Cancel(ctx, ana, o.ID))
	assert.Equal(t, 3, f.stock(t, mouse.ID))
	assert.ErrorIs(t, f.svc.Cancel(ctx, ana, o.ID), apperr.ErrNotFound)

	_, err = f.svc.Get(ctx, ana, o.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, f.events.names(), "order.cancelled")
}

func TestListingsAreOwnerScoped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mouse := f.product(t, "Mouse", "20", 50)
	mine := f.client(t, "c1", ana.ID)
	theirs := f.client(t, "c2", bo.ID)
	item := []domain.ItemRequest{{ProductID: mouse.ID, Quantity: 1}}

	_, err := f.svc.Place(ctx, ana, PlaceInput{ClientID: mine.ID, Items: item})
	require.NoError(t, err)
	_, err = f.svc.Place(ctx, ana, PlaceInput{ClientID: mine.ID, Items: item, Status: domain.StatusCompleted})
	require.NoError(t, err)
	theirOrder, err := f.svc.Place(ctx, bo, PlaceInput{ClientID: theirs.ID, Items: item})
	require.NoError(t, err)

	owned, err := f.svc.ListByOwner(ctx, ana)
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	completed, err := f.svc.ListByStatus(ctx, ana, domain.StatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, domain.StatusCompleted, completed[0].Status)

	_, err = f.svc.ListByStatus(ctx, ana, domain.Status("LOST"))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Get(ctx, ana, theirOrder.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

type mockOrders struct {
	mock.Mock
	domain.Repository
}

func (m *mockOrders) List(ctx context.Context, f domain.Filter) ([]*domain.Order, error) {
	args := m.Called(ctx, f)
	out, _ := args.Get(0).([]*domain.Order)
	return out, args.Error(1)
}

func TestListingErrorsPropagate(t *testing.T) {
	storeDown := errors.New("database is locked")
	repo := &mockOrders{}
	repo.On("List", mock.Anything, mock.Anything).Return(nil, storeDown)
	svc := NewService(repo, memory.NewClientRepository(), nil, &seqIDs{}, nil, observability.Nop())

	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, storeDown)
	_, err = svc.ListByOwner(context.Background(), ana)
	assert.ErrorIs(t, err, storeDown)
	_, err = svc.ListByStatus(context.Background(), ana, domain.StatusPending)
	assert.ErrorIs(t, err, storeDown)
	repo.AssertNumberOfCalls(t, "List", 3)
}
