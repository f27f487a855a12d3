package catalog

import (
	"context"

	"github.com/Zhima-Mochi/minishop-sales/internal/application"
	domoutbox "github.com/Zhima-Mochi/minishop-sales/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
)

const (
	workerService        = "catalog_worker"
	useCaseLowStockCheck = "catalog.worker.stock_reserved"
)

// LowStockCheck reports whether a reservation left a product at or below threshold,
// counting and logging each alert.
type LowStockCheck struct {
	threshold int
	alerts    observability.Counter // low_stock_alerts_total{product_id}
	log       observability.Logger
}

func NewLowStockCheck(threshold int, tel observability.Observability) *LowStockCheck {
	if tel == nil {
		tel = observability.Nop()
	}
	return &LowStockCheck{
		threshold: threshold,
		alerts:    tel.Metrics().Counter(observability.MLowStockAlerts),
		log:       tel.Logger().With(observability.F("service", workerService)),
	}
}

func (c *LowStockCheck) Execute(ctx context.Context, e product.StockReservedEvent) (bool, error) {
	if e.Remaining > c.threshold {
		return false, nil
	}
	c.alerts.Add(1, observability.L("product_id", e.ProductID))
	logctx.FromOr(ctx, c.log).Warn("low_stock",
		observability.F("product_id", e.ProductID),
		observability.F("product_name", e.Name),
		observability.F("remaining", e.Remaining),
		observability.F("threshold", c.threshold),
		observability.F("order_id", e.OrderID),
	)
	return true, nil
}

var _ application.UseCase[product.StockReservedEvent, bool] = (*LowStockCheck)(nil)

// Worker feeds stock.reserved events from the bus into a use case.
type Worker struct {
	subscriber domoutbox.Subscriber
	useCase    application.UseCase[product.StockReservedEvent, bool]
	probe      *application.Probe
}

func NewWorker(
	subscriber domoutbox.Subscriber,
	useCase application.UseCase[product.StockReservedEvent, bool],
	tel observability.Observability,
) *Worker {
	return &Worker{
		subscriber: subscriber,
		useCase:    useCase,
		probe:      application.NewProbe(workerService, tel),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.useCase == nil {
		return
	}
	w.subscriber.Subscribe(product.StockReservedEvent{}.EventName(), w.Handle)
}

// Handle processes one bus event; unrelated event types are ignored.
func (w *Worker) Handle(ctx context.Context, e domoutbox.Event) (err error) {
	evt, ok := e.(product.StockReservedEvent)
	if !ok {
		return nil
	}
	ctx, run := w.probe.Start(ctx, useCaseLowStockCheck, "StockReserved",
		attribute.String("event", e.EventName()),
		attribute.String("product.id", evt.ProductID),
	)
	defer func() { run.End(err) }()

	low, err := w.useCase.Execute(ctx, evt)
	run.Annotate(
		observability.F("product_id", evt.ProductID),
		observability.F("remaining", evt.Remaining),
		observability.F("low_stock", low),
	)
	return err
}
