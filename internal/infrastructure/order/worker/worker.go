package worker

import (
	"context"
	"time"

	domorder "github.com/Zhima-Mochi/minishop-sales/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-sales/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability/logctx"
)

// Worker writes an "order_activity" line for every order lifecycle event, giving
// sellers an audit trail independent of the order records (which are deleted on cancel).
type Worker struct {
	subscriber domoutbox.Subscriber
	log        observability.Logger
}

func New(subscriber domoutbox.Subscriber, logger observability.Logger) *Worker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Worker{
		subscriber: subscriber,
		log:        logger.With(observability.F("component", "order_activity")),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domorder.PlacedEvent{}.EventName(), w.handle)
	w.subscriber.Subscribe(domorder.UpdatedEvent{}.EventName(), w.handle)
	w.subscriber.Subscribe(domorder.CancelledEvent{}.EventName(), w.handle)
}

func (w *Worker) handle(ctx context.Context, e domoutbox.Event) error {
	var fields []observability.Field
	switch evt := e.(type) {
	case domorder.PlacedEvent:
		fields = []observability.Field{
			observability.F("order_id", evt.OrderID),
			observability.F("seller_id", evt.OwnerID),
			observability.F("client_id", evt.ClientID),
			observability.F("total", evt.Total),
			observability.F("items", evt.Items),
			observability.F("occurred_at", evt.OccurredAt.Format(time.RFC3339Nano)),
		}
	case domorder.UpdatedEvent:
		fields = []observability.Field{
			observability.F("order_id", evt.OrderID),
			observability.F("status", string(evt.Status)),
			observability.F("occurred_at", evt.OccurredAt.Format(time.RFC3339Nano)),
		}
	case domorder.CancelledEvent:
		fields = []observability.Field{
			observability.F("order_id", evt.OrderID),
			observability.F("seller_id", evt.OwnerID),
			observability.F("occurred_at", evt.OccurredAt.Format(time.RFC3339Nano)),
		}
	default:
		return nil
	}
	logctx.FromOr(ctx, w.log).Info("order_activity", fields...)
	return nil
}
