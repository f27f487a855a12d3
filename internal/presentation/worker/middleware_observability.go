package workerpresentation

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/minishop-sales/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext injects a logger for one background execution. Dynamic fields
// only: event_id (generated when empty), trace_id/span_id when valid, plus the
// caller's low-cardinality attributes such as the event name.
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = logctx.FromOr(ctx, observability.NopLogger())
	}

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields := make([]observability.Field, 0, len(attrs)+3)
	fields = append(fields, observability.F("event_id", evtID))
	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}
	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}
	return logctx.With(ctx, base.With(fields...))
}

// Middleware gives every handler invocation its own event-scoped logger.
func Middleware(base observability.Logger) func(domoutbox.Handler) domoutbox.Handler {
	return func(next domoutbox.Handler) domoutbox.Handler {
		return func(ctx context.Context, e domoutbox.Event) error {
			sc := trace.SpanContextFromContext(ctx)
			ctx = WithEventContext(ctx, base, sc.TraceID(), sc.SpanID(), map[string]string{
				"event": e.EventName(),
			})
			return next(ctx, e)
		}
	}
}

type instrumented struct {
	next domoutbox.Subscriber
	wrap func(domoutbox.Handler) domoutbox.Handler
}

// Instrument wraps sub so that every handler subscribed through it runs behind Middleware.
func Instrument(sub domoutbox.Subscriber, base observability.Logger) domoutbox.Subscriber {
	return instrumented{next: sub, wrap: Middleware(base)}
}

func (s instrumented) Subscribe(eventName string, h domoutbox.Handler) {
	s.next.Subscribe(eventName, s.wrap(h))
}
