package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	domoutbox "github.com/Zhima-Mochi/minishop-sales/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	spanPrefix     = "UC."
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// Probe records RED metrics, a span and one use_case_done log line per use-case run.
type Probe struct {
	tracer observability.Tracer
	log    observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewProbe(service string, tel observability.Observability) *Probe {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Probe{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

// Logger is the probe's service-scoped logger, for work outside a run.
func (p *Probe) Logger() observability.Logger { return p.log }

// Run is one in-flight use-case execution. End must be called exactly once.
type Run struct {
	p       *Probe
	ctx     context.Context
	useCase string
	span    trace.Span
	start   time.Time
	logger  observability.Logger
	status  string
	fields  []observability.Field
}

// Start opens a span named after the use case and returns the derived context.
func (p *Probe) Start(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	logger := logctx.FromOr(ctx, p.log).With(observability.F("use_case", useCase))
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := p.tracer.Start(ctx, spanPrefix+spanName, attrs...)
	return ctx, &Run{
		p:       p,
		ctx:     ctx,
		useCase: useCase,
		span:    span,
		start:   time.Now(),
		logger:  logger,
	}
}

func (r *Run) Span() trace.Span { return r.span }

// Status overrides the status text reported on failure (default: the error's code).
func (r *Run) Status(s string) { r.status = s }

// Annotate adds fields to the use_case_done line.
func (r *Run) Annotate(fields ...observability.Field) { r.fields = append(r.fields, fields...) }

func (r *Run) End(err error) {
	lat := time.Since(r.start).Seconds()
	outcome, statusText := "success", "OK"
	if err != nil {
		outcome, statusText = "error", r.status
		if statusText == "" {
			statusText = apperr.Code(err)
		}
	}

	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, statusText)
	} else {
		r.span.SetStatus(codes.Ok, statusText)
	}
	r.span.End()

	r.p.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", outcome),
	)
	r.p.durHistogram.Observe(lat, observability.L("use_case", r.useCase))

	fields := []observability.Field{
		observability.F("outcome", outcome),
		observability.F("status", statusText),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.logger.Info("use_case_done", fields...)
}

// Publish sends e with a short timeout and records it as an external call. A publish
// failure never fails the use case: it is annotated on the run and returned for logging.
func (r *Run) Publish(pub domoutbox.Publisher, e domoutbox.Event) error {
	if pub == nil || e == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(r.ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	err := pub.Publish(ctx, e)
	switch {
	case err != nil:
		outcome = "error"
	case ctx.Err() != nil:
		outcome, err = "canceled", ctx.Err()
	}

	r.p.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", outcome),
	)
	r.p.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
	)
	if err != nil {
		r.span.AddEvent("event.publish_failed", trace.WithAttributes(attribute.String("event", e.EventName())))
		r.Annotate(observability.F("event_publish_error", err.Error()))
	}
	return err
}
