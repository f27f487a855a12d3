package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
	domoutbox "github.com/Zhima-Mochi/minishop-sales/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	msg    string
	fields map[string]any
}

type recorder struct {
	mu      sync.Mutex
	entries []entry
	base    []observability.Field
	counts  map[string]float64
}

func (r *recorder) With(fields ...observability.Field) observability.Logger {
	return &scoped{r: r, fields: append(append([]observability.Field(nil), r.base...), fields...)}
}
func (r *recorder) Debug(msg string, f ...observability.Field) { r.add(nil, msg, f) }
func (r *recorder) Info(msg string, f ...observability.Field)  { r.add(nil, msg, f) }
func (r *recorder) Warn(msg string, f ...observability.Field)  { r.add(nil, msg, f) }
func (r *recorder) Error(msg string, f ...observability.Field) { r.add(nil, msg, f) }

func (r *recorder) add(scope []observability.Field, msg string, fields []observability.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := map[string]any{}
	for _, f := range append(append([]observability.Field(nil), scope...), fields...) {
		m[f.Key] = f.Value
	}
	r.entries = append(r.entries, entry{msg: msg, fields: m})
}

type scoped struct {
	r      *recorder
	fields []observability.Field
}

func (s *scoped) With(fields ...observability.Field) observability.Logger {
	return &scoped{r: s.r, fields: append(append([]observability.Field(nil), s.fields...), fields...)}
}
func (s *scoped) Debug(msg string, f ...observability.Field) { s.r.add(s.fields, msg, f) }
func (s *scoped) Info(msg string, f ...observability.Field)  { s.r.add(s.fields, msg, f) }
func (s *scoped) Warn(msg string, f ...observability.Field)  { s.r.add(s.fields, msg, f) }
func (s *scoped) Error(msg string, f ...observability.Field) { s.r.add(s.fields, msg, f) }

type labelledCounter struct {
	r    *recorder
	name observability.MetricKey
}

func (c labelledCounter) Add(d float64, labels ...observability.Label) {
	key := string(c.name)
	for _, l := range labels {
		key += "," + l.Key + "=" + l.Value
	}
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	c.r.counts[key] += d
}

type recordingMetrics struct{ r *recorder }

func (m recordingMetrics) Counter(k observability.MetricKey) observability.Counter {
	return labelledCounter{r: m.r, name: k}
}
func (m recordingMetrics) Histogram(observability.MetricKey) observability.Histogram {
	return observability.NopHistogram()
}

type recordingTel struct{ r *recorder }

func (t recordingTel) Tracer() observability.Tracer   { return observability.NopTracer() }
func (t recordingTel) Logger() observability.Logger   { return t.r }
func (t recordingTel) Metrics() observability.Metrics { return recordingMetrics{r: t.r} }

type namedEvent string

func (e namedEvent) EventName() string { return string(e) }

type publisherFunc func(ctx context.Context) error

func (f publisherFunc) Publish(ctx context.Context, _ domoutbox.Event) error { return f(ctx) }

func TestRunEndRecordsOutcome(t *testing.T) {
	rec := &recorder{counts: map[string]float64{}}
	probe := NewProbe("catalog-service", recordingTel{r: rec})

	_, run := probe.Start(context.Background(), "product.get", "GetProduct")
	run.End(nil)

	_, run = probe.Start(context.Background(), "product.get", "GetProduct")
	run.End(fmt.Errorf("load: %w", apperr.ErrNotFound))

	assert.Equal(t, 1.0, rec.counts["usecase_requests_total,use_case=product.get,outcome=success"])
	assert.Equal(t, 1.0, rec.counts["usecase_requests_total,use_case=product.get,outcome=error"])

	require.Len(t, rec.entries, 2)
	ok, failed := rec.entries[0], rec.entries[1]
	assert.Equal(t, "use_case_done", ok.msg)
	assert.Equal(t, "catalog-service", ok.fields["service"])
	assert.Equal(t, "OK", ok.fields["status"])
	assert.Equal(t, "NOT_FOUND", failed.fields["status"])
	assert.Contains(t, failed.fields["error"], "not found")
}

func TestRunPublishFailureIsAnnotated(t *testing.T) {
	rec := &recorder{counts: map[string]float64{}}
	probe := NewProbe("order-service", recordingTel{r: rec})
	boom := errors.New("queue full")

	_, run := probe.Start(context.Background(), "order.place", "PlaceOrder")
	err := run.Publish(publisherFunc(func(context.Context) error { return boom }), namedEvent("order.placed"))
	run.End(nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, rec.counts["external_requests_total,peer=outbox,endpoint=order.placed,outcome=error"])
	require.Len(t, rec.entries, 1)
	assert.Equal(t, "success", rec.entries[0].fields["outcome"])
	assert.Equal(t, "queue full", rec.entries[0].fields["event_publish_error"])
}
