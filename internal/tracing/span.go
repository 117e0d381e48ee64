package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// SampleInfo identifies the sample a span covers.
type SampleInfo struct {
	Label       string
	Kind        string // sampler kind label, e.g. "http_sampler"
	ThreadGroup string
	Thread      int
	Iteration   int
	Method      string
	URL         string
}

// StartSample starts a span for one sample.
func (p *Provider) StartSample(ctx context.Context, info SampleInfo) (context.Context, trace.Span) {
	kind := trace.SpanKindInternal
	if info.Method != "" {
		kind = trace.SpanKindClient
	}
	ctx, span := p.Tracer().Start(ctx, info.Label, trace.WithSpanKind(kind))
	span.SetAttributes(
		attribute.String("crankplan.sampler.kind", info.Kind),
		attribute.String("crankplan.thread_group", info.ThreadGroup),
		attribute.Int("crankplan.thread", info.Thread),
		attribute.Int("crankplan.iteration", info.Iteration),
	)
	if info.Method != "" {
		span.SetAttributes(attribute.String("http.request.method", info.Method))
	}
	if info.URL != "" {
		span.SetAttributes(attribute.String("url.full", info.URL))
	}
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers when
// propagation is enabled.
func (p *Provider) InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	if !p.ShouldPropagate() || p.propagator == nil {
		return
	}
	p.propagator.Inject(ctx, propagation.HeaderCarrier(headers))
}
