package apiclient

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// scope is the instrumentation scope name for OpenTelemetry.
const scope = "github.com/kroma-labs/courier-go/apiclient"

// startSpan returns the span to record call events on. With tracing
// enabled a new client span is created (ownSpan true, caller must End it);
// otherwise events attach to the caller's span, which is a no-op when none
// exists.
func (c *Client) startSpan(ctx context.Context, method, endpoint string) (context.Context, trace.Span, bool) {
	if !c.tracing {
		return ctx, trace.SpanFromContext(ctx), false
	}

	ctx, span := otel.Tracer(scope).Start(ctx, "API "+method+" "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", endpoint),
		),
	)
	return ctx, span, true
}

func recordSpanRetry(span trace.Span, attempt int, delay time.Duration, err error) {
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Int("retry.attempt", attempt),
		attribute.Int64("retry.delay_ms", delay.Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("retry.reason", err.Error()))
	}
	span.AddEvent("retry", trace.WithAttributes(attrs...))
}

func recordSpanCacheHit(span trace.Span) {
	if span.IsRecording() {
		span.AddEvent("cache.hit")
	}
}

func recordSpanStatus(span trace.Span, status int) {
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status >= 500 {
		span.SetStatus(codes.Error, "server error")
	}
}

func recordSpanError(span trace.Span, err error) {
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
