package completion

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/photka-support-ai/internal/observability/metrics"
)

// Instrumented records latency, outcome and a trace span for every call.
type Instrumented struct {
	next     Client
	provider string
	metrics  *metrics.ChatMetrics
	tracer   trace.Tracer
}

func NewInstrumented(next Client, provider string, m *metrics.ChatMetrics) *Instrumented {
	return &Instrumented{
		next:     next,
		provider: provider,
		metrics:  m,
		tracer:   otel.Tracer("photka.internal.completion"),
	}
}

func (i *Instrumented) Complete(ctx context.Context, req Request) (Response, error) {
	ctx, span := i.tracer.Start(ctx, "completion.complete", trace.WithAttributes(
		attribute.String("completion.provider", i.provider),
		attribute.Int("completion.messages", len(req.Messages)),
	))
	defer span.End()

	start := time.Now()
	resp, err := i.next.Complete(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = string(CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		span.SetAttributes(attribute.Int("completion.output_tokens", int(resp.Usage.OutputTokens)))
	}
	i.metrics.ObserveCompletion(i.provider, outcome, time.Since(start).Seconds())
	return resp, err
}
