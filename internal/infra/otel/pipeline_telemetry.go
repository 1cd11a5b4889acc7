package otel

import (
	"context"
	"fmt"

	"rag-governor/internal/usecase"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "rag-governor/pipeline"

// PipelineTelemetry implements usecase.Instrumentation on OTel traces and metrics.
type PipelineTelemetry struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewPipelineTelemetry creates the request counter and latency histogram.
func NewPipelineTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) (*PipelineTelemetry, error) {
	meter := mp.Meter(instrumentationName)

	requests, err := meter.Int64Counter("rag_requests_total",
		metric.WithDescription("Total number of query requests"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("rag_latency_ms",
		metric.WithDescription("End-to-end query latency in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineTelemetry{
		tracer:   tp.Tracer(instrumentationName),
		requests: requests,
		latency:  latency,
	}, nil
}

func (p *PipelineTelemetry) StartSpan(ctx context.Context, name string) (context.Context, usecase.Span) {
	ctx, span := p.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

func (p *PipelineTelemetry) RecordRequest(ctx context.Context, rec usecase.RequestRecord) {
	attrs := metric.WithAttributes(
		attribute.String("variant", rec.Variant),
		attribute.String("outcome", rec.Outcome),
	)
	p.requests.Add(ctx, 1, attrs)
	p.latency.Record(ctx, rec.LatencyMs, attrs)
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) SetAttribute(key string, value any) {
	s.span.SetAttributes(toAttribute(key, value))
}

func (s *otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}

var _ usecase.Instrumentation = (*PipelineTelemetry)(nil)
