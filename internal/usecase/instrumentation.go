package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"rag-governor/internal/domain"
)

// Request outcomes recorded by Instrumentation.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// RequestRecord summarizes one finished request for metrics.
type RequestRecord struct {
	Variant   string
	Outcome   string
	Stage     string
	LatencyMs float64
}

// Span is one timed unit of work.
type Span interface {
	SetAttribute(key string, value any)
	End(err error)
}

// Instrumentation is the telemetry sink of the pipeline. Implementations may
// fail or be absent; callers must never let that change a request's outcome.
type Instrumentation interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	RecordRequest(ctx context.Context, rec RequestRecord)
}

// NoopInstrumentation drops everything.
type NoopInstrumentation struct{}

func (NoopInstrumentation) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (NoopInstrumentation) RecordRequest(context.Context, RequestRecord) {}

type noopSpan struct{}

func (noopSpan) SetAttribute(string, any) {}
func (noopSpan) End(error)                {}

// failOpen wraps an Instrumentation so that panics and nil returns are
// absorbed and logged as *domain.TelemetryError.
type failOpen struct {
	inner  Instrumentation
	logger *slog.Logger
}

// FailOpen guards inst. A nil inst becomes a no-op.
func FailOpen(inst Instrumentation, logger *slog.Logger) Instrumentation {
	if inst == nil {
		return NoopInstrumentation{}
	}
	if _, ok := inst.(*failOpen); ok {
		return inst
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &failOpen{inner: inst, logger: logger}
}

func (f *failOpen) StartSpan(ctx context.Context, name string) (outCtx context.Context, span Span) {
	outCtx, span = ctx, noopSpan{}
	f.guard(ctx, "start_span:"+name, func() {
		c, s := f.inner.StartSpan(ctx, name)
		if c != nil {
			outCtx = c
		}
		if s != nil {
			span = &failOpenSpan{inner: s, owner: f, ctx: ctx, name: name}
		}
	})
	return outCtx, span
}

func (f *failOpen) RecordRequest(ctx context.Context, rec RequestRecord) {
	f.guard(ctx, "record_request", func() {
		f.inner.RecordRequest(ctx, rec)
	})
}

func (f *failOpen) guard(ctx context.Context, op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			terr := &domain.TelemetryError{Op: op, Err: fmt.Errorf("%v", r)}
			f.logger.WarnContext(ctx, "telemetry_failed", slog.String("error", terr.Error()))
		}
	}()
	fn()
}

type failOpenSpan struct {
	inner Span
	owner *failOpen
	ctx   context.Context
	name  string
}

func (s *failOpenSpan) SetAttribute(key string, value any) {
	s.owner.guard(s.ctx, "set_attribute:"+s.name, func() { s.inner.SetAttribute(key, value) })
}

func (s *failOpenSpan) End(err error) {
	s.owner.guard(s.ctx, "end_span:"+s.name, func() { s.inner.End(err) })
}
