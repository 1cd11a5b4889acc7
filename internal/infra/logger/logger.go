package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
)

// Options configures the process logger.
type Options struct {
	ServiceName string
	Level       string
	EnableOTel  bool
	// Output defaults to stdout.
	Output io.Writer
}

// New creates a JSON logger writing to stdout only.
func New(serviceName, level string) *slog.Logger {
	return NewWithOptions(Options{ServiceName: serviceName, Level: level})
}

// NewWithOptions builds the handler chain: JSON, trace ids, business keys,
// and optionally the OTel log bridge alongside.
func NewWithOptions(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	level := parseLevel(opts.Level)

	jsonHandler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	var handler slog.Handler = NewContextHandler(NewTraceContextHandler(jsonHandler))
	if opts.EnableOTel {
		otelHandler := otelslog.NewHandler(
			opts.ServiceName,
			otelslog.WithLoggerProvider(global.GetLoggerProvider()),
		)
		handler = NewMultiHandler(handler, NewContextHandler(otelHandler))
	}

	l := slog.New(handler)
	if opts.ServiceName != "" {
		l = l.With(slog.String("service", opts.ServiceName))
	}
	l.Info("logger_initialized", slog.Bool("otel_enabled", opts.EnableOTel), slog.String("level", level.String()))
	return l
}

// MultiHandler sends logs to multiple handlers
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			_ = handler.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: newHandlers}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: newHandlers}
}
