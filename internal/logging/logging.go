// Package logging builds the service's structured logger.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
)

// contextHandler stamps service identity and trace ids on every record
type contextHandler struct {
	next    slog.Handler
	service string
	version string
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, r)
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), service: h.service, version: h.version}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), service: h.service, version: h.version}
}

// Setup creates the service logger. format is "json" (default) or "text";
// a nil w writes to stderr.
func Setup(service, version, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var base slog.Handler
	if format == "text" {
		opts.Level = slog.LevelDebug
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	return slog.New(&contextHandler{next: base, service: service, version: version})
}

// Discard returns a logger that drops everything, for tests and tools
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LogError logs err at ERROR, expanding oops code and context when present
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	logger.ErrorContext(ctx, msg, append(attrs, errorAttrs(err)...)...)
}

// LogWarn logs a recovered failure at WARN with the same expansion as LogError
func LogWarn(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	logger.WarnContext(ctx, msg, append(attrs, errorAttrs(err)...)...)
}

func errorAttrs(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err}
	}
	attrs := []any{"error", err.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if c := oopsErr.Context(); len(c) > 0 {
		attrs = append(attrs, "context", c)
	}
	return attrs
}
