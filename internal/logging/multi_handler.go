package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler sends each record to every handler that accepts its level.
// Handlers keep their own levels, so the console can run at a different
// level than the journal.
type MultiHandler []slog.Handler

// NewMultiHandler combines handlers, skipping nils. A single handler is
// returned as is.
func NewMultiHandler(handlers ...slog.Handler) slog.Handler {
	var m MultiHandler
	for _, h := range handlers {
		if h != nil {
			m = append(m, h)
		}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

// Enabled implements slog.Handler.
func (m MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler. Every handler runs even when an
// earlier one fails; the failures are joined.
func (m MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (m MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup implements slog.Handler.
func (m MultiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m MultiHandler) each(fn func(slog.Handler) slog.Handler) MultiHandler {
	out := make(MultiHandler, len(m))
	for i, h := range m {
		out[i] = fn(h)
	}
	return out
}
