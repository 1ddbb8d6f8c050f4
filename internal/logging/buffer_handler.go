package logging

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
)

// LogCallback is called when a new log entry is written.
// Used to feed metrics without creating import cycles.
type LogCallback func(entry LogEntry)

// BufferHandler is a slog.Handler that records entries in a ring buffer
// for the admin API and passes each one to a callback.
// A nil buffer or callback falls back to the package-level ones.
type BufferHandler struct {
	buffer   *RingBuffer
	level    slog.Leveler
	callback LogCallback
	module   string
	attrs    map[string]any // from WithAttrs, already flattened
	groups   []string
}

// NewBufferHandler creates a handler that writes to the given ring buffer.
func NewBufferHandler(buffer *RingBuffer, level slog.Leveler, callback LogCallback) *BufferHandler {
	return &BufferHandler{
		buffer:   buffer,
		level:    level,
		callback: callback,
		module:   "app",
	}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{
		Timestamp:  r.Time,
		Level:      levelToString(r.Level),
		Module:     h.module,
		Message:    r.Message,
		Attributes: maps.Clone(h.attrs),
	}
	if entry.Attributes == nil {
		entry.Attributes = make(map[string]any, r.NumAttrs())
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "module" && len(h.groups) == 0 {
			entry.Module = a.Value.String()
			return true
		}
		flattenAttr(entry.Attributes, h.groups, a)
		return true
	})

	buffer := h.buffer
	if buffer == nil {
		buffer = GetBuffer()
	}
	buffer.Write(entry)

	callback := h.callback
	if callback == nil {
		callback = getLogCallback()
	}
	if callback != nil {
		callback(entry)
	}
	return nil
}

// flattenAttr stores a into attrs, joining group names with dots.
func flattenAttr(attrs map[string]any, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		nested := groups
		if a.Key != "" {
			nested = append(groups[:len(groups):len(groups)], a.Key)
		}
		for _, ga := range a.Value.Group() {
			flattenAttr(attrs, nested, ga)
		}
		return
	}

	key := strings.Join(append(groups[:len(groups):len(groups)], a.Key), ".")
	switch a.Value.Kind() {
	case slog.KindTime:
		attrs[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		attrs[key] = a.Value.Duration().String()
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			attrs[key] = err.Error()
		} else {
			attrs[key] = a.Value.Any()
		}
	default:
		attrs[key] = a.Value.Any()
	}
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = maps.Clone(h.attrs)
	if clone.attrs == nil {
		clone.attrs = make(map[string]any, len(attrs))
	}
	for _, a := range attrs {
		if a.Key == "module" && len(h.groups) == 0 {
			clone.module = a.Value.String()
			continue
		}
		flattenAttr(clone.attrs, h.groups, a)
	}
	return &clone
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(h.groups[:len(h.groups):len(h.groups)], name)
	return &clone
}

func levelToString(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// FormatLogLine renders entry as "<time> [LEVEL] [module] message k=v ...",
// with attributes in key order.
func FormatLogLine(entry LogEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] [%s] %s",
		entry.Timestamp.Format(time.RFC3339Nano), strings.ToUpper(entry.Level), entry.Module, entry.Message)
	for _, k := range slices.Sorted(maps.Keys(entry.Attributes)) {
		fmt.Fprintf(&sb, " %s=%v", k, entry.Attributes[k])
	}
	return sb.String()
}
