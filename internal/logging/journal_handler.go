package logging

import (
	"context"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

const journalIdentifier = "pinnode"

// JournalHandler writes records to the systemd journal as structured
// fields. Attribute keys become upper-case field names, with groups joined
// by underscores: a "pin" group holding "number" becomes PIN_NUMBER.
type JournalHandler struct {
	level  slog.Leveler
	fields map[string]string // from WithAttrs, already flattened
	groups []string
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level, fields: map[string]string{}}
}

// Enabled reports whether the handler handles records at the given level.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle sends the record to the journal.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := maps.Clone(h.fields)
	fields["SYSLOG_IDENTIFIER"] = journalIdentifier
	r.Attrs(func(attr slog.Attr) bool {
		addAttrToFields(fields, attr, h.groups)
		return true
	})
	return journal.Send(r.Message, mapLevelToPriority(r.Level), fields)
}

// WithAttrs returns a new handler with additional attributes.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := maps.Clone(h.fields)
	for _, attr := range attrs {
		addAttrToFields(fields, attr, h.groups)
	}
	return &JournalHandler{level: h.level, fields: fields, groups: h.groups}
}

// WithGroup returns a new handler with a group prefix.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := append(h.groups[:len(h.groups):len(h.groups)], name)
	return &JournalHandler{level: h.level, fields: h.fields, groups: groups}
}

func mapLevelToPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// addAttrToFields flattens attr into fields under the journal naming rules.
func addAttrToFields(fields map[string]string, attr slog.Attr, groups []string) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	if attr.Value.Kind() == slog.KindGroup {
		nested := groups
		if attr.Key != "" {
			nested = append(groups[:len(groups):len(groups)], attr.Key)
		}
		for _, a := range attr.Value.Group() {
			addAttrToFields(fields, a, nested)
		}
		return
	}

	fields[journalFieldName(groups, attr.Key)] = journalValue(attr.Value)
}

// journalFieldName builds a field name the journal accepts: upper-case
// letters, digits and underscores, not starting with an underscore.
func journalFieldName(groups []string, key string) string {
	name := strings.ToUpper(strings.Join(append(groups[:len(groups):len(groups)], key), "_"))
	name = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	return strings.TrimLeft(name, "_")
}

func journalValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	default:
		return v.String()
	}
}

// IsJournalAvailable checks if systemd journal is available.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
