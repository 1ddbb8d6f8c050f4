package led

import "log/slog"

// noop stands in on boards with no usable indicator. The router still
// tracks and reports the indicator state; only the light is missing.
type noop struct {
	logger *slog.Logger
	on     bool
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Set(on bool) error {
	if on != n.on {
		n.logger.Debug("No indicator LED, ignoring change", "on", on)
		n.on = on
	}
	return nil
}

func (n *noop) Name() string { return "none" }
