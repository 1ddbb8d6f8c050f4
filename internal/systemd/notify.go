package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages. Outside systemd every call is a no-op.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a notifier that logs what it sends.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// Ready reports that the device port is accepting connections.
func (n *Notifier) Ready(status string) {
	n.send(daemon.SdNotifyReady + "\nSTATUS=" + status)
}

// Stopping reports that shutdown has begun.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Watchdog pings the service manager at half the configured WatchdogSec
// until ctx is done. It returns immediately when no watchdog is set.
func (n *Notifier) Watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}

func (n *Notifier) send(state string) {
	sent, err := daemon.SdNotify(false, state)
	switch {
	case err != nil:
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
	case sent:
		n.logger.Debug("sd_notify sent", "state", state)
	}
}
