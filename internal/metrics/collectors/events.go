// Package collectors feeds the device metrics from in-process sources.
package collectors

import (
	"context"
	"log/slog"
	"sync"

	"github.com/smazurov/pinnode/internal/events"
	"github.com/smazurov/pinnode/internal/logging"
	"github.com/smazurov/pinnode/internal/metrics"
)

const eventBufferSize = 256

// EventCollector turns device events into metric updates. It runs on its
// own goroutine and only reads event values.
type EventCollector struct {
	bus    *events.Bus
	logger *slog.Logger
	ch     chan events.Event
	unsub  func()
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEventCollector creates a collector for bus.
func NewEventCollector(bus *events.Bus) *EventCollector {
	return &EventCollector{
		bus:    bus,
		logger: logging.GetLogger("metrics"),
		ch:     make(chan events.Event, eventBufferSize),
	}
}

// Start subscribes to the bus and begins collecting.
func (c *EventCollector) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.unsub = events.SubscribeAll(c.bus, c.ch)
	c.wg.Add(1)
	go c.run(ctx)
}

// Stop unsubscribes and waits for the collector goroutine to exit.
func (c *EventCollector) Stop() {
	if c.unsub != nil {
		c.unsub()
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *EventCollector) run(ctx context.Context) {
	defer c.wg.Done()
	c.logger.Debug("Collecting device metrics from event bus")

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.ch:
			Record(ev)
		}
	}
}

// Record applies a single event to the metrics.
func Record(ev events.Event) {
	switch e := ev.(type) {
	case events.IndicatorChangedEvent:
		metrics.SetIndicator(e.On)
	case events.PinChangedEvent:
		metrics.SetPinLevel(e.Pin, e.High)
	case events.DutyChangedEvent:
		if e.Stopped {
			metrics.SetPWMDuty(e.Pin, 0)
		} else {
			metrics.SetPWMDuty(e.Pin, e.DutyPct)
		}
	case events.CalibratedEvent:
		metrics.SetJoystickCenter(e.X, e.Y)
	case events.RequestHandledEvent:
		metrics.ObserveRequest(e.Route, e.Status, e.Seconds)
	}
}

// LogCallback counts every buffered log entry by level. Install it with
// logging.SetLogCallback.
func LogCallback(entry logging.LogEntry) {
	metrics.CountLogEntry(entry.Level)
}
