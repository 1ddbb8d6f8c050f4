package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/smazurov/pinnode/internal/events"
)

const mirrorBufferSize = 128

// Publisher sends one encoded event. *Client implements it.
type Publisher interface {
	Publish(name string, payload []byte) error
}

// Mirror forwards device events from the bus to a Publisher. Events reach
// it through a buffered channel, so a slow broker drops events rather than
// delaying device requests.
type Mirror struct {
	bus    *events.Bus
	pub    Publisher
	logger *slog.Logger
	ch     chan events.Event
	unsub  func()
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMirror creates a mirror from bus to pub.
func NewMirror(bus *events.Bus, pub Publisher, logger *slog.Logger) *Mirror {
	return &Mirror{
		bus:    bus,
		pub:    pub,
		logger: logger,
		ch:     make(chan events.Event, mirrorBufferSize),
	}
}

// Start subscribes to every device event and begins publishing.
func (m *Mirror) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.unsub = events.SubscribeAll(m.bus, m.ch)
	m.wg.Add(1)
	go m.run(ctx)
}

// Stop unsubscribes and waits for the publishing goroutine.
func (m *Mirror) Stop() {
	if m.unsub != nil {
		m.unsub()
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Mirror) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			m.drain()
			return
		case ev := <-m.ch:
			m.forward(ev)
		}
	}
}

// drain forwards events already queued without waiting for more.
func (m *Mirror) drain() {
	for {
		select {
		case ev := <-m.ch:
			m.forward(ev)
		default:
			return
		}
	}
}

func (m *Mirror) forward(ev events.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		m.logger.Error("Failed to encode event", "event", ev.Name(), "error", err)
		return
	}
	if err := m.pub.Publish(ev.Name(), payload); err != nil {
		m.logger.Warn("Failed to publish event", "event", ev.Name(), "error", err)
		return
	}
	m.logger.Debug("Published event", "event", ev.Name(), "bytes", len(payload))
}
