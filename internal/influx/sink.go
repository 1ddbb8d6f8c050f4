// Package influx writes device events to InfluxDB 2.x as points, one
// measurement per event kind (pinnode_gpio, pinnode_pwm, ...).
package influx

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/smazurov/pinnode/internal/events"
)

const (
	measurementPrefix = "pinnode_"
	sinkBufferSize    = 256
	flushIntervalMs   = 2000
	requestTimeoutSec = 5
)

// stopTimeout bounds how long Stop waits for the final flush.
var stopTimeout = 10 * time.Second

// Config selects the InfluxDB bucket. An empty URL disables the sink.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Sink batches events through the client's non-blocking write API.
type Sink struct {
	bus    *events.Bus
	logger *slog.Logger
	client influxdb2.Client
	writer api.WriteAPI
	ch     chan events.Event
	unsub  func()
	cancel context.CancelFunc
	wg     sync.WaitGroup
	errWG  sync.WaitGroup
}

// New returns a sink, or nil when cfg.URL is empty.
func New(cfg Config, bus *events.Bus, logger *slog.Logger) *Sink {
	if cfg.URL == "" {
		logger.Debug("InfluxDB sink disabled")
		return nil
	}

	opts := influxdb2.DefaultOptions().
		SetFlushInterval(flushIntervalMs).
		SetHTTPRequestTimeout(requestTimeoutSec)
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	logger.Info("InfluxDB sink configured", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)

	return &Sink{
		bus:    bus,
		logger: logger,
		client: client,
		writer: client.WriteAPI(cfg.Org, cfg.Bucket),
		ch:     make(chan events.Event, sinkBufferSize),
	}
}

// Start subscribes to device events. A nil sink does nothing.
func (s *Sink) Start(ctx context.Context) {
	if s == nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.unsub = events.SubscribeAll(s.bus, s.ch)

	s.wg.Add(1)
	go s.run(ctx)
	s.errWG.Add(1)
	go s.logErrors(s.writer.Errors())
}

// Stop unsubscribes, writes what is still buffered, flushes and closes
// the client. Write errors keep being logged until the client is closed,
// so an unreachable server cannot stall the flush.
func (s *Sink) Stop() {
	if s == nil {
		return
	}
	if s.unsub != nil {
		s.unsub()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	done := make(chan struct{})
	go func() {
		s.writer.Flush()
		s.client.Close()
		s.errWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		s.logger.Warn("InfluxDB flush timed out, pending points dropped", "timeout", stopTimeout)
	}
}

func (s *Sink) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case ev := <-s.ch:
			s.write(ev)
		}
	}
}

// drain writes events already queued without waiting for more.
func (s *Sink) drain() {
	for {
		select {
		case ev := <-s.ch:
			s.write(ev)
		default:
			return
		}
	}
}

func (s *Sink) write(ev events.Event) {
	if p := pointFor(ev, time.Now()); p != nil {
		s.writer.WritePoint(p)
	}
}

// logErrors ends when Close closes the error channel.
func (s *Sink) logErrors(errs <-chan error) {
	defer s.errWG.Done()
	for err := range errs {
		s.logger.Warn("InfluxDB write failed", "error", err)
	}
}

// pointFor maps an event to a point stamped with the event's own time,
// or now when it has none.
func pointFor(ev events.Event, now time.Time) *write.Point {
	var (
		tags   map[string]string
		fields map[string]any
		stamp  string
	)

	switch e := ev.(type) {
	case events.IndicatorChangedEvent:
		fields, stamp = map[string]any{"on": e.On}, e.Timestamp
	case events.PinChangedEvent:
		tags = map[string]string{"pin": strconv.Itoa(e.Pin)}
		fields, stamp = map[string]any{"high": e.High}, e.Timestamp
	case events.DutyChangedEvent:
		tags = map[string]string{"pin": strconv.Itoa(e.Pin)}
		fields = map[string]any{"duty_pct": e.DutyPct, "level": int(e.Level), "stopped": e.Stopped}
		stamp = e.Timestamp
	case events.CalibratedEvent:
		fields, stamp = map[string]any{"x": e.X, "y": e.Y}, e.Timestamp
	case events.RequestHandledEvent:
		tags = map[string]string{"route": e.Route, "status": strconv.Itoa(e.Status)}
		fields, stamp = map[string]any{"seconds": e.Seconds}, e.Timestamp
	default:
		return nil
	}

	ts := now
	if t, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
		ts = t
	}
	return influxdb2.NewPoint(measurementPrefix+ev.Name(), tags, fields, ts)
}
