// Package router turns one HTTP request line into one complete response.
//
// Paths are canonicalized into lower-case segments and matched against a
// fixed, priority-ordered route table. Handlers validate pins against the
// allow-list before touching the board, mutate device state and publish
// an event describing what changed.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/smazurov/pinnode/internal/device"
	"github.com/smazurov/pinnode/internal/events"
	"github.com/smazurov/pinnode/internal/hal"
	"github.com/smazurov/pinnode/internal/joystick"
	"github.com/smazurov/pinnode/internal/led"
	"github.com/smazurov/pinnode/internal/pins"
)

// Publisher receives device events. *events.Bus satisfies it.
type Publisher interface {
	Publish(ev events.Event)
}

// Options holds the router's collaborators.
type Options struct {
	State     *device.State
	Board     hal.Board
	LED       led.Controller
	Publisher Publisher
	Logger    *slog.Logger
}

// Router dispatches request lines. It is not safe for concurrent use:
// device state is owned by the single request loop.
type Router struct {
	state *device.State
	board hal.Board
	led   led.Controller
	stick *joystick.Transducer
	// ledPin is the board pin behind the indicator, or -1.
	ledPin int
	events Publisher
	logger *slog.Logger
	routes []route
}

// New creates a router over opts. A nil Publisher discards events.
func New(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pub := opts.Publisher
	if pub == nil {
		pub = discard{}
	}
	r := &Router{
		state:  opts.State,
		board:  opts.Board,
		led:    opts.LED,
		stick:  joystick.New(opts.Board),
		ledPin: -1,
		events: pub,
		logger: logger,
	}
	if owner, ok := opts.LED.(led.PinOwner); ok {
		r.ledPin = owner.Pin()
		if pins.IsAllowed(r.ledPin) {
			logger.Warn("Indicator pin withdrawn from the allow-list", "pin", r.ledPin)
		}
	}
	r.routes = r.table()
	return r
}

// Dispatch handles the first line of a request and always returns a
// complete response. Failures are reported through the response status.
func (r *Router) Dispatch(ctx context.Context, line string) Response {
	start := time.Now()

	method, path, err := ParseRequestLine(line)
	name := "-"
	var resp Response
	switch {
	case err != nil:
		resp = ErrorResponse(err)
	case method != http.MethodGet:
		err = NewError(ErrCodeUnsupportedMethod, "ONLY GET", nil)
		resp = ErrorResponse(err)
	default:
		rt, args := r.match(Segments(path))
		name = rt.name
		resp, err = rt.handle(args)
		if err != nil {
			resp = ErrorResponse(err)
		}
	}

	elapsed := time.Since(start)
	r.logRequest(ctx, method, path, name, resp.Status, elapsed, err)
	r.events.Publish(events.RequestHandledEvent{
		Method:    method,
		Path:      path,
		Route:     name,
		Status:    resp.Status,
		Seconds:   elapsed.Seconds(),
		Timestamp: now(),
	})
	return resp
}

func (r *Router) logRequest(ctx context.Context, method, path, route string, status int, elapsed time.Duration, err error) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.String("route", route),
		slog.Int("status", status),
		slog.Duration("duration", elapsed),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	r.logger.LogAttrs(ctx, level, "Device request", attrs...)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

type discard struct{}

func (discard) Publish(events.Event) {}
