// Package server is the device port transport: a single-threaded TCP loop
// that reads one request head per connection, hands the request line to a
// Dispatcher and writes back exactly one response.
package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"sync"
	"time"

	"github.com/smazurov/pinnode/internal/router"
)

const (
	// DefaultReadTimeout bounds how long a client may take to send its request head.
	DefaultReadTimeout = 5 * time.Second
	// DefaultWriteTimeout bounds how long writing the response may take.
	DefaultWriteTimeout = 5 * time.Second

	maxHeaderBytes = 8 << 10
)

// Dispatcher produces the response for a request line. *router.Router satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, line string) router.Response
}

// Server serves one connection at a time. Dispatch is never called
// concurrently, so the dispatcher may own unsynchronized state.
type Server struct {
	dispatcher   Dispatcher
	logger       *slog.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	done     chan struct{}
	cancel   context.CancelFunc
}

// Options configures a Server.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// New creates a server that dispatches to d.
func New(d Dispatcher, opts Options) *Server {
	s := &Server{
		dispatcher:   d,
		logger:       opts.Logger,
		readTimeout:  opts.ReadTimeout,
		writeTimeout: opts.WriteTimeout,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.readTimeout <= 0 {
		s.readTimeout = DefaultReadTimeout
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = DefaultWriteTimeout
	}
	return s
}

// Start listens on addr and serves in the background until Stop.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.Serve(ln)
	return nil
}

// Serve serves connections from ln in the background until Stop.
func (s *Server) Serve(ln net.Listener) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.listener = ln
	s.closed = false
	s.done = make(chan struct{})
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("Device server started", "addr", ln.Addr().String())

	go s.acceptLoop(ctx, ln, s.done)
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// acceptLoop accepts and fully handles one connection at a time.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, done chan struct{}) {
	defer close(done)
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()

			if closed || errors.Is(err, net.ErrClosed) {
				return // Server is shutting down
			}
			s.logger.Error("Failed to accept connection", "error", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		s.handleConn(ctx, conn)
	}
}

// handleConn reads the request head, dispatches the request line and
// writes the response. The connection is always closed on return.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
		s.logger.Debug("Failed to set read deadline", "remote", remote, "error", err)
	}

	line, err := readHead(conn)
	if err != nil && line == "" {
		s.logger.Debug("Connection closed before request line", "remote", remote, "error", err)
		return
	}

	resp := s.dispatcher.Dispatch(ctx, line)

	if err := conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		s.logger.Debug("Failed to set write deadline", "remote", remote, "error", err)
	}
	if _, err := resp.WriteTo(conn); err != nil {
		s.logger.Warn("Failed to write response", "remote", remote, "error", err)
	}
}

// readHead returns the request line and discards header lines up to the
// blank line. Errors after the request line (timeout, EOF, oversized head)
// still return the line so the request can be answered.
func readHead(r io.Reader) (string, error) {
	tp := textproto.NewReader(bufio.NewReader(io.LimitReader(r, maxHeaderBytes)))

	line, err := tp.ReadLine()
	if err != nil {
		return line, err
	}
	for {
		h, err := tp.ReadLine()
		if err != nil {
			return line, err
		}
		if h == "" {
			return line, nil
		}
	}
}

// Stop closes the listener and waits for the in-flight connection to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.closed = true
	ln, done, cancel := s.listener, s.done, s.cancel
	s.mu.Unlock()

	if ln == nil {
		return nil
	}
	err := ln.Close()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	s.logger.Info("Device server stopped")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
