package server

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/pinnode/internal/device"
	"github.com/smazurov/pinnode/internal/hal"
	"github.com/smazurov/pinnode/internal/router"
)

type nopLED struct{}

func (nopLED) Set(bool) error { return nil }
func (nopLED) Name() string   { return "nop" }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, d Dispatcher, readTimeout time.Duration) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := New(d, Options{ReadTimeout: readTimeout, Logger: newTestLogger()})
	s.Serve(ln)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func roundTrip(t *testing.T, addr net.Addr, raw string) *http.Response {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := io.WriteString(conn, raw); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp
}

// fetch is roundTrip for use off the test goroutine.
func fetch(addr net.Addr, raw string) error {
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := io.WriteString(conn, raw); err != nil {
		return err
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.ReadAll(resp.Body)
	return err
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func newRouter(sim *hal.Sim) *router.Router {
	return router.New(router.Options{
		State:  device.NewState(),
		Board:  sim,
		LED:    nopLED{},
		Logger: newTestLogger(),
	})
}

func TestServerHandlesRequest(t *testing.T) {
	sim := hal.NewSim(newTestLogger())
	s := startServer(t, newRouter(sim), time.Second)

	resp := roundTrip(t, s.Addr(), "GET /gpio/15/on HTTP/1.1\r\nHost: node\r\nUser-Agent: test\r\n\r\n")
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "GPIO 15 = ON") {
		t.Errorf("body = %q", body)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
	if high, ok := sim.Output(15); !ok || !high {
		t.Error("pin 15 not driven high")
	}
}

func TestServerMalformedThenNext(t *testing.T) {
	s := startServer(t, newRouter(hal.NewSim(nil)), time.Second)

	resp := roundTrip(t, s.Addr(), "GET\r\n\r\n")
	if body := readBody(t, resp); resp.StatusCode != http.StatusBadRequest || body != "BAD REQUEST" {
		t.Errorf("malformed: %d %q", resp.StatusCode, body)
	}

	resp = roundTrip(t, s.Addr(), "GET / HTTP/1.1\r\n\r\n")
	if body := readBody(t, resp); resp.StatusCode != http.StatusOK || body != "OK" {
		t.Errorf("next request: %d %q", resp.StatusCode, body)
	}
}

func TestServerAnswersRequestLineWithoutHeaders(t *testing.T) {
	s := startServer(t, newRouter(hal.NewSim(nil)), time.Second)

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := io.WriteString(conn, "GET /led/on HTTP/1.0"); err != nil {
		t.Fatal(err)
	}
	_ = conn.(*net.TCPConn).CloseWrite()

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if body := readBody(t, resp); body != "LED ON" {
		t.Errorf("body = %q", body)
	}
}

// recordingDispatcher checks that Dispatch is never entered concurrently.
type recordingDispatcher struct {
	mu       sync.Mutex
	active   int
	overlaps int
	lines    []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, line string) router.Response {
	d.mu.Lock()
	d.active++
	if d.active > 1 {
		d.overlaps++
	}
	d.lines = append(d.lines, line)
	d.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	d.mu.Lock()
	d.active--
	d.mu.Unlock()
	return router.Text("OK")
}

func TestServerIsSequential(t *testing.T) {
	d := &recordingDispatcher{}
	s := startServer(t, d, time.Second)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fetch(s.Addr(), "GET / HTTP/1.1\r\n\r\n"); err != nil {
				t.Errorf("fetch: %v", err)
			}
		}()
	}
	wg.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.lines) != 8 {
		t.Errorf("dispatched %d requests, want 8", len(d.lines))
	}
	if d.overlaps != 0 {
		t.Errorf("Dispatch overlapped %d times", d.overlaps)
	}
}

func TestServerSilentClientTimesOut(t *testing.T) {
	d := &recordingDispatcher{}
	s := startServer(t, d, 100*time.Millisecond)

	idle, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer idle.Close()

	start := time.Now()
	resp := roundTrip(t, s.Addr(), "GET / HTTP/1.1\r\n\r\n")
	readBody(t, resp)

	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("second client waited %v", elapsed)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.lines) != 1 || d.lines[0] != "GET / HTTP/1.1" {
		t.Errorf("dispatched lines = %q, want only the second client", d.lines)
	}
}

func TestReadHead(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"full head", "GET / HTTP/1.1\r\nHost: a\r\n\r\nbody", "GET / HTTP/1.1", false},
		{"bare newlines", "GET /x HTTP/1.1\nHost: a\n\n", "GET /x HTTP/1.1", false},
		{"no headers", "GET / HTTP/1.1\r\n\r\n", "GET / HTTP/1.1", false},
		{"eof after line", "GET /led/on HTTP/1.1", "GET /led/on HTTP/1.1", true},
		{"empty", "", "", true},
		{"oversized head", "GET / HTTP/1.1\r\nX: " + strings.Repeat("a", maxHeaderBytes) + "\r\n\r\n", "GET / HTTP/1.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readHead(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("readHead() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readHead() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServerStop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := New(&recordingDispatcher{}, Options{Logger: newTestLogger()})
	s.Serve(ln)
	addr := s.Addr().String()

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		t.Error("listener still accepting after Stop")
	}

	if err := New(&recordingDispatcher{}, Options{}).Stop(); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
}
