// Package api serves the read-only admin interface: health, build info,
// the pin map, buffered logs, Prometheus metrics and self-update.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/pinnode/internal/logging"
	"github.com/smazurov/pinnode/internal/systemd"
	"github.com/smazurov/pinnode/internal/updater"
)

// ServiceStatusReader reports a systemd unit's state. *systemd.Manager satisfies it.
type ServiceStatusReader interface {
	UnitStatus(ctx context.Context, name string) (systemd.UnitStatus, error)
}

// Options configures the admin server.
type Options struct {
	AuthUsername   string
	AuthPassword   string
	Board          string       // hardware backend name for /api/health
	LED            string       // indicator driver name for /api/health
	Routes         []string     // device port examples for /api/pins
	MetricsHandler http.Handler // served at GET /metrics when set
	UpdateService  updater.Service
	Systemd        ServiceStatusReader
}

// Server is the Huma v2 admin API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	logger     *slog.Logger
}

// NewServer creates the admin API on Go 1.22+ native routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("pinnode admin API", "1.0.0")
	config.Info.Description = "Read-only administration for a pinnode device"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	server := newServer(humago.New(mux, config), opts)
	server.mux = mux

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	return server
}

// newServer installs middleware and routes on api.
func newServer(api huma.API, opts *Options) *Server {
	s := &Server{
		api:     api,
		options: opts,
		logger:  logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(DefaultCORSConfig()))
	api.UseMiddleware(s.requestLogger)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(s.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	s.registerRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on addr until Stop. It returns http.ErrServerClosed after Stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting admin API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop closes the listener and any open connections.
func (s *Server) Stop() error {
	s.logger.Info("Stopping admin API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.registerSystemRoutes()
	s.registerPinRoutes()
	s.registerLogRoutes()
	s.registerUpdateRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
