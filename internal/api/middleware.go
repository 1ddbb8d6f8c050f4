package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/pinnode/internal/metrics"
)

// requestLevel picks the log level for a finished admin request.
// Preflights and scrapes of read-only endpoints stay at debug.
func requestLevel(method string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case method == http.MethodOptions, method == http.MethodGet:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// requestLogger logs every admin API call under its operation ID and
// counts it in pinnode_admin_requests_total.
func (s *Server) requestLogger(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	next(ctx)

	operation := "unknown"
	if op := ctx.Operation(); op != nil && op.OperationID != "" {
		operation = op.OperationID
	}
	status := ctx.Status()
	if status == 0 {
		status = http.StatusOK
	}
	metrics.ObserveAdminRequest(operation, status)

	s.logger.LogAttrs(ctx.Context(), requestLevel(ctx.Method(), status), "Admin request",
		slog.String("operation", operation),
		slog.String("method", ctx.Method()),
		slog.String("path", ctx.URL().Path),
		slog.String("remote_addr", ctx.RemoteAddr()),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	)
}
