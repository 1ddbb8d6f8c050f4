// Package exporters serves the device metrics over HTTP.
package exporters

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/pinnode/internal/logging"
)

// HTTPHandler serves everything registered with the default registry,
// which is where the metrics package registers through promauto.
// A collector that fails is logged and skipped rather than failing the scrape.
func HTTPHandler() http.Handler {
	return HandlerFor(prometheus.DefaultGatherer)
}

// HandlerFor serves the metrics gathered by g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorLog:      scrapeLogger{logging.GetLogger("metrics")},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// scrapeLogger adapts slog to promhttp.Logger.
type scrapeLogger struct{ logger *slog.Logger }

func (l scrapeLogger) Println(v ...any) {
	l.logger.Warn("Metrics scrape error", "error", fmt.Sprint(v...))
}
