package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/pinnode/internal/api/models"
	"github.com/smazurov/pinnode/internal/logging"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Return buffered log entries, oldest first, optionally filtered by level and module",
		Tags:        []string{"logs"},
		Errors:      []int{401, 422},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.LogsInput) (*models.LogsResponse, error) {
		entries := filterLogs(logging.GetBuffer().ReadAll(), input)
		return &models.LogsResponse{
			Body: models.LogsData{
				Entries: entries,
				Count:   len(entries),
			},
		}, nil
	})
}

// filterLogs applies the level and module filters, then keeps the last
// input.Limit entries.
func filterLogs(all []logging.LogEntry, input *models.LogsInput) []models.LogEntry {
	minRank := levelRank[input.Level]
	out := make([]models.LogEntry, 0, len(all))
	for _, e := range all {
		if input.Module != "" && e.Module != input.Module {
			continue
		}
		if input.Level != "" && levelRank[e.Level] < minRank {
			continue
		}
		out = append(out, models.LogEntry{
			Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
			Level:      e.Level,
			Module:     e.Module,
			Message:    e.Message,
			Attributes: e.Attributes,
		})
	}
	if input.Limit > 0 && len(out) > input.Limit {
		out = out[len(out)-input.Limit:]
	}
	return out
}
