package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/pinnode/internal/api/models"
	"github.com/smazurov/pinnode/internal/systemd"
	"github.com/smazurov/pinnode/internal/version"
)

func (s *Server) registerSystemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status and the hardware in use",
		Tags:        []string{"system"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
				Board:   s.options.Board,
				LED:     s.options.LED,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		return &models.VersionResponse{Body: version.Get()}, nil
	})

	if s.options.Systemd == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-service-status",
		Method:      http.MethodGet,
		Path:        "/api/systemd/status",
		Summary:     "Service Status",
		Description: "Get the state of the pinnode systemd unit",
		Tags:        []string{"system"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.SystemdServiceStatusResponse, error) {
		unit, err := s.options.Systemd.UnitStatus(ctx, systemd.ServiceName)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to get service status", err)
		}
		body := models.SystemdServiceStatus{
			Service:  systemd.ServiceName,
			Status:   unit.ActiveState,
			SubState: unit.SubState,
			MainPID:  unit.MainPID,
			Restarts: unit.NRestarts,
		}
		if !unit.ActiveSince.IsZero() {
			body.ActiveSince = &unit.ActiveSince
		}
		return &models.SystemdServiceStatusResponse{Body: body}, nil
	})
}
