package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/pinnode/internal/api/models"
	"github.com/smazurov/pinnode/internal/updater"
)

// updateErrorStatus maps updater codes to HTTP statuses. Unlisted codes are 500.
var updateErrorStatus = map[updater.Code]int{
	updater.ErrCodeInvalidState: http.StatusConflict,
	updater.ErrCodeNoUpdate:     http.StatusBadRequest,
	updater.ErrCodeNotFound:     http.StatusNotFound,
	updater.ErrCodeNoBackup:     http.StatusNotFound,
	updater.ErrCodeDisabled:     http.StatusServiceUnavailable,
}

// registerUpdateRoutes registers the self-update endpoints. A disabled
// service still gets the routes so clients see 503 with the reason.
func (s *Server) registerUpdateRoutes() {
	svc := s.options.UpdateService
	if svc == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "check-updates",
		Method:      http.MethodGet,
		Path:        "/api/update/check",
		Summary:     "Check for Updates",
		Description: "Compare the latest GitHub release with the running version without downloading it",
		Tags:        []string{"update"},
		Errors:      []int{401, 404, 409, 500, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateCheckResponse, error) {
		if err := requireEnabled(svc); err != nil {
			return nil, err
		}
		info, err := svc.CheckForUpdate(ctx)
		if err != nil {
			return nil, mapUpdateError(err)
		}
		return &models.UpdateCheckResponse{Body: info}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-update-status",
		Method:      http.MethodGet,
		Path:        "/api/update/status",
		Summary:     "Get Update Status",
		Tags:        []string{"update"},
		Errors:      []int{401, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateStatusResponse, error) {
		if err := requireEnabled(svc); err != nil {
			return nil, err
		}
		return &models.UpdateStatusResponse{Body: svc.GetStatus(ctx)}, nil
	})

	s.registerUpdateAction(svc, "apply-update", "/api/update/apply", "Apply Update",
		"Back up the running binary, install the latest release and restart", "Update applied", svc.ApplyUpdate)
	s.registerUpdateAction(svc, "rollback-update", "/api/update/rollback", "Rollback Update",
		"Restore the previous binary and restart", "Rollback complete", svc.Rollback)
}

// registerUpdateAction registers a POST endpoint that runs action and
// reports the resulting status.
func (s *Server) registerUpdateAction(svc updater.Service, id, path, summary, description, message string, action func(context.Context) error) {
	huma.Register(s.api, huma.Operation{
		OperationID: id,
		Method:      http.MethodPost,
		Path:        path,
		Summary:     summary,
		Description: description,
		Tags:        []string{"update"},
		Errors:      []int{400, 401, 404, 409, 500, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateActionResponse, error) {
		if err := requireEnabled(svc); err != nil {
			return nil, err
		}
		if err := action(ctx); err != nil {
			return nil, mapUpdateError(err)
		}
		status := svc.GetStatus(ctx)
		return &models.UpdateActionResponse{Body: models.UpdateActionData{
			Message:    message,
			Restarting: status.State == updater.StateRestarting || status.State == updater.StateRolledBack,
			Status:     status,
		}}, nil
	})
}

func requireEnabled(svc updater.Service) error {
	if svc.IsEnabled() {
		return nil
	}
	return huma.Error503ServiceUnavailable("Update service disabled: " + svc.DisabledReason())
}

// mapUpdateError converts updater errors to Huma HTTP errors.
func mapUpdateError(err error) error {
	var updateErr *updater.Error
	if !errors.As(err, &updateErr) {
		return huma.Error500InternalServerError(err.Error())
	}
	status, ok := updateErrorStatus[updateErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return huma.NewError(status, updateErr.Message)
}
