package models

import "github.com/smazurov/pinnode/internal/updater"

// UpdateCheckResponse carries the result of a release check.
type UpdateCheckResponse struct {
	Body *updater.UpdateInfo
}

// UpdateStatusResponse carries the updater state.
type UpdateStatusResponse struct {
	Body *updater.Status
}

// UpdateActionData confirms an apply or rollback.
type UpdateActionData struct {
	Message    string          `json:"message" example:"Update applied" doc:"What happened"`
	Restarting bool            `json:"restarting" doc:"Whether the daemon is about to restart"`
	Status     *updater.Status `json:"status" doc:"Updater state after the action"`
}

// UpdateActionResponse wraps UpdateActionData for API responses.
type UpdateActionResponse struct {
	Body UpdateActionData
}
