package models

import "time"

// SystemdServiceStatus describes the pinnode unit as systemd sees it.
type SystemdServiceStatus struct {
	Service     string     `json:"service" example:"pinnode.service" doc:"Unit name"`
	Status      string     `json:"status" example:"active" doc:"ActiveState (active, inactive, failed, ...)"`
	SubState    string     `json:"sub_state" example:"running" doc:"SubState of the unit"`
	MainPID     uint32     `json:"main_pid,omitempty" example:"412" doc:"Main process ID"`
	ActiveSince *time.Time `json:"active_since,omitempty" doc:"When the unit last became active"`
	Restarts    uint32     `json:"restarts" example:"0" doc:"Restarts performed by systemd"`
}

// SystemdServiceStatusResponse wraps SystemdServiceStatus for API responses.
type SystemdServiceStatusResponse struct {
	Body SystemdServiceStatus
}
