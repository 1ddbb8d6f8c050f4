// Package models holds the admin API request and response bodies.
package models

import "github.com/smazurov/pinnode/internal/version"

// HealthData reports liveness of the daemon.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
	Board   string `json:"board" example:"periph" doc:"Hardware backend in use"`
	LED     string `json:"led" example:"sysfs:ACT" doc:"Builtin indicator driver"`
}

// HealthResponse wraps HealthData for API responses.
type HealthResponse struct {
	Body HealthData
}

// VersionResponse wraps the build metadata.
type VersionResponse struct {
	Body version.Info
}

// PinsData describes which pins the device port will actuate.
type PinsData struct {
	Allowed  []int    `json:"allowed" doc:"Pins that gpio, pwm and pwmoff accept"`
	Reserved []int    `json:"reserved" example:"[26,27,28]" doc:"Joystick pins that are sampled, never driven"`
	Routes   []string `json:"routes" doc:"Example device port requests"`
}

// PinsResponse wraps PinsData for API responses.
type PinsResponse struct {
	Body PinsData
}

// LogsInput filters the buffered log entries.
type LogsInput struct {
	Limit  int    `query:"limit" minimum:"0" maximum:"1000" default:"100" doc:"Most recent entries to return (0 returns all)"`
	Level  string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level to include"`
	Module string `query:"module" example:"router" doc:"Only entries from this module"`
}

// LogEntry is one buffered log record.
type LogEntry struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Entry time"`
	Level      string         `json:"level" example:"warn" doc:"Log level"`
	Module     string         `json:"module" example:"router" doc:"Emitting module"`
	Message    string         `json:"message" example:"Device request" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// LogsData lists buffered log entries oldest first.
type LogsData struct {
	Entries []LogEntry `json:"entries" doc:"Log entries, oldest first"`
	Count   int        `json:"count" example:"42" doc:"Number of entries returned"`
}

// LogsResponse wraps LogsData for API responses.
type LogsResponse struct {
	Body LogsData
}
