package updater

import (
	"context"
	"time"
)

// State is where the updater is in its check, apply, restart cycle.
//
//	idle ──check──▶ checking ──▶ available ──apply──▶ applying ──▶ restarting
//	                   │                                  │
//	                   └────────▶ error ◀─────────────────┘──▶ rolled_back
type State string

// Update states.
const (
	StateIdle       State = "idle"
	StateChecking   State = "checking"
	StateAvailable  State = "available"
	StateApplying   State = "applying"
	StateRestarting State = "restarting"
	StateError      State = "error"
	StateRolledBack State = "rolled_back"
)

// Service checks GitHub releases and swaps the running binary.
type Service interface {
	// CheckForUpdate compares the latest release with the running version
	// without downloading anything.
	CheckForUpdate(ctx context.Context) (*UpdateInfo, error)
	// ApplyUpdate backs up the running binary, installs the latest release
	// and schedules a restart.
	ApplyUpdate(ctx context.Context) error
	// Rollback restores the backed up binary and schedules a restart.
	Rollback(ctx context.Context) error
	GetStatus(ctx context.Context) *Status
	// IsEnabled is false when the binary cannot be replaced in place.
	IsEnabled() bool
	DisabledReason() string
}

// UpdateInfo is the result of a check.
type UpdateInfo struct {
	CurrentVersion  string    `json:"current_version" example:"1.0.0" doc:"Running version"`
	LatestVersion   string    `json:"latest_version" example:"1.1.0" doc:"Latest published version"`
	ReleaseNotes    string    `json:"release_notes,omitempty" doc:"Markdown release notes"`
	ReleaseURL      string    `json:"release_url,omitempty" doc:"Release page"`
	PublishedAt     time.Time `json:"published_at,omitzero" doc:"When the release was published"`
	AssetSize       int       `json:"asset_size,omitempty" example:"5242880" doc:"Download size in bytes"`
	UpdateAvailable bool      `json:"update_available" example:"true" doc:"Whether the latest release is newer"`
}

// Status is a snapshot of the updater.
type Status struct {
	State           State      `json:"state" example:"idle" enum:"idle,checking,available,applying,restarting,error,rolled_back" doc:"Current update state"`
	Repository      string     `json:"repository,omitempty" example:"smazurov/pinnode" doc:"GitHub repository releases come from"`
	CurrentVersion  string     `json:"current_version" example:"1.0.0" doc:"Running version"`
	TargetVersion   string     `json:"target_version,omitempty" example:"1.1.0" doc:"Release found by the last check"`
	Error           string     `json:"error,omitempty" doc:"Last failure, cleared by the next transition"`
	LastChecked     *time.Time `json:"last_checked,omitempty" doc:"When releases were last checked"`
	BackupAvailable bool       `json:"backup_available" doc:"Whether a previous binary can be restored"`
	BackupVersion   string     `json:"backup_version,omitempty" example:"0.9.0" doc:"Version of the previous binary"`
}

// Options configures NewService.
type Options struct {
	Repository string // GitHub slug, e.g. "smazurov/pinnode"
	Prerelease bool
	BackupDir  string // defaults to <user cache dir>/pinnode/backup
	// NoRestart leaves the process running after apply or rollback.
	// The CLI sets it; the daemon relies on SIGTERM and systemd.
	NoRestart bool
}
