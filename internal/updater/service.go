package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/smazurov/pinnode/internal/logging"
	"github.com/smazurov/pinnode/internal/version"
)

// restartDelay lets the API response reach the client before SIGTERM.
const restartDelay = 500 * time.Millisecond

// enterableFrom lists the states each guarded state may be entered from.
var enterableFrom = map[State][]State{
	StateChecking: {StateIdle, StateAvailable, StateError, StateRolledBack},
	StateApplying: {StateAvailable},
}

// releaseSource is the part of *selfupdate.Updater the service uses.
type releaseSource interface {
	DetectLatest(ctx context.Context, repository selfupdate.Repository) (*selfupdate.Release, bool, error)
	UpdateTo(ctx context.Context, rel *selfupdate.Release, cmdPath string) error
}

type service struct {
	slug       string
	repository selfupdate.Repository
	source     releaseSource
	backups    *backups
	execPath   func() (string, error)
	restart    func() // nil leaves the process running

	disabledReason string
	logger         *slog.Logger

	mu          sync.Mutex
	state       State
	release     *selfupdate.Release
	target      string // release.Version(), cached with release
	lastChecked *time.Time
	lastErr     error
}

// NewService creates the updater. A binary in a directory the process
// cannot write to yields a disabled service, not an error.
func NewService(opts *Options) (Service, error) {
	logger := logging.GetLogger("updater")

	if reason := checkWritable(); reason != "" {
		logger.Warn("Update service disabled", "reason", reason)
		return &service{disabledReason: reason, state: StateIdle, logger: logger}, nil
	}

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	backupDir := opts.BackupDir
	if backupDir == "" {
		if backupDir, err = defaultBackupDir(); err != nil {
			logger.Warn("Rollback disabled", "error", err)
		}
	}

	svc := newService(updater, opts.Repository, backupDir, logger)
	if opts.NoRestart {
		svc.restart = nil
	}
	return svc, nil
}

func newService(source releaseSource, slug, backupDir string, logger *slog.Logger) *service {
	svc := &service{
		slug:       slug,
		repository: selfupdate.ParseSlug(slug),
		source:     source,
		execPath:   selfupdate.ExecutablePath,
		restart:    sendSIGTERM(logger),
		state:      StateIdle,
		logger:     logger,
	}
	if backupDir != "" {
		b, err := openBackups(backupDir, logger)
		if err != nil {
			logger.Warn("Rollback disabled", "error", err)
		} else {
			svc.backups = b
		}
	}
	return svc
}

// checkWritable returns why the running binary cannot be replaced, or "".
func checkWritable() string {
	exe, err := os.Executable()
	if err == nil {
		exe, err = filepath.EvalSymlinks(exe)
	}
	if err != nil {
		return fmt.Sprintf("cannot locate executable: %v", err)
	}

	f, err := os.CreateTemp(filepath.Dir(exe), ".pinnode-update-*")
	if err != nil {
		return fmt.Sprintf("no write permission to %s", filepath.Dir(exe))
	}
	f.Close()
	os.Remove(f.Name())
	return ""
}

func (s *service) IsEnabled() bool        { return s.disabledReason == "" }
func (s *service) DisabledReason() string { return s.disabledReason }

func (s *service) CheckForUpdate(ctx context.Context) (*UpdateInfo, error) {
	if !s.IsEnabled() {
		return nil, newError(ErrCodeDisabled, s.disabledReason, nil)
	}
	if err := s.enter(StateChecking); err != nil {
		return nil, err
	}

	release, found, err := s.source.DetectLatest(ctx, s.repository)
	now := time.Now()

	s.mu.Lock()
	s.lastChecked = &now
	s.mu.Unlock()

	switch {
	case err != nil:
		s.fail(err)
		return nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	case !found:
		err := errors.New("repository not found or has no releases")
		s.fail(err)
		return nil, newError(ErrCodeNotFound, err.Error(), nil)
	}

	info := &UpdateInfo{
		CurrentVersion: version.Version,
		LatestVersion:  release.Version(),
	}
	if !isNewer(release, version.Version) {
		s.set(StateIdle, nil)
		return info, nil
	}

	info.UpdateAvailable = true
	info.ReleaseNotes = release.ReleaseNotes
	info.ReleaseURL = release.URL
	info.PublishedAt = release.PublishedAt
	info.AssetSize = release.AssetByteSize
	s.set(StateAvailable, release)
	return info, nil
}

// isNewer treats dev builds as older than any release.
func isNewer(release *selfupdate.Release, current string) bool {
	return current == "dev" || release.GreaterThan(current)
}

func (s *service) ApplyUpdate(ctx context.Context) error {
	if !s.IsEnabled() {
		return newError(ErrCodeDisabled, s.disabledReason, nil)
	}

	if s.currentState() != StateAvailable {
		info, err := s.CheckForUpdate(ctx)
		if err != nil {
			return err
		}
		if !info.UpdateAvailable {
			return newError(ErrCodeNoUpdate, "no update available", nil)
		}
	}
	if err := s.enter(StateApplying); err != nil {
		return err
	}

	exe, err := s.execPath()
	if err != nil {
		s.fail(err)
		return newError(ErrCodeApplyFailed, "failed to get executable path", err)
	}
	if s.backups != nil {
		if err := s.backups.save(exe); err != nil {
			s.fail(err)
			return newError(ErrCodeBackupFailed, "failed to create backup", err)
		}
	}

	s.mu.Lock()
	release, target := s.release, s.target
	s.mu.Unlock()

	if err := s.source.UpdateTo(ctx, release, exe); err != nil {
		s.fail(err)
		s.rollbackAfterFailure()
		return newError(ErrCodeApplyFailed, "failed to apply update", err)
	}

	s.logger.Info("Update applied", "from", version.Version, "to", target)
	s.set(StateRestarting, nil)
	s.scheduleRestart()
	return nil
}

func (s *service) Rollback(_ context.Context) error {
	if !s.IsEnabled() {
		return newError(ErrCodeDisabled, s.disabledReason, nil)
	}
	if s.backups == nil {
		return newError(ErrCodeNoBackup, "no backup available for rollback", nil)
	}

	restored, err := s.backups.restore()
	if errors.Is(err, errNoBackup) {
		return newError(ErrCodeNoBackup, "no backup available for rollback", nil)
	}
	if err != nil {
		return newError(ErrCodeRollbackFailed, "failed to restore backup", err)
	}

	s.logger.Info("Rolled back", "version", restored)
	s.set(StateRolledBack, nil)
	s.scheduleRestart()
	return nil
}

func (s *service) GetStatus(_ context.Context) *Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := &Status{
		State:          s.state,
		Repository:     s.slug,
		CurrentVersion: version.Version,
		LastChecked:    s.lastChecked,
	}
	status.TargetVersion = s.target
	if s.lastErr != nil {
		status.Error = s.lastErr.Error()
	}
	if s.backups != nil {
		status.BackupVersion, status.BackupAvailable = s.backups.available()
	}
	return status
}

// enter moves to a guarded state or reports why it cannot.
func (s *service) enter(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from, guarded := enterableFrom[to]; guarded && !slices.Contains(from, s.state) {
		return newError(ErrCodeInvalidState, fmt.Sprintf("cannot enter %s from %s", to, s.state), nil)
	}
	s.logger.Debug("State transition", "from", s.state, "to", to)
	s.state = to
	s.lastErr = nil
	return nil
}

// set records an unguarded transition. A non-nil release replaces the
// cached one.
func (s *service) set(to State, release *selfupdate.Release) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug("State transition", "from", s.state, "to", to)
	s.state = to
	s.lastErr = nil
	if release != nil {
		s.release = release
		s.target = release.Version()
	}
}

func (s *service) fail(err error) {
	s.mu.Lock()
	s.state = StateError
	s.lastErr = err
	s.mu.Unlock()
}

func (s *service) currentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// rollbackAfterFailure puts the saved binary back after a failed install.
// The error stays visible in the status when there is nothing to restore.
func (s *service) rollbackAfterFailure() {
	if s.backups == nil {
		s.logger.Error("Update failed and no backup is configured")
		return
	}
	if _, err := s.backups.restore(); err != nil {
		s.logger.Error("Automatic rollback failed", "error", err)
		return
	}
	s.set(StateRolledBack, nil)
}

func (s *service) scheduleRestart() {
	if s.restart == nil {
		return
	}
	time.AfterFunc(restartDelay, s.restart)
}

// sendSIGTERM stops the daemon so systemd starts the new binary.
func sendSIGTERM(logger *slog.Logger) func() {
	return func() {
		logger.Info("Sending SIGTERM to restart")
		if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
			logger.Error("Failed to send SIGTERM", "error", err)
		}
	}
}
