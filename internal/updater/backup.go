// Package updater replaces the running binary with a newer GitHub release
// and keeps the previous binary for rollback.
package updater

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/smazurov/pinnode/internal/version"
)

const (
	backupFilename     = "pinnode.prev"
	backupInfoFilename = "prev.json"
)

var errNoBackup = errors.New("no backup available")

// backupInfo describes the saved binary. It is written after the binary,
// so a present info file always has its binary next to it.
type backupInfo struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	ExecPath  string    `json:"exec_path"`
}

// backups holds at most one previous binary.
type backups struct {
	dir    string
	logger *slog.Logger

	mu   sync.RWMutex
	info *backupInfo
}

func defaultBackupDir() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("no cache directory: %w", err)
	}
	return filepath.Join(cache, "pinnode", "backup"), nil
}

// openBackups creates dir if needed and loads an existing backup.
func openBackups(dir string, logger *slog.Logger) (*backups, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	b := &backups{dir: dir, logger: logger}
	b.info = b.load()
	if b.info != nil {
		logger.Info("Found previous binary", "version", b.info.Version)
	}
	return b, nil
}

func (b *backups) binaryPath() string { return filepath.Join(b.dir, backupFilename) }
func (b *backups) infoPath() string   { return filepath.Join(b.dir, backupInfoFilename) }

func (b *backups) load() *backupInfo {
	data, err := os.ReadFile(b.infoPath())
	if err != nil {
		return nil
	}
	var info backupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		b.logger.Warn("Ignoring unreadable backup info", "path", b.infoPath(), "error", err)
		return nil
	}
	if _, err := os.Stat(b.binaryPath()); err != nil {
		b.logger.Warn("Ignoring backup info without binary", "path", b.binaryPath())
		return nil
	}
	return &info
}

// save copies the binary at execPath into the backup slot.
func (b *backups) save(execPath string) error {
	if err := replaceFile(execPath, b.binaryPath()); err != nil {
		return fmt.Errorf("copy executable: %w", err)
	}

	info := &backupInfo{Version: version.Version, CreatedAt: time.Now(), ExecPath: execPath}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err := os.WriteFile(b.infoPath(), data, 0o644); err != nil {
		return fmt.Errorf("write backup info: %w", err)
	}

	b.mu.Lock()
	b.info = info
	b.mu.Unlock()
	b.logger.Info("Saved previous binary", "version", info.Version, "path", b.binaryPath())
	return nil
}

// restore copies the saved binary back over the path it came from and
// returns its version.
func (b *backups) restore() (string, error) {
	b.mu.RLock()
	info := b.info
	b.mu.RUnlock()
	if info == nil {
		return "", errNoBackup
	}

	if err := replaceFile(b.binaryPath(), info.ExecPath); err != nil {
		return "", err
	}
	b.logger.Info("Restored previous binary", "version", info.Version, "path", info.ExecPath)
	return info.Version, nil
}

// available reports the saved version, if any.
func (b *backups) available() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.info == nil {
		return "", false
	}
	return b.info.Version, true
}

// replaceFile copies src to a temporary file beside dst and renames it
// into place, so dst is never left half written.
func replaceFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
