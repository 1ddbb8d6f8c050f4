package led

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives /sys/class/leds/<name>.
type sysfs struct {
	dir  string
	name string

	// claimed is set once the kernel trigger has been released and the
	// full-on brightness read.
	claimed bool
	full    string
}

func newSysfs(root, name string) *sysfs {
	return &sysfs{dir: filepath.Join(root, name), name: name}
}

func (s *sysfs) Set(on bool) error {
	if !s.claimed {
		if err := s.claim(); err != nil {
			return err
		}
	}

	value := "0"
	if on {
		value = s.full
	}
	if err := os.WriteFile(filepath.Join(s.dir, "brightness"), []byte(value), 0o644); err != nil {
		return fmt.Errorf("LED %s brightness: %w", s.name, err)
	}
	return nil
}

// claim detaches the LED from its kernel trigger (mmc0, heartbeat), which
// would otherwise keep overwriting brightness.
func (s *sysfs) claim() error {
	if _, err := os.Stat(s.dir); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("LED %q not found at %s", s.name, s.dir)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "trigger"), []byte("none"), 0o644); err != nil {
		return fmt.Errorf("LED %s trigger: %w", s.name, err)
	}

	s.full = "1"
	if data, err := os.ReadFile(filepath.Join(s.dir, "max_brightness")); err == nil {
		if n, convErr := strconv.Atoi(strings.TrimSpace(string(data))); convErr == nil && n > 0 {
			s.full = strconv.Itoa(n)
		}
	}
	s.claimed = true
	return nil
}

func (s *sysfs) Name() string {
	return "sysfs:" + s.name
}
