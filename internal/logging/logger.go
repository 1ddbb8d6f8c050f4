package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const defaultBufferSize = 1000

// Config is the [logging] table: a global level, an output format and
// per-module level overrides.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// module is one named logger and the level it reads on every record.
type module struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// registry holds every module logger. Level changes go through each
// module's LevelVar, so loggers kept in struct fields follow them.
// Initialize swaps in loggers with the configured format; holders of an
// older logger keep its format but still share the level.
type registry struct {
	mu          sync.RWMutex
	modules     map[string]*module
	config      Config
	initialized bool
	global      slog.LevelVar
	buffer      *RingBuffer
	callback    LogCallback
}

var reg = newRegistry()

func newRegistry() *registry {
	return &registry{
		modules: make(map[string]*module),
		buffer:  NewRingBuffer(defaultBufferSize),
	}
}

// Initialize applies config to the default logger and to every module
// logger, including ones obtained before this call.
func Initialize(config Config) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.config = config
	reg.initialized = true
	reg.global.Set(levelOrInfo(config.Level))

	for name, m := range reg.modules {
		m.level.Set(moduleLevel(config, name))
		m.logger = slog.New(createHandler(config.Format, m.level)).With("module", name)
	}
	slog.SetDefault(slog.New(createHandler(config.Format, &reg.global)))
}

// SetLevels changes the global and module levels in place. The format
// is left alone; changing it needs Initialize.
func SetLevels(config Config) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.config.Level = config.Level
	reg.config.Modules = config.Modules
	reg.global.Set(levelOrInfo(config.Level))
	for name, m := range reg.modules {
		m.level.Set(moduleLevel(config, name))
	}
}

// GetBuffer returns the ring buffer behind GET /api/logs.
func GetBuffer() *RingBuffer {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.buffer
}

// SetLogCallback registers a function called for every buffered entry.
// The metrics package counts entries per level through it.
func SetLogCallback(callback LogCallback) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.callback = callback
}

func getLogCallback() LogCallback {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.callback
}

// GetLogger returns the logger for module, creating it on first use.
// Every record carries a module attribute.
func GetLogger(name string) *slog.Logger {
	reg.mu.RLock()
	m, ok := reg.modules[name]
	reg.mu.RUnlock()
	if ok {
		return m.logger
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if m, ok := reg.modules[name]; ok {
		return m.logger
	}

	m = &module{level: &slog.LevelVar{}}
	format := "text"
	if reg.initialized {
		m.level.Set(moduleLevel(reg.config, name))
		format = reg.config.Format
	}
	m.logger = slog.New(createHandler(format, m.level)).With("module", name)
	reg.modules[name] = m
	return m.logger
}

// moduleLevel resolves the level for name: its override, else the global level.
func moduleLevel(config Config, name string) slog.Level {
	if l := parseLevel(config.Modules[name]); l != nil {
		return *l
	}
	return levelOrInfo(config.Level)
}

func levelOrInfo(level string) slog.Level {
	if l := parseLevel(level); l != nil {
		return *l
	}
	return slog.LevelInfo
}

// createHandler fans records out to stdout when it goes somewhere, the
// journal when it is running, and the ring buffer. level is shared by all
// three and is usually the module's LevelVar.
func createHandler(format string, level slog.Leveler) slog.Handler {
	var handlers []slog.Handler

	if isStdoutAvailable() {
		opts := &slog.HandlerOptions{Level: level}
		if format == "json" {
			handlers = append(handlers, slog.NewJSONHandler(os.Stdout, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stdout, opts))
		}
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	// The buffer handler resolves the package buffer and callback per record
	handlers = append(handlers, NewBufferHandler(nil, level, nil))

	return NewMultiHandler(handlers...)
}

// isStdoutAvailable is false when stdout is closed or /dev/null, as under
// systemd with StandardOutput=null.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	if mode.IsRegular() || mode&(os.ModeNamedPipe|os.ModeSocket) != 0 {
		return true
	}
	if mode&os.ModeCharDevice == 0 {
		return false
	}
	// A terminal, unless it is /dev/null
	null, err := os.Stat(os.DevNull)
	return err != nil || !os.SameFile(fi, null)
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// parseLevel returns nil for names it does not know.
func parseLevel(level string) *slog.Level {
	l, ok := levelNames[strings.ToLower(level)]
	if !ok {
		return nil
	}
	return &l
}

// ValidLevel reports whether level names a supported log level.
func ValidLevel(level string) bool {
	return parseLevel(level) != nil
}
