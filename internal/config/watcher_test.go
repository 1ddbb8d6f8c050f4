package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/pinnode/internal/logging"
)

type testConfig struct {
	Name  string `toml:"name"`
	Value int    `toml:"value"`
}

func loadTestConfig(path string) (testConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return testConfig{}, err
	}
	var cfg testConfig
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func startWatcher[T any](t *testing.T, w *Watcher[T]) {
	t.Helper()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	})
	// Wait for watcher to initialize
	time.Sleep(100 * time.Millisecond)
}

func TestConfigWatcher_BasicReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinnode.toml")
	writeConfig(t, path, "name = \"initial\"\nvalue = 1\n")

	received := make(chan testConfig, 1)
	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))
	watcher.OnReload(func(cfg testConfig) {
		received <- cfg
	})
	startWatcher(t, watcher)

	writeConfig(t, path, "name = \"updated\"\nvalue = 42\n")

	select {
	case cfg := <-received:
		if cfg.Name != "updated" || cfg.Value != 42 {
			t.Errorf("got %+v, want name=updated, value=42", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestConfigWatcher_RenameOverSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pinnode.toml")
	writeConfig(t, path, "value = 1\n")

	received := make(chan testConfig, 4)
	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))
	watcher.OnReload(func(cfg testConfig) {
		received <- cfg
	})
	startWatcher(t, watcher)

	// Editors commonly write a temp file and rename it into place
	tmp := filepath.Join(dir, ".pinnode.toml.swp")
	writeConfig(t, tmp, "value = 7\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Value != 7 {
			t.Errorf("expected value=7, got %d", cfg.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestConfigWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pinnode.toml")
	writeConfig(t, path, "value = 1\n")

	var count atomic.Int32
	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))
	watcher.OnReload(func(_ testConfig) {
		count.Add(1)
	})
	startWatcher(t, watcher)

	writeConfig(t, filepath.Join(dir, "other.toml"), "value = 2\n")
	time.Sleep(300 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected no reloads for sibling file, got %d", got)
	}
}

func TestConfigWatcher_MultipleHandlers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinnode.toml")
	writeConfig(t, path, "name = \"test\"\nvalue = 1\n")

	var count atomic.Int32
	var configs []testConfig
	var mu sync.Mutex

	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))

	for range 3 {
		watcher.OnReload(func(cfg testConfig) {
			count.Add(1)
			mu.Lock()
			configs = append(configs, cfg)
			mu.Unlock()
		})
	}
	startWatcher(t, watcher)

	writeConfig(t, path, "name = \"new\"\nvalue = 2\n")
	time.Sleep(300 * time.Millisecond)

	if got := count.Load(); got != 3 {
		t.Errorf("expected 3 handlers called, got %d", got)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, cfg := range configs {
		if cfg.Name != "new" || cfg.Value != 2 {
			t.Errorf("handler %d got wrong config: %+v", i, cfg)
		}
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinnode.toml")
	writeConfig(t, path, "value = 1\n")

	var count1, count2 atomic.Int32
	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))

	watcher.OnReload(func(_ testConfig) {
		count1.Add(1)
	})
	unsub2 := watcher.OnReload(func(_ testConfig) {
		count2.Add(1)
	})
	startWatcher(t, watcher)

	writeConfig(t, path, "value = 10\n")
	time.Sleep(300 * time.Millisecond)

	unsub2()

	writeConfig(t, path, "value = 20\n")
	time.Sleep(300 * time.Millisecond)

	if got := count1.Load(); got != 2 {
		t.Errorf("handler1: expected 2 calls, got %d", got)
	}
	if got := count2.Load(); got != 1 {
		t.Errorf("handler2: expected 1 call, got %d", got)
	}
}

func TestConfigWatcher_LoggingReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinnode.toml")
	writeConfig(t, path, "[logging]\nlevel = \"info\"\n")

	errorReceived := make(chan error, 1)
	configReceived := make(chan logging.Config, 1)

	watcher := NewConfigWatcher(path, LoadLoggingConfigFile, newTestLogger(),
		WithDebounce[logging.Config](50*time.Millisecond),
		WithErrorHandler[logging.Config](func(err error) {
			errorReceived <- err
		}),
	)
	watcher.OnReload(func(cfg logging.Config) {
		configReceived <- cfg
	})
	startWatcher(t, watcher)

	writeConfig(t, path, "[logging]\nlevel = \"loud\"\n")
	select {
	case <-errorReceived:
	case <-configReceived:
		t.Fatal("config handler should not be called for an unknown level")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}

	time.Sleep(100 * time.Millisecond)
	writeConfig(t, path, "[logging]\nlevel = \"warn\"\nrouter = \"debug\"\n")
	select {
	case cfg := <-configReceived:
		if cfg.Level != "warn" || cfg.Modules["router"] != "debug" {
			t.Errorf("got %+v", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for logging reload")
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinnode.toml")
	writeConfig(t, path, "value = 0\n")

	var count atomic.Int32
	var lastValue atomic.Int32

	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](200*time.Millisecond))
	watcher.OnReload(func(cfg testConfig) {
		count.Add(1)
		lastValue.Store(int32(cfg.Value))
	})
	startWatcher(t, watcher)

	// Rapid changes within debounce window
	for i := 1; i <= 5; i++ {
		writeConfig(t, path, fmt.Sprintf("value = %d\n", i))
		time.Sleep(50 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced call, got %d", got)
	}
	if got := lastValue.Load(); got != 5 {
		t.Errorf("expected final value 5, got %d", got)
	}
}

func TestConfigWatcher_Stop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinnode.toml")
	writeConfig(t, path, "value = 1\n")

	var count atomic.Int32
	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))
	watcher.OnReload(func(_ testConfig) {
		count.Add(1)
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := watcher.Stop(); err != nil {
		t.Fatal(err)
	}

	writeConfig(t, path, "value = 2\n")
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected no calls after stop, got %d", got)
	}
}

func TestConfigWatcher_StopBeforeStart(t *testing.T) {
	watcher := NewConfigWatcher("unused.toml", loadTestConfig, newTestLogger())
	if err := watcher.Stop(); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
}
