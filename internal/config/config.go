// Package config layers daemon options from defaults, a TOML file,
// PINNODE_* environment variables and command-line flags, and watches the
// file for live logging changes.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/pinnode/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "PINNODE_"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig loads configuration with proper precedence: CLI args > env vars > config file.
// opts must be a pointer to a struct whose fields carry toml and env tags;
// a string field named Config holds the file path. If cmd is provided,
// flags explicitly set via CLI will not be overwritten.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	// Build set of flags explicitly changed via CLI
	changedFlags := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changedFlags[f.Name] = true
			}
		})
	}

	var configPath string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		configPath = f.String()
	}

	if configPath != "" {
		config, err := readTOML(configPath)
		if err != nil {
			return err
		}
		for i := range v.NumField() {
			fieldType := t.Field(i)
			if changedFlags[fieldNameToFlag(fieldType.Name)] {
				continue
			}
			if tomlPath := fieldType.Tag.Get("toml"); tomlPath != "" {
				if value := getNestedValue(config, tomlPath); value != nil {
					if err := setFieldValue(v.Field(i), value); err != nil {
						return fmt.Errorf("invalid value for %s: %w", tomlPath, err)
					}
				}
			}
		}
	}

	for i := range v.NumField() {
		fieldType := t.Field(i)
		if changedFlags[fieldNameToFlag(fieldType.Name)] {
			continue
		}
		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
				if err := setFieldValueFromString(v.Field(i), envValue); err != nil {
					return fmt.Errorf("invalid value for %s%s: %w", EnvPrefix, envKey, err)
				}
			}
		}
	}

	return nil
}

// readTOML parses the file at path. A missing file yields an empty map.
func readTOML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var config map[string]any
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return config, nil
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Acronym runs stay together the way humacli names its flags.
// Example: "LoggingLevel" -> "logging-level", "ADCDevice" -> "adc-device".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var result []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := !unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				result = append(result, '-')
			}
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

// setFieldValue sets a field from a decoded TOML value.
// Durations accept strings like "5s" or integer seconds.
func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}

	if field.Type() == durationType {
		switch d := value.(type) {
		case string:
			return setFieldValueFromString(field, d)
		case int64:
			field.SetInt(int64(time.Duration(d) * time.Second))
			return nil
		default:
			return fmt.Errorf("expected duration, got %T", value)
		}
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		switch i := value.(type) {
		case int64:
			field.SetInt(i)
		case int:
			field.SetInt(int64(i))
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
		slice := make([]string, len(arr))
		for i, v := range arr {
			if s, strOk := v.(string); strOk {
				slice[i] = s
			}
		}
		field.Set(reflect.ValueOf(slice))
	}
	return nil
}

// setFieldValueFromString sets a field value from string (for env vars).
func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Parse comma-separated values for env vars
			parts := strings.Split(value, ",")
			slice := make([]string, len(parts))
			for i, part := range parts {
				slice[i] = strings.TrimSpace(part)
			}
			field.Set(reflect.ValueOf(slice))
		}
	}
	return nil
}

// DefaultLoggingConfig is info level text output with no module overrides.
func DefaultLoggingConfig() logging.Config {
	return logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
}

// LoadLoggingConfig loads logging configuration from a TOML config file.
// Returns default config if file doesn't exist or can't be parsed.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg, err := LoadLoggingConfigFile(configPath)
	if err != nil {
		return DefaultLoggingConfig()
	}
	return cfg
}

// LoadLoggingConfigFile reads the [logging] table. Module levels may be
// given inline ("router = 'debug'") or under [logging.modules].
// Unknown level names are an error so a bad edit does not silently
// reset levels during a live reload.
func LoadLoggingConfigFile(configPath string) (logging.Config, error) {
	cfg := DefaultLoggingConfig()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	var rawConfig struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &rawConfig); err != nil {
		return cfg, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	for key, value := range rawConfig.Logging {
		switch v := value.(type) {
		case string:
			switch key {
			case "level":
				cfg.Level = v
			case "format":
				cfg.Format = v
			default:
				cfg.Modules[key] = v
			}
		case map[string]any:
			if key != "modules" {
				continue
			}
			for module, level := range v {
				if s, ok := level.(string); ok {
					cfg.Modules[module] = s
				}
			}
		}
	}

	if !logging.ValidLevel(cfg.Level) {
		return cfg, fmt.Errorf("unknown log level %q", cfg.Level)
	}
	for module, level := range cfg.Modules {
		if !logging.ValidLevel(level) {
			return cfg, fmt.Errorf("unknown log level %q for module %s", level, module)
		}
	}
	if cfg.Format != "text" && cfg.Format != "json" {
		return cfg, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return cfg, nil
}
