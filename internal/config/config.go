// Package config provides application configuration from command-line flags,
// environment variables, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/previewd/previewd/internal/watch"
)

// Config holds the serving session configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Serve  ServeConfig
	Watch  WatchConfig
	Build  BuildConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `validate:"required,oneof=debug info warn error"`
}

// ServeConfig holds HTTP serving configuration.
type ServeConfig struct {
	Root          string `validate:"required,dir"` // directory served to browsers
	Host          string `validate:"required"`
	Port          string `validate:"required,numeric"`
	ReadTimeout   time.Duration
	IdleTimeout   time.Duration
	AdvertiseMDNS bool
}

// WatchConfig holds change-detection configuration.
type WatchConfig struct {
	Backend  string `validate:"required,oneof=poll notify"`
	Interval time.Duration
}

// BuildConfig holds the optional build hook configuration. When Command is
// empty no hook runs.
type BuildConfig struct {
	Command string
	Dir     string
}

// LoadConfig loads configuration with precedence:
// 1. Command-line flags.
// 2. Environment variables.
// 3. .env file.
// 4. Defaults.
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	root := flag.String("root", "", "Directory to serve (default: current directory)")
	host := flag.String("host", "", "Address to bind (default: 127.0.0.1)")
	port := flag.String("port", "", "Port to listen on (default: 8080)")
	pollInterval := flag.String("poll-interval", "", "Change-detection poll interval (default: 500ms)")
	watchBackend := flag.String("watch-backend", "", "Change-detection backend: poll or notify (default: poll)")
	buildCmd := flag.String("build-cmd", "", "Command to run when a watched file changes, before reloading")
	buildDir := flag.String("build-dir", "", "Working directory for the build command (default: served root)")
	advertiseMDNS := flag.String("advertise-mdns", "", "Advertise the server via mDNS (default: false)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env if present; silently ignore when missing.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Serve: ServeConfig{
			Root:          getConfigValue(*root, "SERVE_ROOT", "."),
			Host:          getConfigValue(*host, "SERVE_HOST", "127.0.0.1"),
			Port:          getConfigValue(*port, "SERVE_PORT", "8080"),
			AdvertiseMDNS: getBoolConfigValue(*advertiseMDNS, "ADVERTISE_MDNS", false),
		},
		Watch: WatchConfig{
			Backend: getConfigValue(*watchBackend, "WATCH_BACKEND", "poll"),
		},
		Build: BuildConfig{
			Command: getConfigValue(*buildCmd, "BUILD_CMD", ""),
		},
	}

	var err error
	cfg.Watch.Interval, err = parseDurationValue(*pollInterval, "POLL_INTERVAL", "500ms")
	if err != nil {
		return nil, fmt.Errorf("invalid poll interval: %w", err)
	}
	cfg.Serve.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	cfg.Serve.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}

	expanded, err := expandPath(cfg.Serve.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid root: %w", err)
	}
	cfg.Serve.Root = expanded

	cfg.Build.Dir = getConfigValue(*buildDir, "BUILD_DIR", cfg.Serve.Root)
	cfg.Build.Dir, err = expandPath(cfg.Build.Dir)
	if err != nil {
		return nil, fmt.Errorf("invalid build dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	// The poll floor guards against a sweep that never sleeps.
	if c.Watch.Interval < watch.MinInterval {
		return fmt.Errorf("poll interval %s below minimum %s", c.Watch.Interval, watch.MinInterval)
	}
	return nil
}

// expandPath expands a leading ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abs
	}
	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or
// default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue reads a bool with the same precedence. "true", "1" and
// "yes" (case-insensitive) count as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	v := getConfigValue(flagValue, envKey, "")
	if v == "" {
		return defaultValue
	}
	v = strings.ToLower(v)
	return v == "true" || v == "1" || v == "yes"
}

// parseDurationValue reads a duration with the same precedence.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	v := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", v, err)
	}
	return d, nil
}

// loadEnvFile loads KEY=value lines into the environment. Existing variables
// win over file entries.
func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}
