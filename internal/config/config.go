// Package config handles configuration loading, validation, and management for justcalld.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration. This is the daemon's
// own config file; user-facing preferences and call targets live in the
// settings document, which the front end shares.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Conference configuration for the meeting surface.
	Conference ConferenceConfig `toml:"conference" json:"conference" yaml:"conference"`

	// Settings configuration for the settings document.
	Settings SettingsConfig `toml:"settings" json:"settings" yaml:"settings"`

	// Hotkeys configuration for global shortcuts.
	Hotkeys HotkeysConfig `toml:"hotkeys" json:"hotkeys" yaml:"hotkeys"`

	// History configuration for the call log.
	History HistoryConfig `toml:"history" json:"history" yaml:"history"`

	// Notifications configuration.
	Notifications NotificationsConfig `toml:"notifications" json:"notifications" yaml:"notifications"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// IPC configuration for the control socket.
	IPC IPCConfig `toml:"ipc" json:"ipc" yaml:"ipc"`
}

// ConferenceConfig holds meeting surface configuration.
type ConferenceConfig struct {
	// Host is the conference server meeting URLs point at.
	Host string `toml:"host" json:"host" yaml:"host"`
}

// SettingsConfig holds settings document configuration.
type SettingsConfig struct {
	// Path is the location of the settings JSON document.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// HotkeysConfig holds global shortcut configuration.
type HotkeysConfig struct {
	// Enabled determines whether global shortcuts are registered at all.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`
}

// HistoryConfig holds call log configuration.
type HistoryConfig struct {
	// Enabled determines whether call sessions are logged.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the location of the call log database.
	Path string `toml:"path" json:"path" yaml:"path"`

	// RetentionDays is how long call log entries are kept.
	// Set to 0 to keep them forever.
	RetentionDays int `toml:"retention_days" json:"retention_days" yaml:"retention_days"`
}

// NotificationsConfig holds desktop notification configuration.
type NotificationsConfig struct {
	// Enabled determines whether the daemon talks to the desktop
	// notification service. The per-user show_notifications preference
	// in the settings document gates delivery on top of this.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr", "file", or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output includes "file").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// IPCConfig holds control socket configuration.
type IPCConfig struct {
	// Enabled determines whether the IPC server is started.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// SocketPath is the path to the Unix socket.
	SocketPath string `toml:"socket_path" json:"socket_path" yaml:"socket_path"`

	// MaxConnections is the maximum concurrent client connections.
	MaxConnections int `toml:"max_connections" json:"max_connections" yaml:"max_connections"`

	// TimeoutSec is the connection read timeout.
	TimeoutSec int `toml:"timeout_sec" json:"timeout_sec" yaml:"timeout_sec"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dataDir := DataDir()

	return &Config{
		Version: Version,
		Conference: ConferenceConfig{
			Host: "meet.jit.si",
		},
		Settings: SettingsConfig{
			Path: filepath.Join(ConfigDir(), "settings.json"),
		},
		Hotkeys: HotkeysConfig{
			Enabled: true,
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          filepath.Join(dataDir, "history.db"),
			RetentionDays: 90,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "stderr",
			FilePath: filepath.Join(dataDir, "justcalld.log"),
		},
		IPC: IPCConfig{
			Enabled:        true,
			SocketPath:     defaultSocketPath(),
			MaxConnections: 10,
			TimeoutSec:     30,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Conference.Host == "" {
		return fmt.Errorf("conference.host must not be empty")
	}
	if c.Settings.Path == "" {
		return fmt.Errorf("settings.path must not be empty")
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}
	if c.IPC.Enabled && c.IPC.SocketPath == "" {
		return fmt.Errorf("ipc.socket_path must not be empty when ipc is enabled")
	}
	if c.IPC.MaxConnections <= 0 {
		return fmt.Errorf("ipc.max_connections must be positive")
	}
	if c.IPC.TimeoutSec <= 0 {
		return fmt.Errorf("ipc.timeout_sec must be positive")
	}
	return nil
}

// EnsureDirectories creates all necessary directories for the daemon.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Settings.Path),
		filepath.Dir(c.History.Path),
		filepath.Dir(c.Logging.FilePath),
	}
	if c.IPC.SocketPath != "" {
		dirs = append(dirs, filepath.Dir(c.IPC.SocketPath))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Variables are prefixed with JUSTCALL_.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("JUSTCALL_CONFERENCE_HOST"); v != "" {
		c.Conference.Host = v
	}
	if v := os.Getenv("JUSTCALL_SETTINGS_PATH"); v != "" {
		c.Settings.Path = v
	}
	if v := os.Getenv("JUSTCALL_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("JUSTCALL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("JUSTCALL_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("JUSTCALL_SOCKET_PATH"); v != "" {
		c.IPC.SocketPath = v
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// DataDir returns the base justcall data directory, honoring the
// JUSTCALL_DATA_DIR environment override.
func DataDir() string {
	if envDir := os.Getenv("JUSTCALL_DATA_DIR"); envDir != "" {
		return envDir
	}
	return platformDataDir()
}

// ConfigDir returns the justcall config directory.
func ConfigDir() string {
	if envDir := os.Getenv("JUSTCALL_CONFIG_DIR"); envDir != "" {
		return envDir
	}
	return platformConfigDir()
}

func defaultSocketPath() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "justcall", "justcalld.sock")
	case "linux":
		if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
			return filepath.Join(xdgRuntime, "justcalld.sock")
		}
		return "/tmp/justcalld.sock"
	default:
		return "/tmp/justcalld.sock"
	}
}
