package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database      DatabaseConfig      `toml:"database"`
	Downloads     DownloadsConfig     `toml:"downloads"`
	Feeds         FeedsConfig         `toml:"feeds"`
	Logging       LoggingConfig       `toml:"logging"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// DownloadsConfig controls the episode download worker pool.
type DownloadsConfig struct {
	Directory      string  `toml:"directory"`
	Workers        int     `toml:"workers"`
	RateLimit      float64 `toml:"rate_limit"`
	UserAgent      string  `toml:"user_agent"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Timeout returns the per-download timeout.
func (d DownloadsConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// FeedsConfig controls feed fetching.
type FeedsConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout returns the per-feed fetch timeout.
func (f FeedsConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// LoggingConfig contains the log level and an optional log file.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// NotificationsConfig groups the report channels. Unset channels are disabled.
type NotificationsConfig struct {
	Ntfy  NtfyConfig  `toml:"ntfy"`
	Email EmailConfig `toml:"email"`
}

// NtfyConfig describes an ntfy topic.
type NtfyConfig struct {
	Server string `toml:"server"`
	Topic  string `toml:"topic"`
}

// Enabled reports whether a topic is configured.
func (n NtfyConfig) Enabled() bool {
	return strings.TrimSpace(n.Topic) != ""
}

// EmailConfig contains SMTP settings for the download report.
type EmailConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Sender    string `toml:"sender"`
	Password  string `toml:"password"`
	Recipient string `toml:"recipient"`
}

// Enabled reports whether host, sender and recipient are all set.
func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Sender != "" && e.Recipient != ""
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults and "~" is expanded in path values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	if err := config.normalize(); err != nil {
		panic(fmt.Sprintf("invalid embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ResolveConfigPath returns path when it exists, otherwise the per-user location under
// $XDG_CONFIG_HOME (or the platform equivalent). The original path is returned when neither exists.
func ResolveConfigPath(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return path
	}
	candidate := filepath.Join(dir, "podd", "config.toml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return path
}

// ExpandPath replaces a leading "~" with the current user's home directory.
func ExpandPath(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

func (c *Config) normalize() error {
	var err error
	if c.Database.Path, err = ExpandPath(c.Database.Path); err != nil {
		return err
	}
	if c.Downloads.Directory, err = ExpandPath(c.Downloads.Directory); err != nil {
		return err
	}
	if c.Logging.File, err = ExpandPath(c.Logging.File); err != nil {
		return err
	}

	switch {
	case c.Database.Path == "":
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	case c.Downloads.Workers < 1:
		return fmt.Errorf("%w: downloads.workers must be at least 1", ErrInvalidConfig)
	case c.Downloads.RateLimit < 0:
		return fmt.Errorf("%w: downloads.rate_limit must not be negative", ErrInvalidConfig)
	}

	if c.Feeds.TimeoutSeconds <= 0 {
		c.Feeds.TimeoutSeconds = 30
	}
	if c.Downloads.TimeoutSeconds <= 0 {
		c.Downloads.TimeoutSeconds = 600
	}
	if c.Notifications.Email.Port == 0 {
		c.Notifications.Email.Port = 587
	}
	return nil
}
