package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete hub configuration.
//
// This structure captures all configurable aspects of the hub server
// including:
//   - Logging configuration
//   - Server listeners and shutdown behavior
//   - Hub runtime settings (name, caps, login policy)
//   - Persisted list storage and its optional off-host archive
//   - Metrics exposure
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (FBHUB_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains the listeners and lifecycle settings
	Server ServerConfig `mapstructure:"server"`

	// Hub contains the runtime hub settings an admin can change live
	Hub HubConfig `mapstructure:"hub"`

	// Lists configures persisted list storage
	Lists ListsConfig `mapstructure:"lists"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains the listeners and lifecycle settings.
type ServerConfig struct {
	// Host is the address the listeners bind to
	Host string `mapstructure:"host"`

	// Port is the public client port
	Port int `mapstructure:"port" validate:"required,gt=0,lte=65535"`

	// AdminPort serves the administrative connection, 0 disables it
	AdminPort int `mapstructure:"admin_port" validate:"gte=0,lte=65535"`

	// UDPPort carries the linked-hub channel, 0 disables it
	UDPPort int `mapstructure:"udp_port" validate:"gte=0,lte=65535"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// HubConfig holds the hub settings. Everything here can also be changed
// at runtime through the administrative $Set record.
type HubConfig struct {
	// Name is the hub name announced to clients
	Name string `mapstructure:"name" validate:"required,max=25"`

	// Description is shown in hub lists
	Description string `mapstructure:"description"`

	// Hostname is the public address clients are told about
	Hostname string `mapstructure:"hostname"`

	// MaxUsers caps logged-in users across all workers
	MaxUsers int `mapstructure:"max_users" validate:"gte=0"`

	// UsersPerFork is how many users one worker serves before the
	// listening role moves on
	UsersPerFork int `mapstructure:"users_per_fork" validate:"gt=0"`

	// MinShare is the minimum share size in bytes, 0 for no minimum
	MinShare int64 `mapstructure:"min_share" validate:"gte=0"`

	// RedirOnMinShare redirects under-sharing users instead of warning
	RedirOnMinShare bool `mapstructure:"redir_on_min_share"`

	// RedirectHost receives redirected users
	RedirectHost string `mapstructure:"redirect_host"`

	// BanOverridesAllow makes a ban win over an allow-list match
	BanOverridesAllow bool `mapstructure:"ban_overrides_allow"`

	// CheckKey verifies the lock challenge answer
	CheckKey bool `mapstructure:"check_key"`

	// RegisteredOnly refuses unregistered nicks
	RegisteredOnly bool `mapstructure:"registered_only"`

	// KickBantime is how many minutes a kicked user stays banned
	KickBantime int `mapstructure:"kick_bantime" validate:"gte=0"`

	// SearchSpamTime is the per-user minimum seconds between searches
	SearchSpamTime int `mapstructure:"searchspam_time" validate:"gte=0"`

	// MaxDescLen and MaxEmailLen cap profile fields
	MaxDescLen  int `mapstructure:"max_desc_len" validate:"gte=0"`
	MaxEmailLen int `mapstructure:"max_email_len" validate:"gte=0"`

	// MinVersion is the lowest accepted client version string
	MinVersion string `mapstructure:"min_version"`

	// AdminPass guards the administrative port
	AdminPass string `mapstructure:"admin_pass"`

	// LinkPass authenticates linked hubs
	LinkPass string `mapstructure:"link_pass"`

	// DefaultPass is used when registering users without a password
	DefaultPass string `mapstructure:"default_pass"`
}

// ListsConfig configures persisted list storage.
type ListsConfig struct {
	// Dir is the on-disk database directory
	Dir string `mapstructure:"dir"`

	// InMemory keeps the lists in memory only, for testing
	InMemory bool `mapstructure:"in_memory"`

	// Archive uploads periodic list snapshots to object storage
	Archive ArchiveConfig `mapstructure:"archive"`
}

// ArchiveConfig configures the S3 list-snapshot uploader.
type ArchiveConfig struct {
	// Enabled turns archiving on
	Enabled bool `mapstructure:"enabled"`

	// Bucket receives the snapshots
	Bucket string `mapstructure:"bucket"`

	// KeyPrefix is prepended to snapshot object keys
	KeyPrefix string `mapstructure:"key_prefix"`

	// Region is the bucket region
	Region string `mapstructure:"region"`

	// Endpoint overrides the S3 endpoint (MinIO, Localstack)
	Endpoint string `mapstructure:"endpoint"`

	// AccessKeyID and SecretAccessKey select static credentials;
	// leave empty for the default credential chain
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// Interval is how often a snapshot is uploaded
	Interval time.Duration `mapstructure:"interval"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns metric collection and the HTTP endpoint on
	Enabled bool `mapstructure:"enabled"`

	// Port serves the /metrics endpoint
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FBHUB_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the FBHUB_ prefix and underscores
	// Example: FBHUB_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("FBHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans that default to on; a zero value after unmarshal cannot
	// tell "unset" from "false", so these live here.
	v.SetDefault("hub.check_key", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "fbhub")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "fbhub")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// Dump renders the configuration as YAML with secrets masked, for
// administrative inspection and startup logging.
func (c *Config) Dump() (string, error) {
	masked := *c
	if masked.Hub.AdminPass != "" {
		masked.Hub.AdminPass = "********"
	}
	if masked.Hub.LinkPass != "" {
		masked.Hub.LinkPass = "********"
	}
	if masked.Hub.DefaultPass != "" {
		masked.Hub.DefaultPass = "********"
	}
	if masked.Lists.Archive.SecretAccessKey != "" {
		masked.Lists.Archive.SecretAccessKey = "********"
	}

	out, err := yaml.Marshal(&masked)
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return string(out), nil
}
