package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible
// defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyHubDefaults(&cfg.Hub)
	applyListsDefaults(&cfg.Lists)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets listener defaults. 411 is the port clients
// try first.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 411
	}
	if cfg.UDPPort == 0 {
		cfg.UDPPort = cfg.Port
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyHubDefaults sets hub runtime defaults.
func applyHubDefaults(cfg *HubConfig) {
	if cfg.Name == "" {
		cfg.Name = "FBOpenDCHub"
	}
	if cfg.MaxUsers == 0 {
		cfg.MaxUsers = 500
	}
	if cfg.UsersPerFork == 0 {
		cfg.UsersPerFork = 100
	}
	if cfg.KickBantime == 0 {
		cfg.KickBantime = 5
	}
	if cfg.SearchSpamTime == 0 {
		cfg.SearchSpamTime = 15
	}
	if cfg.MaxDescLen == 0 {
		cfg.MaxDescLen = 100
	}
	if cfg.MaxEmailLen == 0 {
		cfg.MaxEmailLen = 50
	}
}

// applyListsDefaults sets list storage defaults.
func applyListsDefaults(cfg *ListsConfig) {
	if cfg.Dir == "" {
		cfg.Dir = defaultDataDir()
	}
	if cfg.Archive.Interval == 0 {
		cfg.Archive.Interval = time.Hour
	}
	if cfg.Archive.KeyPrefix == "" {
		cfg.Archive.KeyPrefix = "fbhub/"
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// defaultDataDir places the list database under XDG_DATA_HOME, with
// ~/.local/share as the conventional fallback.
func defaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "fbhub", "lists")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "fbhub-lists"
	}
	return filepath.Join(home, ".local", "share", "fbhub", "lists")
}
