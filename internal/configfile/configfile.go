// Package configfile reads and writes the deployment configuration kept
// in the lockit data directory: a JSON metadata file describing the
// backends, plus an optional config.yaml for hand-edited overrides.
package configfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the machine-written metadata file.
	ConfigFileName = "metadata.json"

	// YAMLFileName is the optional hand-edited override file. Values set
	// here win over metadata.json.
	YAMLFileName = "config.yaml"

	// DefaultDirName is the data directory created by `lockit init`.
	DefaultDirName = ".lockit"
)

// DefaultTrashRetentionDays is used when the config does not set one.
const DefaultTrashRetentionDays = 30

// Config locates the storage backends for one deployment.
type Config struct {
	// Backend selects the primary store: "postgres" or "sqlite".
	Backend string `json:"backend" yaml:"backend"`

	// PostgresDSN is the online connection string (postgres backend).
	PostgresDSN string `json:"postgres_dsn,omitempty" yaml:"postgres_dsn"`

	// ServerDB is the embedded server database filename, relative to the
	// data directory (sqlite backend).
	ServerDB string `json:"server_db,omitempty" yaml:"server_db"`

	// OfflineDB is the offline embedded database filename, relative to
	// the data directory.
	OfflineDB string `json:"offline_db,omitempty" yaml:"offline_db"`

	// TokenPrefix marks offline-session tokens. Empty means the built-in
	// default.
	TokenPrefix string `json:"token_prefix,omitempty" yaml:"token_prefix"`

	// TrashRetentionDays is the soft-delete retention window. 0 means the
	// 30-day default.
	TrashRetentionDays int `json:"trash_retention_days,omitempty" yaml:"trash_retention_days"`

	// GCIntervalMinutes is how often the trash gc daemon sweeps expired
	// entries. 0 means the 60-minute default.
	GCIntervalMinutes int `json:"gc_interval_minutes,omitempty" yaml:"gc_interval_minutes"`

	// LogFile receives rotated server logs when set. Empty logs to
	// stderr only.
	LogFile string `json:"log_file,omitempty" yaml:"log_file"`
}

// DefaultConfig is the configuration written by `lockit init` with no
// flags: embedded server store, no postgres.
func DefaultConfig() *Config {
	return &Config{
		Backend:   "sqlite",
		ServerDB:  "server.db",
		OfflineDB: "offline.db",
	}
}

// ConfigPath returns the metadata file path inside dir.
func ConfigPath(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

// Load reads the config from dir: metadata.json first, then config.yaml
// overrides. A missing directory or metadata file returns (nil, nil) so
// callers can distinguish "not initialized" from a broken file.
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(dir)) // #nosec G304 - controlled path from config
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := applyYAML(dir, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyYAML merges config.yaml over cfg in place. The file is optional.
func applyYAML(dir string, cfg *Config) error {
	data, err := os.ReadFile(filepath.Join(dir, YAMLFileName)) // #nosec G304 - controlled path from config
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading yaml config: %w", err)
	}

	var over Config
	if err := yaml.Unmarshal(data, &over); err != nil {
		return fmt.Errorf("parsing yaml config: %w", err)
	}
	if over.Backend != "" {
		cfg.Backend = over.Backend
	}
	if over.PostgresDSN != "" {
		cfg.PostgresDSN = over.PostgresDSN
	}
	if over.ServerDB != "" {
		cfg.ServerDB = over.ServerDB
	}
	if over.OfflineDB != "" {
		cfg.OfflineDB = over.OfflineDB
	}
	if over.TokenPrefix != "" {
		cfg.TokenPrefix = over.TokenPrefix
	}
	if over.TrashRetentionDays != 0 {
		cfg.TrashRetentionDays = over.TrashRetentionDays
	}
	if over.GCIntervalMinutes != 0 {
		cfg.GCIntervalMinutes = over.GCIntervalMinutes
	}
	if over.LogFile != "" {
		cfg.LogFile = over.LogFile
	}
	return nil
}

// Save writes the metadata file, creating dir if needed.
func (c *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(dir), data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ServerDBPath resolves the embedded server database path against dir.
func (c *Config) ServerDBPath(dir string) string {
	name := c.ServerDB
	if name == "" {
		name = "server.db"
	}
	return filepath.Join(dir, name)
}

// OfflineDBPath resolves the offline database path against dir.
func (c *Config) OfflineDBPath(dir string) string {
	name := c.OfflineDB
	if name == "" {
		name = "offline.db"
	}
	return filepath.Join(dir, name)
}

// GetTrashRetentionDays returns the configured retention window, or the
// default when unset.
func (c *Config) GetTrashRetentionDays() int {
	if c.TrashRetentionDays <= 0 {
		return DefaultTrashRetentionDays
	}
	return c.TrashRetentionDays
}

// GetGCInterval returns the gc daemon sweep interval, defaulting to one
// hour.
func (c *Config) GetGCInterval() time.Duration {
	if c.GCIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.GCIntervalMinutes) * time.Minute
}

// Validate reports configuration the factory would reject.
func (c *Config) Validate() error {
	switch c.Backend {
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("backend %q requires postgres_dsn", c.Backend)
		}
	case "sqlite":
	case "":
		return fmt.Errorf("backend is not set")
	default:
		return fmt.Errorf("unknown backend %q (supported: postgres, sqlite)", c.Backend)
	}
	return nil
}
