// Package config provides configuration management for canonsync.
// It supports a YAML configuration file, environment variables, and sensible defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/klauern/canonsync/internal/logging"
	"github.com/klauern/canonsync/internal/sync"
	"github.com/klauern/canonsync/internal/util"
)

// Config represents the complete canonsync configuration.
type Config struct {
	// SourceRoot is the canonical directory every destination is synced from.
	// Paths can use ~ for the home directory.
	SourceRoot string `yaml:"source_root"`

	// Manifest replaces the built-in manifest when non-empty.
	Manifest []sync.Entry `yaml:"manifest,omitempty"`

	// Sync configures change detection and merge behavior
	Sync SyncConfig `yaml:"sync"`

	// Backup configures where snapshots are stored
	Backup BackupConfig `yaml:"backup"`

	// Log configures the activity log
	Log LogConfig `yaml:"log"`

	// Output configures display preferences
	Output OutputConfig `yaml:"output"`
}

// SyncConfig holds synchronization settings.
type SyncConfig struct {
	// Budget is the advisory duration of a run; exceeding it logs a warning
	Budget time.Duration `yaml:"budget"`
	// Exclude lists doublestar patterns ignored inside directory entries
	Exclude []string `yaml:"exclude,omitempty"`
	// ManagedKey is the section forced to the source by managed-section-overlay
	ManagedKey string `yaml:"managed_key"`
	// DependencyKeys are the maps merged by dependency-map-merge
	DependencyKeys []string `yaml:"dependency_keys"`
}

// BackupConfig holds backup settings.
type BackupConfig struct {
	// Dir is the snapshot directory, relative to the destination root unless absolute
	Dir string `yaml:"dir"`
}

// LogConfig holds activity log settings.
type LogConfig struct {
	// Path is the activity log file, relative to the destination root unless absolute
	Path string `yaml:"path"`
	// MaxLines bounds the activity log; older lines are dropped
	MaxLines int `yaml:"max_lines"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Color controls color output (auto, always, never)
	Color string `yaml:"color"`
	// Verbose enables verbose output
	Verbose bool `yaml:"verbose"`
}

// Color modes accepted by OutputConfig.Color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		SourceRoot: util.CanonicalSourcePath(),
		Sync: SyncConfig{
			Budget:         sync.DefaultBudget,
			Exclude:        []string{"**/.DS_Store"},
			ManagedKey:     sync.DefaultManagedKey,
			DependencyKeys: append([]string(nil), sync.DefaultDependencyKeys...),
		},
		Backup: BackupConfig{
			Dir: sync.DefaultBackupDir,
		},
		Log: LogConfig{
			Path:     ".canonsync/activity.log",
			MaxLines: logging.DefaultMaxLines,
		},
		Output: OutputConfig{
			Color:   ColorAuto,
			Verbose: false,
		},
	}
}

// configFileName is the name of the config file.
const configFileName = "config.yaml"

// FilePath returns the path to the config file.
func FilePath() string {
	return filepath.Join(util.CanonsyncHome(), configFileName)
}

// Load loads the configuration from file, merging with defaults.
// If the config file doesn't exist, returns default configuration.
func Load() (*Config, error) {
	cfg, err := LoadFromPath(FilePath())
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.applyEnvironment()
		return cfg, nil
	}
	return cfg, err
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path.
func (c *Config) SaveToPath(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by user
	return os.WriteFile(path, data, 0o644)
}

// Marshal returns the YAML form of the configuration.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SourceRoot) == "" {
		errs = append(errs, errors.New("source_root must be set"))
	}
	if c.Sync.Budget <= 0 {
		errs = append(errs, fmt.Errorf("sync.budget must be positive, got %s", c.Sync.Budget))
	}
	if c.Log.MaxLines <= 0 {
		errs = append(errs, fmt.Errorf("log.max_lines must be positive, got %d", c.Log.MaxLines))
	}
	switch c.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("output.color must be auto, always or never, got %q", c.Output.Color))
	}
	if len(c.Manifest) > 0 {
		if err := sync.Manifest(c.Manifest).Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EffectiveManifest returns the configured manifest, or the built-in one when
// none is configured.
func (c *Config) EffectiveManifest() sync.Manifest {
	if len(c.Manifest) > 0 {
		return sync.Manifest(c.Manifest)
	}
	return sync.DefaultManifest()
}

// ResolvedSourceRoot returns SourceRoot with ~ expanded, relative to baseDir.
func (c *Config) ResolvedSourceRoot(baseDir string) string {
	return util.ExpandPath(c.SourceRoot, baseDir)
}

// BackupDir returns the snapshot directory for a destination root.
func (c *Config) BackupDir(destRoot string) string {
	return util.ExpandPath(c.Backup.Dir, destRoot)
}

// LogPath returns the activity log path for a destination root.
func (c *Config) LogPath(destRoot string) string {
	return util.ExpandPath(c.Log.Path, destRoot)
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern CANONSYNC_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	if v := os.Getenv("CANONSYNC_SOURCE_ROOT"); v != "" {
		c.SourceRoot = v
	}

	// Sync settings
	if v := os.Getenv("CANONSYNC_SYNC_BUDGET"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Sync.Budget = d
		}
	}
	if v := os.Getenv("CANONSYNC_SYNC_EXCLUDE"); v != "" {
		c.Sync.Exclude = splitList(v)
	}
	if v := os.Getenv("CANONSYNC_SYNC_MANAGED_KEY"); v != "" {
		c.Sync.ManagedKey = v
	}
	if v := os.Getenv("CANONSYNC_SYNC_DEPENDENCY_KEYS"); v != "" {
		c.Sync.DependencyKeys = splitList(v)
	}

	// Backup settings
	if v := os.Getenv("CANONSYNC_BACKUP_DIR"); v != "" {
		c.Backup.Dir = v
	}

	// Log settings
	if v := os.Getenv("CANONSYNC_LOG_PATH"); v != "" {
		c.Log.Path = v
	}
	if v := os.Getenv("CANONSYNC_LOG_MAX_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Log.MaxLines = n
		}
	}

	// Output settings
	if v := os.Getenv("CANONSYNC_OUTPUT_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("CANONSYNC_OUTPUT_VERBOSE"); v != "" {
		c.Output.Verbose = parseBool(v)
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// splitList splits a comma-separated string into trimmed, non-empty items.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Exists returns true if a config file exists.
func Exists() bool {
	_, err := os.Stat(FilePath())
	return err == nil
}
