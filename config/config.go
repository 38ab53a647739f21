// Package config carries the runtime configuration of the in-memory
// filesystem engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/memfs-go/memfs/internal/util"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	// DefaultCaseInsensitive keeps name comparison case-sensitive, the
	// conventional POSIX behavior.
	DefaultCaseInsensitive = false

	// DefaultWorkingDir is the directory relative paths resolve against.
	DefaultWorkingDir = "/"

	// DefaultTempNameAttempts bounds the retry loop when a generated
	// temp-file name collides with an existing entry.
	DefaultTempNameAttempts = 100
)

// Config contains runtime configuration values for the filesystem engine.
type Config struct {
	CaseInsensitive  bool          // Whether name comparison folds case (Default false)
	WorkingDir       string        // Directory relative paths resolve against (Default "/")
	TempNameAttempts int           // Max collision retries for temp-file names (Default 100)
	LogLvl           util.LogLevel // Engine log level (Default info)
}

// ConfigOverride uses pointer fields to distinguish between unset and
// zero values when loading partial configuration. See [Config] for
// field descriptions.
type ConfigOverride struct {
	CaseInsensitive  *bool          `yaml:"case_insensitive,omitempty" json:"case_insensitive,omitempty"`
	WorkingDir       *string        `yaml:"working_dir,omitempty" json:"working_dir,omitempty"`
	TempNameAttempts *int           `yaml:"temp_name_attempts,omitempty" json:"temp_name_attempts,omitempty"`
	LogLvl           *util.LogLevel `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		CaseInsensitive:  DefaultCaseInsensitive,
		WorkingDir:       DefaultWorkingDir,
		TempNameAttempts: DefaultTempNameAttempts,
		LogLvl:           util.InfoLevel,
	}
}

// NewConfig creates a Config from defaults with the override applied on
// top. A nil override yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.CaseInsensitive != nil {
		c.CaseInsensitive = *override.CaseInsensitive
	}
	if override.WorkingDir != nil {
		c.WorkingDir = *override.WorkingDir
	}
	if override.TempNameAttempts != nil {
		c.TempNameAttempts = *override.TempNameAttempts
	}
	if override.LogLvl != nil {
		c.LogLvl = *override.LogLvl
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
