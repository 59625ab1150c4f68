package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/muhammadmuzzammil1998/jsonc"
	"gopkg.in/yaml.v3"

	logpkg "github.com/rzbill/flodiag/pkg/log"
)

// File size limits in KiB.
const (
	MinFileSizeKB = 1024
	MaxFileSizeKB = 128 * 1024
)

// ErrNoLogDirectory is returned by Validate when LogDirectory is empty.
var ErrNoLogDirectory = errors.New("config: LogDirectory is required")

// Config is the self-diagnostics configuration loaded from file/env.
type Config struct {
	// LogDirectory is where the diagnostics file is created.
	LogDirectory string `json:"LogDirectory" yaml:"logDirectory"`
	// FileSizeKB is the capacity of the circular file in KiB. Values outside
	// [MinFileSizeKB, MaxFileSizeKB] are clamped.
	FileSizeKB int `json:"FileSize" yaml:"fileSize"`
	// LogLevel is the lowest level written (verbose..critical or debug..fatal).
	LogLevel string `json:"LogLevel" yaml:"logLevel"`
	// PollIntervalSeconds is how often the config file is re-read when file
	// notifications are unavailable or missed.
	PollIntervalSeconds int `json:"PollIntervalSeconds" yaml:"pollIntervalSeconds"`
	// Archive controls what happens to retired diagnostics files.
	Archive ArchiveConfig `json:"Archive" yaml:"archive"`
}

// ArchiveConfig captures archive and retention settings.
type ArchiveConfig struct {
	// Directory receives compressed retired files. Empty means "archive"
	// under the data directory.
	Directory string `json:"Directory" yaml:"directory"`
	// RetentionHours bounds how long archived files are kept. 0 keeps them.
	RetentionHours int `json:"RetentionHours" yaml:"retentionHours"`
	// SweepSchedule is a cron spec for retention sweeps.
	SweepSchedule string `json:"SweepSchedule" yaml:"sweepSchedule"`
}

// Default returns built-in defaults. LogDirectory is intentionally empty:
// diagnostics stay off until a directory is configured.
func Default() Config {
	return Config{
		FileSizeKB:          MinFileSizeKB,
		LogLevel:            "error",
		PollIntervalSeconds: 10,
		Archive: ArchiveConfig{
			RetentionHours: 7 * 24,
			SweepSchedule:  "@hourly",
		},
	}
}

// Load reads configuration from a JSON (comments allowed) or YAML file, by
// extension. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(b), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks required fields, clamps the file size and resolves the
// log directory to an absolute path.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LogDirectory) == "" {
		return ErrNoLogDirectory
	}
	if _, err := logpkg.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if abs, err := filepath.Abs(c.LogDirectory); err == nil {
		c.LogDirectory = abs
	}
	c.FileSizeKB = min(max(c.FileSizeKB, MinFileSizeKB), MaxFileSizeKB)
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = Default().PollIntervalSeconds
	}
	return nil
}

// Level returns the parsed LogLevel, defaulting to error.
func (c Config) Level() logpkg.Level {
	lvl, err := logpkg.ParseLevel(c.LogLevel)
	if err != nil {
		return logpkg.ErrorLevel
	}
	return lvl
}

// FileSizeBytes returns the file capacity in bytes.
func (c Config) FileSizeBytes() int { return c.FileSizeKB * 1024 }

// PollInterval returns the poll period.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Retention returns the archive retention period.
func (c Config) Retention() time.Duration {
	return time.Duration(c.Archive.RetentionHours) * time.Hour
}
