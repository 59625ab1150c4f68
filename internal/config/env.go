package config

import (
	"os"
	"strconv"
)

// FromEnv overlays FLODIAG_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("FLODIAG_LOG_DIRECTORY"); v != "" {
		cfg.LogDirectory = v
	}
	if v := os.Getenv("FLODIAG_FILE_SIZE_KB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FileSizeKB = n
		}
	}
	if v := os.Getenv("FLODIAG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLODIAG_POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PollIntervalSeconds = n
		}
	}
	if v := os.Getenv("FLODIAG_ARCHIVE_DIRECTORY"); v != "" {
		cfg.Archive.Directory = v
	}
	if v := os.Getenv("FLODIAG_ARCHIVE_RETENTION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Archive.RetentionHours = n
		}
	}
	if v := os.Getenv("FLODIAG_ARCHIVE_SWEEP_SCHEDULE"); v != "" {
		cfg.Archive.SweepSchedule = v
	}
}
