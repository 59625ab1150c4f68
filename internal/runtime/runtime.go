package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rzbill/flodiag/internal/archive"
	cfgpkg "github.com/rzbill/flodiag/internal/config"
	"github.com/rzbill/flodiag/internal/refresher"
	"github.com/rzbill/flodiag/internal/selfdiag"
	pebblestore "github.com/rzbill/flodiag/internal/storage/pebble"
	logpkg "github.com/rzbill/flodiag/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	// ConfigPath is the diagnostics configuration file. Empty searches the
	// working and executable directories and falls back to the first
	// default name in the working directory.
	ConfigPath string
	// DataDir holds the archive catalog and, by default, the archive.
	DataDir string
	Fsync   pebblestore.FsyncMode
	// Logger is the process logger. Optional.
	Logger logpkg.Logger
	// PollInterval overrides the configuration poll interval.
	PollInterval time.Duration
}

// FileStats counts activity on the diagnostics file.
type FileStats struct {
	BytesWritten uint64 `json:"bytesWritten"`
	Wraps        uint64 `json:"wraps"`
}

type fileMetrics struct {
	written atomic.Uint64
	wraps   atomic.Uint64
}

func (m *fileMetrics) ObserveWrite(n int) { m.written.Add(uint64(n)) }
func (m *fileMetrics) ObserveWrap()       { m.wraps.Add(1) }

// Runtime wires config, the diagnostics listener, the refresher and the
// archive for one process.
type Runtime struct {
	db         *pebblestore.DB
	archive    *archive.Archive
	refresher  *refresher.Refresher
	listener   *selfdiag.Listener
	logger     logpkg.Logger
	diagLogger logpkg.Logger
	configPath string
	metrics    *fileMetrics
}

// ResolveConfigPath returns path, a discovered config file, or the default
// name in the working directory.
func ResolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if found := cfgpkg.FindConfigFile(); found != "" {
		return found
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return filepath.Join(wd, cfgpkg.ConfigFileNames[0])
}

// Open builds the runtime. Diagnostics stay off until Start applies a
// configuration with a LogDirectory.
func Open(opts Options) (*Runtime, error) {
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(&logpkg.NullOutput{}))
	}
	configPath := ResolveConfigPath(opts.ConfigPath)

	cfg, err := cfgpkg.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = cfgpkg.Default()
	}
	cfgpkg.FromEnv(&cfg)

	db, err := pebblestore.Open(pebblestore.Options{DataDir: filepath.Join(opts.DataDir, "catalog"), Fsync: opts.Fsync})
	if err != nil {
		return nil, fmt.Errorf("runtime: open catalog: %w", err)
	}
	archiveDir := cfg.Archive.Directory
	if archiveDir == "" {
		archiveDir = filepath.Join(opts.DataDir, "archive")
	}
	arch, err := archive.Open(archive.Options{
		Dir:       archiveDir,
		DB:        db,
		Retention: cfg.Retention(),
		Schedule:  cfg.Archive.SweepSchedule,
		Logger:    logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	metrics := &fileMetrics{}
	ref, err := refresher.New(refresher.Options{
		ConfigPath:   configPath,
		Archiver:     arch,
		Logger:       logger,
		PollInterval: opts.PollInterval,
		Metrics:      metrics,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	listener, err := selfdiag.NewListener(cfg.Level(), ref)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	ref.SetListener(listener)

	return &Runtime{
		db:         db,
		archive:    arch,
		refresher:  ref,
		listener:   listener,
		logger:     logger,
		diagLogger: logpkg.NewLogger(logpkg.WithLevel(logpkg.DebugLevel), logpkg.WithOutput(selfdiag.NewLogOutput(listener))),
		configPath: configPath,
		metrics:    metrics,
	}, nil
}

// Start applies the configuration, follows it, and schedules archive sweeps.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.archive.Start(); err != nil {
		return err
	}
	return r.refresher.Start(ctx)
}

// Close stops the refresher and sweeps and closes the catalog.
func (r *Runtime) Close() error {
	var errs []error
	if r.refresher != nil {
		errs = append(errs, r.refresher.Close())
	}
	if r.archive != nil {
		r.archive.Stop()
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
	}
	return errors.Join(errs...)
}

// CheckHealth verifies the catalog is readable.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.db == nil {
		return errors.New("db not open")
	}
	if _, err := r.db.Get([]byte("health")); err != nil && !errors.Is(err, pebblestore.ErrNotFound) {
		return err
	}
	return nil
}

// Emit writes one event through the listener.
func (r *Runtime) Emit(message string, params ...any) {
	r.listener.WriteEvent(message, params)
}

// FileStats reports diagnostics file counters.
func (r *Runtime) FileStats() FileStats {
	return FileStats{BytesWritten: r.metrics.written.Load(), Wraps: r.metrics.wraps.Load()}
}

// Listener returns the diagnostics listener.
func (r *Runtime) Listener() *selfdiag.Listener { return r.listener }

// Refresher returns the file authority.
func (r *Runtime) Refresher() *refresher.Refresher { return r.refresher }

// Archive returns the archive of retired files.
func (r *Runtime) Archive() *archive.Archive { return r.archive }

// Logger returns the process logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }

// DiagnosticsLogger returns a logger whose entries become diagnostics
// events, gated by the listener level.
func (r *Runtime) DiagnosticsLogger() logpkg.Logger { return r.diagLogger }

// ConfigPath returns the followed configuration file.
func (r *Runtime) ConfigPath() string { return r.configPath }

// DB exposes the catalog store (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }
