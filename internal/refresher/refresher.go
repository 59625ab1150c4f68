package refresher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	ps "github.com/mitchellh/go-ps"

	"github.com/rzbill/flodiag/internal/archive"
	"github.com/rzbill/flodiag/internal/config"
	"github.com/rzbill/flodiag/internal/mmapfile"
	"github.com/rzbill/flodiag/internal/selfdiag"
	logpkg "github.com/rzbill/flodiag/pkg/log"
)

// ErrDisabled is returned by Snapshot while no diagnostics file is open.
var ErrDisabled = errors.New("refresher: diagnostics disabled")

// Archiver takes ownership of files the refresher stops writing to.
type Archiver interface {
	Retire(path string) (archive.Entry, error)
}

// Options configures a Refresher.
type Options struct {
	// ConfigPath is the configuration file to follow.
	ConfigPath string
	// Listener gets its level updated on every reload. Optional.
	Listener *selfdiag.Listener
	// Archiver receives replaced files. Without one they stay on disk.
	Archiver Archiver
	// Logger receives refresh outcomes. Optional.
	Logger logpkg.Logger
	// PollInterval overrides the interval from the configuration.
	PollInterval time.Duration
	// ProcessName overrides the executable name used in the file name.
	ProcessName string
	// Metrics observes writes to the mapped file. Optional.
	Metrics mmapfile.MetricsHook
}

// Refresher implements selfdiag.Authority over a reloadable file.
type Refresher struct {
	opts   Options
	logger logpkg.Logger
	name   string

	mu   sync.RWMutex
	file *mmapfile.File
	cfg  config.Config

	reloadMu sync.Mutex

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Refresher. Nothing is opened until Start or Reload.
func New(opts Options) (*Refresher, error) {
	if opts.ConfigPath == "" {
		return nil, errors.New("refresher: Options.ConfigPath is required")
	}
	abs, err := filepath.Abs(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	opts.ConfigPath = abs
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(&logpkg.NullOutput{}))
	}
	name := opts.ProcessName
	if name == "" {
		name = processName()
	}
	return &Refresher{
		opts:   opts,
		logger: logger.WithComponent("refresher"),
		name:   name,
	}, nil
}

// processName resolves the running executable's name without extension.
func processName() string {
	exe := ""
	if p, err := ps.FindProcess(os.Getpid()); err == nil && p != nil {
		exe = p.Executable()
	}
	if exe == "" {
		exe = filepath.Base(os.Args[0])
	}
	return strings.TrimSuffix(exe, filepath.Ext(exe))
}

// FileName returns the diagnostics file name for this process.
func (r *Refresher) FileName() string {
	return r.name + "." + strconv.Itoa(os.Getpid()) + ".log"
}

// SetListener sets the listener whose level follows the configuration.
func (r *Refresher) SetListener(l *selfdiag.Listener) {
	r.mu.Lock()
	r.opts.Listener = l
	cfg, enabled := r.cfg, r.file != nil
	r.mu.Unlock()
	if l != nil && enabled {
		l.SetLevel(cfg.Level())
	}
}

// TryGetWindow grants a window on the current file, or refuses when
// diagnostics are disabled.
func (r *Refresher) TryGetWindow(byteCount int) (selfdiag.Window, bool) {
	r.mu.RLock()
	f := r.file
	r.mu.RUnlock()
	if f == nil {
		return nil, false
	}
	w, ok := f.TryGetWindow(byteCount)
	if !ok {
		return nil, false
	}
	return w, true
}

// Path returns the current file path and whether diagnostics are enabled.
func (r *Refresher) Path() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.file == nil {
		return "", false
	}
	return r.file.Path(), true
}

// Config returns the last applied configuration.
func (r *Refresher) Config() config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Snapshot copies the current file contents.
func (r *Refresher) Snapshot() ([]byte, error) {
	r.mu.RLock()
	f := r.file
	r.mu.RUnlock()
	if f == nil {
		return nil, ErrDisabled
	}
	b, err := f.Snapshot()
	if errors.Is(err, mmapfile.ErrClosed) {
		return nil, ErrDisabled
	}
	return b, err
}

// Reload reads the configuration file and applies it. A missing file or
// missing LogDirectory disables diagnostics. A file that fails to parse
// leaves the current state untouched.
func (r *Refresher) Reload() error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	cfg, err := config.Load(r.opts.ConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		r.disable("config removed")
		return nil
	}
	if err == nil {
		err = cfg.Validate()
	}
	if errors.Is(err, config.ErrNoLogDirectory) {
		r.disable("no log directory")
		return nil
	}
	if err != nil {
		r.logger.Warn("config rejected", logpkg.Str("path", r.opts.ConfigPath), logpkg.Err(err))
		return err
	}
	return r.apply(cfg)
}

func (r *Refresher) apply(cfg config.Config) error {
	r.mu.RLock()
	l := r.opts.Listener
	r.mu.RUnlock()
	if l != nil {
		l.SetLevel(cfg.Level())
	}

	r.mu.RLock()
	cur, prev := r.file, r.cfg
	r.mu.RUnlock()

	if cur != nil && prev.LogDirectory == cfg.LogDirectory && prev.FileSizeKB == cfg.FileSizeKB {
		r.mu.Lock()
		r.cfg = cfg
		r.mu.Unlock()
		return nil
	}

	// The old file is retired before the new one is created so a size-only
	// change does not truncate it under the same path.
	r.detach("config changed")

	path := filepath.Join(cfg.LogDirectory, r.FileName())
	f, err := mmapfile.Open(mmapfile.Options{Path: path, Size: cfg.FileSizeBytes(), Metrics: r.opts.Metrics})
	if err != nil {
		r.logger.Error("open diagnostics file", logpkg.Str("path", path), logpkg.Err(err))
		return fmt.Errorf("refresher: %w", err)
	}
	r.mu.Lock()
	r.file = f
	r.cfg = cfg
	r.mu.Unlock()
	r.logger.Info("diagnostics enabled",
		logpkg.Str("path", path),
		logpkg.Int("size_kb", cfg.FileSizeKB),
		logpkg.Str("level", cfg.Level().String()))
	return nil
}

func (r *Refresher) disable(reason string) {
	if r.detach(reason) {
		r.logger.Info("diagnostics disabled", logpkg.Str("reason", reason))
	}
	r.mu.Lock()
	r.cfg = config.Config{}
	r.mu.Unlock()
}

// detach stops handing out windows on the current file, closes it and hands
// it to the archiver. It reports whether a file was open.
func (r *Refresher) detach(reason string) bool {
	r.mu.Lock()
	old := r.file
	r.file = nil
	r.mu.Unlock()
	if old == nil {
		return false
	}
	// Close waits for an outstanding window to commit.
	if err := old.Close(); err != nil {
		r.logger.Warn("close diagnostics file", logpkg.Str("path", old.Path()), logpkg.Err(err))
	}
	if r.opts.Archiver != nil {
		if _, err := r.opts.Archiver.Retire(old.Path()); err != nil {
			r.logger.Error("retire diagnostics file", logpkg.Str("path", old.Path()), logpkg.Err(err))
		}
	}
	r.logger.Debug("diagnostics file detached", logpkg.Str("path", old.Path()), logpkg.Str("reason", reason))
	return true
}

// Start applies the configuration and follows it until ctx ends or Close
// is called.
func (r *Refresher) Start(ctx context.Context) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.cancel != nil {
		return errors.New("refresher: already started")
	}
	if err := r.Reload(); err != nil {
		r.logger.Warn("initial config not applied", logpkg.Err(err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		err = watcher.Add(filepath.Dir(r.opts.ConfigPath))
		if err != nil {
			_ = watcher.Close()
			watcher = nil
		}
	}
	if err != nil {
		r.logger.Warn("config watch unavailable, polling only", logpkg.Err(err))
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, watcher, r.done)
	return nil
}

func (r *Refresher) pollInterval() time.Duration {
	if r.opts.PollInterval > 0 {
		return r.opts.PollInterval
	}
	if d := r.Config().PollInterval(); d > 0 {
		return d
	}
	return time.Duration(config.Default().PollIntervalSeconds) * time.Second
}

func (r *Refresher) run(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher != nil {
		defer watcher.Close()
		events, errs = watcher.Events, watcher.Errors
	}
	ticker := time.NewTicker(r.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != r.opts.ConfigPath {
				continue
			}
			_ = r.Reload()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.logger.Warn("config watch error", logpkg.Err(err))
		case <-ticker.C:
			_ = r.Reload()
			r.sync()
		}
	}
}

func (r *Refresher) sync() {
	r.mu.RLock()
	f := r.file
	r.mu.RUnlock()
	if f == nil {
		return
	}
	if err := f.Sync(); err != nil && !errors.Is(err, mmapfile.ErrClosed) {
		r.logger.Warn("sync diagnostics file", logpkg.Err(err))
	}
}

// Close stops following the configuration and closes the current file. The
// file is left on disk.
func (r *Refresher) Close() error {
	r.runMu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.runMu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	r.mu.Lock()
	f := r.file
	r.file = nil
	r.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}
