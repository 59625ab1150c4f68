package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/robfig/cron/v3"

	pebblestore "github.com/rzbill/flodiag/internal/storage/pebble"
	logpkg "github.com/rzbill/flodiag/pkg/log"
	"github.com/rzbill/flodiag/pkg/id"
)

// Extension is appended to every archived file name.
const Extension = ".log.zst"

var catalogPrefix = []byte("archive/")

// ErrNoCatalog is returned by Open when Options.DB is nil.
var ErrNoCatalog = errors.New("archive: catalog DB is required")

// Options configures an Archive.
type Options struct {
	// Dir receives compressed files.
	Dir string
	// DB holds the catalog.
	DB *pebblestore.DB
	// Retention is how long archived files are kept. Zero keeps them forever.
	Retention time.Duration
	// Schedule is the cron spec Start uses for sweeps. Empty means "@hourly".
	Schedule string
	// Logger receives sweep and retire outcomes. Optional.
	Logger logpkg.Logger
	// Now is the clock used for RetiredAt and scheduled sweeps. Optional.
	Now func() time.Time
}

// Entry describes one archived file.
type Entry struct {
	ID         string    `json:"id"`
	Generation string    `json:"generation"`
	Source     string    `json:"source"`
	Path       string    `json:"path"`
	Bytes      int64     `json:"bytes"`
	Compressed int64     `json:"compressed"`
	RetiredAt  time.Time `json:"retiredAt"`
}

// Archive compresses retired files and keeps their catalog.
type Archive struct {
	dir       string
	db        *pebblestore.DB
	retention time.Duration
	schedule  string
	logger    logpkg.Logger
	now       func() time.Time
	ids       *id.Generator

	mu   sync.Mutex
	cron *cron.Cron
}

// Open prepares the archive directory.
func Open(opts Options) (*Archive, error) {
	if opts.DB == nil {
		return nil, ErrNoCatalog
	}
	if opts.Dir == "" {
		return nil, errors.New("archive: Options.Dir is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create dir: %w", err)
	}
	a := &Archive{
		dir:       opts.Dir,
		db:        opts.DB,
		retention: opts.Retention,
		schedule:  opts.Schedule,
		logger:    opts.Logger,
		now:       opts.Now,
		ids:       id.NewGenerator(),
	}
	if a.schedule == "" {
		a.schedule = "@hourly"
	}
	if a.logger == nil {
		a.logger = logpkg.NewLogger(logpkg.WithOutput(&logpkg.NullOutput{}))
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.logger = a.logger.WithComponent("archive")
	return a, nil
}

// Dir returns the archive directory.
func (a *Archive) Dir() string { return a.dir }

// Retire compresses the file at path into the archive, records it in the
// catalog and removes the source.
func (a *Archive) Retire(path string) (Entry, error) {
	src, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	defer src.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	gen := uuid.New().String()
	dest := filepath.Join(a.dir, name+"."+gen+Extension)

	raw, compressed, err := compressTo(dest, src)
	if err != nil {
		return Entry{}, err
	}

	key := a.ids.Next()
	e := Entry{
		ID:         key.String(),
		Generation: gen,
		Source:     path,
		Path:       dest,
		Bytes:      raw,
		Compressed: compressed,
		RetiredAt:  a.now().UTC(),
	}
	b, err := json.Marshal(e)
	if err != nil {
		return Entry{}, err
	}
	if err := a.db.Set(catalogKey(e.ID), b); err != nil {
		_ = os.Remove(dest)
		return Entry{}, fmt.Errorf("archive: catalog: %w", err)
	}
	_ = src.Close()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.logger.Warn("retired file not removed", logpkg.Str("path", path), logpkg.Err(err))
	}
	a.logger.Info("file retired",
		logpkg.Str("source", path),
		logpkg.Str("path", dest),
		logpkg.Int64("bytes", raw),
		logpkg.Int64("compressed", compressed))
	return e, nil
}

func compressTo(dest string, src io.Reader) (int64, int64, error) {
	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, 0, err
	}
	enc, err := zstd.NewWriter(out)
	if err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return 0, 0, err
	}
	raw, err := io.Copy(enc, src)
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, 0, fmt.Errorf("archive: compress: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return 0, 0, err
	}
	st, err := os.Stat(dest)
	if err != nil {
		return 0, 0, err
	}
	return raw, st.Size(), nil
}

// List returns catalog entries, oldest first.
func (a *Archive) List() ([]Entry, error) {
	var (
		out     []Entry
		scanErr error
	)
	err := a.db.Scan(catalogPrefix, func(_, v []byte) bool {
		var e Entry
		if scanErr = json.Unmarshal(v, &e); scanErr != nil {
			return false
		}
		out = append(out, e)
		return true
	})
	if err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, fmt.Errorf("archive: decode entry: %w", scanErr)
	}
	return out, nil
}

// Get returns the entry with the given id.
func (a *Archive) Get(entryID string) (Entry, error) {
	var e Entry
	b, err := a.db.Get(catalogKey(entryID))
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(b, &e)
	return e, err
}

// Open returns a reader over the decompressed content of e.
func (a *Archive) Open(e Entry) (io.ReadCloser, error) {
	return OpenFile(e.Path)
}

// OpenFile returns a decompressing reader for an archived file on disk.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &decodedFile{Decoder: dec, f: f}, nil
}

type decodedFile struct {
	*zstd.Decoder
	f *os.File
}

func (d *decodedFile) Close() error {
	d.Decoder.Close()
	return d.f.Close()
}

// Sweep removes files and catalog entries retired before now minus the
// retention period and returns how many were removed.
func (a *Archive) Sweep(now time.Time) (int, error) {
	if a.retention <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-a.retention)
	var (
		keys  [][]byte
		paths []string
	)
	err := a.db.Scan(catalogPrefix, func(k, v []byte) bool {
		var e Entry
		if json.Unmarshal(v, &e) != nil {
			return true
		}
		if !e.RetiredAt.Before(cutoff) {
			// Keys are in retirement order.
			return false
		}
		keys = append(keys, append([]byte(nil), k...))
		paths = append(paths, e.Path)
		return true
	})
	if err != nil {
		return 0, err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, err
		}
	}
	if err := a.db.DeleteKeys(keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Start schedules Sweep on the configured cron schedule.
func (a *Archive) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(a.schedule, a.sweepNow); err != nil {
		return fmt.Errorf("archive: schedule %q: %w", a.schedule, err)
	}
	c.Start()
	a.cron = c
	a.logger.Debug("sweeps scheduled", logpkg.Str("schedule", a.schedule))
	return nil
}

func (a *Archive) sweepNow() {
	n, err := a.Sweep(a.now())
	if err != nil {
		a.logger.Error("sweep failed", logpkg.Err(err))
		return
	}
	if n > 0 {
		a.logger.Info("sweep removed archived files", logpkg.Int("count", n))
	}
}

// Stop halts scheduled sweeps and waits for a running one to finish.
func (a *Archive) Stop() {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func catalogKey(entryID string) []byte {
	return append(append([]byte(nil), catalogPrefix...), entryID...)
}
