package pebblestore

import (
	"bytes"
	"errors"
	"time"

	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = pebble.ErrNotFound

// FsyncMode defines durability behavior for write operations.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways syncs the WAL on each committed batch.
	FsyncModeAlways
	// FsyncModeInterval lets Pebble coalesce WAL syncs within FsyncInterval.
	FsyncModeInterval
	// FsyncModeNever leaves WAL syncing to Pebble.
	FsyncModeNever
)

// Options configures the catalog store.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group-commit when Fsync=FsyncModeInterval.
	FsyncInterval time.Duration
	// PebbleOptions allows advanced tuning of Pebble.
	PebbleOptions *pebble.Options
	// Metrics observes read and write sizes. Optional.
	Metrics MetricsHook
}

// MetricsHook is a minimal hook surface for storage observations.
type MetricsHook interface {
	ObserveWrite(elapsed time.Duration, bytes int)
	ObserveRead(elapsed time.Duration, bytes int)
}

// NoopMetrics is used when no metrics hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveWrite(time.Duration, int) {}
func (NoopMetrics) ObserveRead(time.Duration, int)  {}

// DB wraps a Pebble database with an fsync policy and prefix helpers.
type DB struct {
	inner   *pebble.DB
	sync    *pebble.WriteOptions
	metrics MetricsHook
}

// Open creates or opens a Pebble database with the provided options.
func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebble: Options.DataDir is required")
	}

	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}

	switch opts.Fsync {
	case FsyncModeAlways, FsyncModeNever:
	case FsyncModeInterval:
		if opts.FsyncInterval <= 0 {
			opts.FsyncInterval = 5 * time.Millisecond
		}
		interval := opts.FsyncInterval
		po.WALMinSyncInterval = func() time.Duration { return interval }
	default:
		po.WALMinSyncInterval = func() time.Duration { return 5 * time.Millisecond }
	}

	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, err
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	wo := pebble.NoSync
	if opts.Fsync == FsyncModeAlways {
		wo = pebble.Sync
	}
	return &DB{inner: inner, sync: wo, metrics: metrics}, nil
}

// Close closes the Pebble database.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Close()
}

// Set writes a key using the configured fsync policy.
func (db *DB) Set(key, value []byte) error {
	start := time.Now()
	if err := db.inner.Set(key, value, db.sync); err != nil {
		return err
	}
	db.metrics.ObserveWrite(time.Since(start), len(key)+len(value))
	return nil
}

// Delete removes a key using the configured fsync policy.
func (db *DB) Delete(key []byte) error {
	return db.inner.Delete(key, db.sync)
}

// DeleteKeys removes several keys in one atomic batch.
func (db *DB) DeleteKeys(keys [][]byte) error {
	if len(keys) == 0 {
		return nil
	}
	b := db.inner.NewBatch()
	defer b.Close()
	for _, k := range keys {
		if err := b.Delete(k, nil); err != nil {
			return err
		}
	}
	return b.Commit(db.sync)
}

// Get copies the value for the given key. Missing keys return ErrNotFound.
func (db *DB) Get(key []byte) ([]byte, error) {
	start := time.Now()
	val, closer, err := db.inner.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	buf := append([]byte(nil), val...)
	db.metrics.ObserveRead(time.Since(start), len(buf))
	return buf, nil
}

// Scan calls fn for each key with the given prefix in ascending key order.
// Keys and values are only valid during the call. Returning false stops the scan.
func (db *DB) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	it, err := db.inner.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	start := time.Now()
	read := 0
	for valid := it.First(); valid; valid = it.Next() {
		v := it.Value()
		read += len(v)
		if !fn(it.Key(), v) {
			break
		}
	}
	db.metrics.ObserveRead(time.Since(start), read)
	if err := it.Error(); err != nil {
		_ = it.Close()
		return err
	}
	return it.Close()
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, or nil when no such key exists.
func prefixUpperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
