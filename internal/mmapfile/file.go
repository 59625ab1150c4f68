package mmapfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
)

var (
	// ErrClosed is returned when operating on a closed File.
	ErrClosed = errors.New("mmapfile: file closed")
	// ErrWindowReleased is returned by Write after Commit or Abandon.
	ErrWindowReleased = errors.New("mmapfile: window already released")
)

// Options configures Open.
type Options struct {
	// Path of the backing file. Parent directories are created.
	Path string
	// Size is the fixed capacity in bytes.
	Size int
	// Metrics observes committed writes and wraps. Optional.
	Metrics MetricsHook
}

// MetricsHook is a minimal hook surface for write observations.
type MetricsHook interface {
	ObserveWrite(bytes int)
	ObserveWrap()
}

// NoopMetrics is used when no metrics hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveWrite(int) {}
func (NoopMetrics) ObserveWrap()     {}

// File is a memory-mapped circular log file.
type File struct {
	path    string
	size    int
	metrics MetricsHook

	mu     sync.Mutex
	f      *os.File
	data   []byte
	pos    int
	closed bool
	// win is reused for every grant; at most one is outstanding because it
	// holds mu.
	win Window
}

// Open creates (or truncates) the file at opts.Path, sizes it to opts.Size
// and maps it shared read/write.
func Open(opts Options) (*File, error) {
	if opts.Path == "" {
		return nil, errors.New("mmapfile: Options.Path is required")
	}
	if opts.Size <= 0 {
		return nil, errors.New("mmapfile: Options.Size must be positive")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(opts.Size)); err != nil {
		_ = f.Close()
		return nil, err
	}
	data, err := mapFile(f, opts.Size)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &File{path: opts.Path, size: opts.Size, metrics: metrics, f: f, data: data}, nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// Size returns the capacity in bytes.
func (f *File) Size() int { return f.size }

// Position returns the offset the next window starts at (before wrapping).
func (f *File) Position() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

// TryGetWindow reserves a window for a record of up to byteCount bytes. If
// the record does not fit before the end of the file the position wraps to
// zero; requests larger than the file get the whole file. The returned
// window holds the file lock until Commit or Abandon. It returns false once
// the file is closed.
func (f *File) TryGetWindow(byteCount int) (*Window, bool) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, false
	}
	if byteCount > f.size {
		byteCount = f.size
	}
	if f.size-f.pos < byteCount {
		f.pos = 0
		f.metrics.ObserveWrap()
	}
	f.win = Window{f: f, off: f.pos, avail: f.size - f.pos}
	return &f.win, true
}

// Snapshot copies the current contents of the file.
func (f *File) Snapshot() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	return append([]byte(nil), f.data...), nil
}

// Sync flushes the mapping to the backing file.
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	return syncFile(f.f, f.data)
}

// Close flushes, unmaps and closes the file. Further windows are refused.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	syncErr := syncFile(f.f, f.data)
	unmapErr := unmapFile(f.data)
	f.data = nil
	closeErr := f.f.Close()
	return errors.Join(syncErr, unmapErr, closeErr)
}

// Window is a reserved region of the file for one record.
type Window struct {
	f        *File
	off      int
	n        int
	avail    int
	released bool
}

// Available returns the bytes between the window start and the end of the
// file.
func (w *Window) Available() int { return w.avail }

// Write copies p into the window after anything written before. It writes
// at most Available bytes in total and reports io.ErrShortWrite beyond that.
func (w *Window) Write(p []byte) (int, error) {
	if w.released {
		return 0, ErrWindowReleased
	}
	room := w.avail - w.n
	short := len(p) > room
	if short {
		p = p[:room]
	}
	copy(w.f.data[w.off+w.n:], p)
	w.n += len(p)
	if short {
		return len(p), io.ErrShortWrite
	}
	return len(p), nil
}

// Commit advances the write position past the first n bytes written and
// releases the file lock.
func (w *Window) Commit(n int) {
	if w.released {
		return
	}
	n = max(0, min(n, w.n))
	w.f.pos = w.off + n
	if w.f.pos >= w.f.size {
		w.f.pos = 0
	}
	w.f.metrics.ObserveWrite(n)
	w.release()
}

// Abandon releases the file lock without moving the write position.
func (w *Window) Abandon() {
	if w.released {
		return
	}
	w.release()
}

func (w *Window) release() {
	w.released = true
	w.f.mu.Unlock()
}
