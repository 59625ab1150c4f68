package selfdiag

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	logpkg "github.com/rzbill/flodiag/pkg/log"
)

// BufferSize is the capacity of the scratch buffer and therefore the
// longest line a Listener writes.
const BufferSize = 4096

// timestampLayout renders the fixed-width UTC prefix of every line.
const timestampLayout = "2006-01-02T15:04:05.0000000Z:"

// TimestampPrefixLen is the length of the rendered timestamp prefix,
// separator included.
const TimestampPrefixLen = len(timestampLayout)

// ErrNilAuthority is returned by NewListener when no Authority is given.
var ErrNilAuthority = errors.New("selfdiag: authority must not be nil")

// Window is a one-shot grant to write at most Available bytes. The holder
// must call exactly one of Commit or Abandon.
type Window interface {
	io.Writer
	// Available is the most bytes the window accepts.
	Available() int
	// Commit publishes the n bytes written and releases the window.
	Commit(n int)
	// Abandon releases the window without publishing anything.
	Abandon()
}

// Authority hands out writable windows on the backing store. It may refuse
// at any time (disabled, rotating, out of space).
type Authority interface {
	TryGetWindow(byteCount int) (Window, bool)
}

// Event is a single diagnostics record before encoding.
type Event struct {
	Level   logpkg.Level
	Message string
	Payload []any
}

// Stats counts lines written and dropped by a Listener.
type Stats struct {
	Written uint64
	Dropped uint64
}

// Listener encodes events into lines and writes them through an Authority.
// It is safe for concurrent use.
type Listener struct {
	authority Authority
	level     atomic.Int32
	now       func() time.Time

	mu      sync.Mutex
	scratch [BufferSize]byte

	written atomic.Uint64
	dropped atomic.Uint64
}

// NewListener returns a Listener that writes events at or above level.
func NewListener(level logpkg.Level, authority Authority) (*Listener, error) {
	if authority == nil {
		return nil, ErrNilAuthority
	}
	l := &Listener{authority: authority, now: time.Now}
	l.level.Store(int32(level))
	return l, nil
}

// Level returns the current threshold.
func (l *Listener) Level() logpkg.Level { return logpkg.Level(l.level.Load()) }

// SetLevel changes the threshold.
func (l *Listener) SetLevel(level logpkg.Level) { l.level.Store(int32(level)) }

// Enabled reports whether events at level are written.
func (l *Listener) Enabled(level logpkg.Level) bool { return level >= l.Level() }

// Stats returns a snapshot of the write counters.
func (l *Listener) Stats() Stats {
	return Stats{Written: l.written.Load(), Dropped: l.dropped.Load()}
}

// OnEvent writes ev unless it is below the threshold.
func (l *Listener) OnEvent(ev Event) {
	if !l.Enabled(ev.Level) {
		return
	}
	l.WriteEvent(ev.Message, ev.Payload)
}

// WriteEvent writes one line for message and payload regardless of level.
// Lines that cannot be placed are dropped.
func (l *Listener) WriteEvent(message string, payload []any) {
	var stackParams [8]string
	params := stackParams[:0]
	for _, p := range payload {
		params = append(params, paramText(p))
	}

	window, ok := l.authority.TryGetWindow(l.estimate(message, params))
	if !ok {
		l.dropped.Add(1)
		return
	}

	limit := min(BufferSize, window.Available())
	if limit < TimestampPrefixLen+1 {
		window.Abandon()
		l.dropped.Add(1)
		return
	}

	l.mu.Lock()
	buf := l.scratch[:limit]
	pos := len(l.now().UTC().AppendFormat(buf[:0], timestampLayout))
	pos = EncodeInBuffer(message, false, buf, pos)
	for _, p := range params {
		pos = EncodeInBuffer(p, true, buf, pos)
	}
	buf[pos] = '\n'
	pos++
	_, err := window.Write(buf[:pos])
	l.mu.Unlock()

	if err != nil {
		window.Abandon()
		l.dropped.Add(1)
		return
	}
	window.Commit(pos)
	l.written.Add(1)
}

// estimate is an upper bound on the line length for message and params,
// capped at BufferSize.
func (l *Listener) estimate(message string, params []string) int {
	n := TimestampPrefixLen + estimateLen(message) + 1
	for _, p := range params {
		n += estimateLen(p) + 2
		if n >= BufferSize {
			return BufferSize
		}
	}
	return min(n, BufferSize)
}
