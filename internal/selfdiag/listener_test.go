package selfdiag

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	logpkg "github.com/rzbill/flodiag/pkg/log"
)

// memAuthority grants windows over an in-memory buffer and records the
// requested sizes.
type memAuthority struct {
	mu        sync.Mutex
	out       bytes.Buffer
	available int
	refuse    bool
	failWrite bool
	requests  []int
	abandoned int
}

func (a *memAuthority) TryGetWindow(n int) (Window, bool) {
	a.mu.Lock()
	a.requests = append(a.requests, n)
	if a.refuse {
		a.mu.Unlock()
		return nil, false
	}
	return &memWindow{a: a, avail: a.available}, true
}

type memWindow struct {
	a     *memAuthority
	avail int
	buf   []byte
}

func (w *memWindow) Available() int { return w.avail }

func (w *memWindow) Write(p []byte) (int, error) {
	if w.a.failWrite {
		return 0, errors.New("disk on fire")
	}
	if len(w.buf)+len(p) > w.avail {
		return 0, errors.New("over ceiling")
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *memWindow) Commit(n int) {
	w.a.out.Write(w.buf[:n])
	w.a.mu.Unlock()
}

func (w *memWindow) Abandon() {
	w.a.abandoned++
	w.a.mu.Unlock()
}

func newTestListener(t *testing.T, level logpkg.Level, a *memAuthority) *Listener {
	t.Helper()
	l, err := NewListener(level, a)
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	l.now = func() time.Time { return time.Date(2020, 8, 14, 20, 33, 24, 478810900, time.UTC) }
	return l
}

func TestNewListenerRejectsNilAuthority(t *testing.T) {
	if _, err := NewListener(logpkg.ErrorLevel, nil); !errors.Is(err, ErrNilAuthority) {
		t.Fatalf("expected ErrNilAuthority, got %v", err)
	}
}

func TestWriteEventFormat(t *testing.T) {
	a := &memAuthority{available: 100}
	l := newTestListener(t, logpkg.ErrorLevel, a)
	l.WriteEvent("Event Message", nil)
	if got, want := a.out.String(), "2020-08-14T20:33:24.4788109Z:Event Message\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if TimestampPrefixLen != len("2020-08-14T20:33:24.4788109Z:") {
		t.Fatalf("prefix length %d", TimestampPrefixLen)
	}
}

func TestWriteEventParameters(t *testing.T) {
	a := &memAuthority{available: BufferSize}
	l := newTestListener(t, logpkg.DebugLevel, a)
	l.WriteEvent("Export failed", []any{"otlp", 3, nil, errors.New("timeout"), true})
	want := "2020-08-14T20:33:24.4788109Z:Export failed{otlp}{3}{null}{timeout}{true}\n"
	if got := a.out.String(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestWriteEventRequestsUpperBound(t *testing.T) {
	a := &memAuthority{available: BufferSize}
	l := newTestListener(t, logpkg.DebugLevel, a)
	l.WriteEvent("Event Message", []any{"p"})
	if len(a.requests) != 1 {
		t.Fatalf("want one request, got %v", a.requests)
	}
	written := a.out.Len()
	if a.requests[0] < written {
		t.Fatalf("request %d below bytes written %d", a.requests[0], written)
	}
	if a.requests[0] > BufferSize {
		t.Fatalf("request %d above buffer size", a.requests[0])
	}
}

func TestWriteEventHugeMessageCapped(t *testing.T) {
	a := &memAuthority{available: 1 << 20}
	l := newTestListener(t, logpkg.DebugLevel, a)
	l.WriteEvent(strings.Repeat("m", 10000), []any{strings.Repeat("p", 10000)})
	if a.requests[0] != BufferSize {
		t.Fatalf("request %d want %d", a.requests[0], BufferSize)
	}
	out := a.out.String()
	if len(out) > BufferSize {
		t.Fatalf("line of %d bytes exceeds scratch", len(out))
	}
	if !strings.Contains(out, "m...{p") || !strings.HasSuffix(out, "p...}\n") {
		t.Fatalf("expected truncated message and parameter, got tail %q", out[len(out)-16:])
	}
}

func TestWriteEventBoundedByWindow(t *testing.T) {
	a := &memAuthority{available: TimestampPrefixLen + 10}
	l := newTestListener(t, logpkg.DebugLevel, a)
	l.WriteEvent("a long message that cannot fit", []any{"param"})
	out := a.out.String()
	if len(out) > a.available {
		t.Fatalf("wrote %d bytes into a %d byte window", len(out), a.available)
	}
	if !strings.HasSuffix(out, "...\n") {
		t.Fatalf("expected truncation marker, got %q", out)
	}
}

func TestWriteEventTinyWindowDropped(t *testing.T) {
	a := &memAuthority{available: TimestampPrefixLen}
	l := newTestListener(t, logpkg.DebugLevel, a)
	l.WriteEvent("x", nil)
	if a.out.Len() != 0 {
		t.Fatalf("expected nothing written, got %q", a.out.String())
	}
	if a.abandoned != 1 {
		t.Fatalf("window should be abandoned")
	}
	if s := l.Stats(); s.Dropped != 1 || s.Written != 0 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestWriteEventRefusedIsSilent(t *testing.T) {
	a := &memAuthority{refuse: true}
	l := newTestListener(t, logpkg.DebugLevel, a)
	l.WriteEvent("dropped", nil)
	if s := l.Stats(); s.Dropped != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestWriteEventFailedCopyAbandons(t *testing.T) {
	a := &memAuthority{available: 100, failWrite: true}
	l := newTestListener(t, logpkg.DebugLevel, a)
	l.WriteEvent("dropped", nil)
	if a.abandoned != 1 || l.Stats().Dropped != 1 {
		t.Fatalf("expected abandoned window and a drop")
	}
}

func TestOnEventLevelGate(t *testing.T) {
	a := &memAuthority{available: 100}
	l := newTestListener(t, logpkg.WarnLevel, a)
	l.OnEvent(Event{Level: logpkg.InfoLevel, Message: "below"})
	if len(a.requests) != 0 {
		t.Fatalf("events below the threshold must not reach the authority")
	}
	l.OnEvent(Event{Level: logpkg.ErrorLevel, Message: "above"})
	if !strings.Contains(a.out.String(), "above") {
		t.Fatalf("expected event above threshold, got %q", a.out.String())
	}
	l.SetLevel(logpkg.FatalLevel)
	if l.Enabled(logpkg.ErrorLevel) {
		t.Fatalf("SetLevel not applied")
	}
}

func TestConcurrentWriteEvent(t *testing.T) {
	a := &memAuthority{available: BufferSize}
	l := newTestListener(t, logpkg.DebugLevel, a)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.WriteEvent("concurrent", []any{j})
			}
		}()
	}
	wg.Wait()
	recs := Scan(a.out.Bytes())
	if len(recs) != 400 {
		t.Fatalf("want 400 records, got %d", len(recs))
	}
	if s := l.Stats(); s.Written != 400 || s.Dropped != 0 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestHandlerWritesSlogRecords(t *testing.T) {
	a := &memAuthority{available: BufferSize}
	l := newTestListener(t, logpkg.WarnLevel, a)
	logger := slog.New(NewHandler(l)).With("component", "exporter").WithGroup("req")
	logger.Info("ignored")
	logger.Error("export failed", "attempt", 2)
	want := "Z:export failed{component=exporter}{req.attempt=2}\n"
	if got := a.out.String(); !strings.HasSuffix(got, want) || strings.Contains(got, "ignored") {
		t.Fatalf("got %q", got)
	}
}

func TestLogOutputMirrorsEntries(t *testing.T) {
	a := &memAuthority{available: BufferSize}
	l := newTestListener(t, logpkg.WarnLevel, a)
	logger := logpkg.NewLogger(
		logpkg.WithLevel(logpkg.DebugLevel),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(NewLogOutput(l)),
	)
	logger.Info("not mirrored")
	logger.Warn("disk almost full", logpkg.Int("pct", 93), logpkg.Str("dir", "/var"))
	got := a.out.String()
	if strings.Contains(got, "not mirrored") {
		t.Fatalf("info entry should be filtered by listener level: %q", got)
	}
	if !strings.HasSuffix(got, "Z:disk almost full{dir=/var}{pct=93}\n") {
		t.Fatalf("got %q", got)
	}
}
