package selfdiag_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/rzbill/flodiag/internal/mmapfile"
	"github.com/rzbill/flodiag/internal/selfdiag"
	logpkg "github.com/rzbill/flodiag/pkg/log"
)

// fileAuthority grants windows from a memory-mapped file.
type fileAuthority struct {
	f         *mmapfile.File
	available int
	requests  []int
}

func (a *fileAuthority) TryGetWindow(n int) (selfdiag.Window, bool) {
	a.requests = append(a.requests, n)
	w, ok := a.f.TryGetWindow(n)
	if !ok {
		return nil, false
	}
	return cappedWindow{Window: w, limit: a.available}, true
}

// cappedWindow reports a smaller ceiling than the file offers.
type cappedWindow struct {
	*mmapfile.Window
	limit int
}

func (w cappedWindow) Available() int { return min(w.limit, w.Window.Available()) }

func TestWriteEventToMappedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Diagnostics.log")
	f, err := mmapfile.Open(mmapfile.Options{Path: path, Size: 1024})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	eventMessage := "Event Message"
	a := &fileAuthority{f: f, available: 100}
	l, err := selfdiag.NewListener(logpkg.ErrorLevel, a)
	if err != nil {
		t.Fatalf("listener: %v", err)
	}
	l.WriteEvent(eventMessage, nil)
	if len(a.requests) != 1 || a.requests[0] < selfdiag.TimestampPrefixLen+len(eventMessage)+1 {
		t.Fatalf("unexpected window requests %v", a.requests)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	logMessage := string(b[:256])
	prefix := logMessage[:selfdiag.TimestampPrefixLen]
	if !regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{7}Z:$`).MatchString(prefix) {
		t.Fatalf("bad timestamp prefix %q", prefix)
	}
	if !strings.HasPrefix(logMessage[selfdiag.TimestampPrefixLen:], eventMessage) {
		t.Fatalf("body %q does not start with %q", logMessage[selfdiag.TimestampPrefixLen:], eventMessage)
	}

	recs := selfdiag.Scan(b)
	if len(recs) != 1 || recs[0].Message != eventMessage {
		t.Fatalf("round trip failed: %+v", recs)
	}
}

func TestWriteEventWrapsMappedFile(t *testing.T) {
	f, err := mmapfile.Open(mmapfile.Options{Path: filepath.Join(t.TempDir(), "wrap.log"), Size: 256})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	l, err := selfdiag.NewListener(logpkg.DebugLevel, &fileAuthority{f: f, available: 256})
	if err != nil {
		t.Fatalf("listener: %v", err)
	}
	for i := 0; i < 50; i++ {
		l.WriteEvent("tick", []any{i})
	}
	snap, err := f.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	recs := selfdiag.Scan(snap)
	if len(recs) == 0 {
		t.Fatalf("no records survived")
	}
	found := false
	for _, r := range recs {
		if r.Message != "tick" || len(r.Params) != 1 {
			t.Fatalf("corrupt record %+v", r)
		}
		found = found || r.Params[0] == "49"
	}
	if !found {
		t.Fatalf("newest record tick{49} missing from %+v", recs)
	}
	if s := l.Stats(); s.Written != 50 {
		t.Fatalf("unexpected stats %+v", s)
	}
}
