package pebblestore

import (
	"errors"
	"testing"
	"time"
)

type testMetrics struct {
	wrote int
	read  int
}

func (m *testMetrics) ObserveWrite(d time.Duration, bytes int) { m.wrote += bytes }
func (m *testMetrics) ObserveRead(d time.Duration, bytes int)  { m.read += bytes }

func newTestDB(t *testing.T) (*DB, *testMetrics) {
	t.Helper()
	metrics := &testMetrics{}
	db, err := Open(Options{
		DataDir:       t.TempDir(),
		Fsync:         FsyncModeInterval,
		FsyncInterval: 2 * time.Millisecond,
		Metrics:       metrics,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, metrics
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatalf("expected error without DataDir")
	}
}

func TestCRUD(t *testing.T) {
	db, metrics := newTestDB(t)

	key := []byte("k1")
	if err := db.Set(key, []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("got %q", got)
	}
	if metrics.wrote == 0 || metrics.read == 0 {
		t.Fatalf("expected metrics, got %+v", metrics)
	}
	if err := db.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScanPrefix(t *testing.T) {
	db, _ := newTestDB(t)
	for _, k := range []string{"a/1", "b/2", "b/1", "b/3", "c/1"} {
		if err := db.Set([]byte(k), []byte(k)); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	var keys []string
	if err := db.Scan([]byte("b/"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(keys) != 3 || keys[0] != "b/1" || keys[2] != "b/3" {
		t.Fatalf("unexpected keys %v", keys)
	}

	n := 0
	_ = db.Scan([]byte("b/"), func(k, v []byte) bool { n++; return false })
	if n != 1 {
		t.Fatalf("scan should stop early, saw %d", n)
	}
}

func TestDeleteKeys(t *testing.T) {
	db, _ := newTestDB(t)
	for _, k := range []string{"x/1", "x/2", "x/3"} {
		_ = db.Set([]byte(k), []byte("v"))
	}
	if err := db.DeleteKeys([][]byte{[]byte("x/1"), []byte("x/3")}); err != nil {
		t.Fatalf("delete keys: %v", err)
	}
	n := 0
	_ = db.Scan([]byte("x/"), func(k, v []byte) bool { n++; return true })
	if n != 1 {
		t.Fatalf("want 1 remaining, got %d", n)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	if got := prefixUpperBound([]byte("ab")); string(got) != "ac" {
		t.Fatalf("got %q", got)
	}
	if got := prefixUpperBound([]byte{'a', 0xff}); string(got) != "b" {
		t.Fatalf("got %q", got)
	}
	if got := prefixUpperBound([]byte{0xff}); got != nil {
		t.Fatalf("want nil, got %q", got)
	}
}
