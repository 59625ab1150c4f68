package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rzbill/flodiag/internal/archive"
	"github.com/rzbill/flodiag/internal/selfdiag"
)

const sample = "2020-08-14T20:33:24.4788109Z:cache miss{users}\n" +
	"2020-08-14T20:33:25.0000000Z:cache hit{orders}\n" +
	"2020-08-14T20:33:26.0000000Z:cache miss{carts}\n"

func run(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	root := NewRoot(func() string { return baseURL })
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRecordsFromLiveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc.1.log")
	data := append([]byte(sample), make([]byte, 64)...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := run(t, "", "records", path, "--filter", `message == "cache miss"`, "--limit", "1")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out) != "2020-08-14T20:33:26.0000000Z:cache miss{carts}" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRecordsFromArchivedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc.1.gen"+archive.Extension)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	_, _ = enc.Write([]byte(sample))
	_ = enc.Close()
	_ = f.Close()

	out, err := run(t, "", "records", path, "--json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out)
	}
	var first struct {
		Message string   `json:"message"`
		Params  []string `json:"params"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Message != "cache miss" || first.Params[0] != "users" {
		t.Fatalf("unexpected first record %+v", first)
	}
}

func TestRecordsBadFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.log")
	_ = os.WriteFile(path, []byte(sample), 0o644)
	if _, err := run(t, "", "records", path, "--filter", "message +"); err == nil {
		t.Fatalf("expected filter error")
	}
}

func TestRecordsFromServer(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/diagnostics/records" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		recs := selfdiag.Scan([]byte(sample))
		type rec struct {
			Time    time.Time `json:"time"`
			Message string    `json:"message"`
			Params  []string  `json:"params"`
		}
		out := struct {
			Source  string `json:"source"`
			Records []rec  `json:"records"`
		}{Source: "live"}
		for _, r := range recs {
			out.Records = append(out.Records, rec{r.Time, r.Message, r.Params})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	out, err := run(t, srv.URL, "records", "--limit", "5", "--filter", "true")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(gotQuery, "limit=5") || !strings.Contains(gotQuery, "filter=true") {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if strings.Count(out, "\n") != 3 || !strings.Contains(out, "cache hit{orders}") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestArchiveList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"entries": []archive.Entry{{
			ID:         "0000018c",
			Path:       "/a/svc.1.g.log.zst",
			Bytes:      1048576,
			Compressed: 2048,
			RetiredAt:  time.Date(2020, 8, 14, 0, 0, 0, 0, time.UTC),
		}}})
	}))
	defer srv.Close()

	out, err := run(t, srv.URL, "archive", "list")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "0000018c") || !strings.Contains(out, "1048576") || !strings.Contains(out, "2020-08-14T00:00:00Z") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "diagnostics disabled"})
	}))
	defer srv.Close()
	_, err := run(t, srv.URL, "records")
	if err == nil || !strings.Contains(err.Error(), "diagnostics disabled") {
		t.Fatalf("expected server error, got %v", err)
	}
}

func TestEmitToServer(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	out, err := run(t, srv.URL, "emit", "--server", "cache miss", "users")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "accepted") || body["message"] != "cache miss" {
		t.Fatalf("unexpected out=%q body=%v", out, body)
	}
}

func TestEmitThroughLocalRuntime(t *testing.T) {
	logDir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "FLODIAG_DIAGNOSTICS.json")
	if err := os.WriteFile(cfgPath, []byte(fmt.Sprintf(`{"LogDirectory": %q}`, logDir)), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, err := run(t, "", "emit", "--config", cfgPath, "--data-dir", t.TempDir(), "smoke test", "p1")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	path := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "written:"))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	recs := selfdiag.Scan(data)
	if len(recs) != 1 || recs[0].Message != "smoke test" || recs[0].Params[0] != "p1" {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func TestEmitWithoutDirectoryFails(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "missing.json")
	if _, err := run(t, "", "emit", "--config", cfgPath, "--data-dir", t.TempDir(), "x"); err == nil {
		t.Fatalf("expected disabled error")
	}
}

func TestHealthOverGRPC(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("flodiag.Diagnostics", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	go func() { _ = gs.Serve(l) }()
	defer gs.Stop()
	t.Setenv("FLODIAG_GRPC", l.Addr().String())

	out, err := run(t, "", "health")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "server: SERVING") || !strings.Contains(out, "diagnostics: NOT_SERVING") {
		t.Fatalf("unexpected output %q", out)
	}
}
