package transports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rzbill/flodiag/internal/archive"
)

// HTTPTransport implements DiagnosticsTransport over the JSON API.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport constructs a transport for the server at baseURL.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{baseURL: baseURL, client: &http.Client{Timeout: 30 * time.Second}}
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, e.Error)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Records fetches filtered records.
func (t *HTTPTransport) Records(ctx context.Context, req RecordsRequest) (string, []Record, error) {
	q := url.Values{}
	if req.Filter != "" {
		q.Set("filter", req.Filter)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.ArchiveID != "" {
		q.Set("archive", req.ArchiveID)
	}
	path := "/v1/diagnostics/records"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Source  string   `json:"source"`
		Records []Record `json:"records"`
	}
	if err := t.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", nil, err
	}
	return out.Source, out.Records, nil
}

// Archive lists the archive catalog.
func (t *HTTPTransport) Archive(ctx context.Context) ([]archive.Entry, error) {
	var out struct {
		Entries []archive.Entry `json:"entries"`
	}
	if err := t.do(ctx, http.MethodGet, "/v1/diagnostics/archive", nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// Emit asks the server to write one event.
func (t *HTTPTransport) Emit(ctx context.Context, message string, params []string) error {
	body := map[string]any{"message": message, "params": params}
	return t.do(ctx, http.MethodPost, "/v1/diagnostics/events", body, nil)
}
