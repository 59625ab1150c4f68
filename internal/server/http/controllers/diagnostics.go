package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rzbill/flodiag/internal/refresher"
	"github.com/rzbill/flodiag/internal/runtime"
	"github.com/rzbill/flodiag/internal/selfdiag"
	pebblestore "github.com/rzbill/flodiag/internal/storage/pebble"
)

// maxArchiveRead bounds how much of an archived file is decompressed for
// one request.
const maxArchiveRead = 256 << 20

// DiagnosticsController serves the diagnostics file, its archive and event
// emission.
type DiagnosticsController struct {
	rt *runtime.Runtime
}

// NewDiagnosticsController creates a new diagnostics controller.
func NewDiagnosticsController(rt *runtime.Runtime) *DiagnosticsController {
	return &DiagnosticsController{rt: rt}
}

// RegisterRoutes registers diagnostics routes with the given mux.
//
// - GET  /v1/diagnostics/records?filter=<cel>&limit=N[&archive=<id>]
// - GET  /v1/diagnostics/archive
// - POST /v1/diagnostics/events
func (c *DiagnosticsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/diagnostics/records", c.handleRecords)
	mux.HandleFunc("/v1/diagnostics/archive", c.handleArchive)
	mux.HandleFunc("/v1/diagnostics/events", c.handleEmit)
}

func (c *DiagnosticsController) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	filter, err := selfdiag.NewFilter(q.Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter: "+err.Error())
		return
	}

	var (
		data   []byte
		source string
	)
	if archiveID := q.Get("archive"); archiveID != "" {
		data, source, err = c.readArchived(archiveID)
		if errors.Is(err, pebblestore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive entry not found")
			return
		}
	} else {
		source, _ = c.rt.Refresher().Path()
		data, err = c.rt.Refresher().Snapshot()
		if errors.Is(err, refresher.ErrDisabled) {
			writeError(w, http.StatusNotFound, "diagnostics disabled")
			return
		}
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	recs := filter.Apply(selfdiag.Scan(data), parseLimit(q.Get("limit")))
	writeJSON(w, recordsResp{Source: source, Records: toRecordResp(recs)})
}

func (c *DiagnosticsController) readArchived(entryID string) ([]byte, string, error) {
	e, err := c.rt.Archive().Get(entryID)
	if err != nil {
		return nil, "", err
	}
	rc, err := c.rt.Archive().Open(e)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxArchiveRead))
	return data, e.Path, err
}

func (c *DiagnosticsController) handleArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entries, err := c.rt.Archive().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, archiveResp{Entries: entries})
}

func (c *DiagnosticsController) handleEmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req emitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	params := make([]any, len(req.Params))
	for i, p := range req.Params {
		params[i] = p
	}
	c.rt.Emit(req.Message, params...)
	writeAccepted(w)
}
