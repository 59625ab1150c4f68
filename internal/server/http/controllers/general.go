package controllers

import (
	"net/http"

	"github.com/rzbill/flodiag/internal/runtime"
)

// GeneralController serves health.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
}

// handleHealth returns 200 with diagnostics state when the catalog is
// readable, 503 otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	path, enabled := c.rt.Refresher().Path()
	stats := c.rt.Listener().Stats()
	writeJSON(w, healthResp{
		Status:      "ok",
		Diagnostics: enabled,
		File:        path,
		Level:       c.rt.Listener().Level().String(),
		Written:     stats.Written,
		Dropped:     stats.Dropped,
		FileStats:   c.rt.FileStats(),
	})
}
