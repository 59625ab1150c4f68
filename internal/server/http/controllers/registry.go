package controllers

import (
	"net/http"

	"github.com/rzbill/flodiag/internal/runtime"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general     *GeneralController
	diagnostics *DiagnosticsController
}

// NewControllerRegistry creates the controllers for rt.
func NewControllerRegistry(rt *runtime.Runtime) *ControllerRegistry {
	return &ControllerRegistry{
		general:     NewGeneralController(rt),
		diagnostics: NewDiagnosticsController(rt),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.diagnostics.RegisterRoutes(mux)
}
