package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rzbill/flodiag/internal/runtime"
)

// DiagnosticsService is the health service name that reports whether the
// diagnostics file is open.
const DiagnosticsService = "flodiag.Diagnostics"

// healthUpdater keeps the standard health server in step with the runtime.
type healthUpdater struct {
	rt  *runtime.Runtime
	srv *health.Server
}

func (h *healthUpdater) refresh(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	if err := h.rt.CheckHealth(ctx); err != nil {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.srv.SetServingStatus("", overall)

	diag := healthpb.HealthCheckResponse_NOT_SERVING
	if _, ok := h.rt.Refresher().Path(); ok {
		diag = healthpb.HealthCheckResponse_SERVING
	}
	h.srv.SetServingStatus(DiagnosticsService, diag)
}

func (h *healthUpdater) run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			h.refresh(ctx)
		}
	}
}
