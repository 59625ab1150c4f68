package grpcserver

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rzbill/flodiag/internal/runtime"
	logpkg "github.com/rzbill/flodiag/pkg/log"
)

// healthRefresh is how often health statuses are recomputed while serving.
const healthRefresh = 5 * time.Second

// Server owns the gRPC server instance and runtime.
type Server struct {
	rt     *runtime.Runtime
	grpc   *grpc.Server
	health *healthUpdater
	lis    net.Listener
	logger logpkg.Logger
}

// New constructs a gRPC server with the standard health service and the
// diagnostics interceptor.
func New(rt *runtime.Runtime, logger logpkg.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = rt.Logger()
	}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(UnaryInterceptor(rt.Listener()))}, opts...)
	s := &Server{
		rt:     rt,
		grpc:   grpc.NewServer(opts...),
		health: &healthUpdater{rt: rt, srv: health.NewServer()},
		logger: logger.WithComponent("grpc"),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health.srv)
	s.health.refresh(context.Background())
	return s
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("grpc listening", logpkg.Str("addr", l.Addr().String()))
	go s.health.run(ctx, healthRefresh)
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		s.health.srv.Shutdown()
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops the server and closes the listener.
func (s *Server) Close() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	if s.lis != nil {
		_ = s.lis.Close()
	}
}
