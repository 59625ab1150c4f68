package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rzbill/flodiag/internal/runtime"
	"github.com/rzbill/flodiag/internal/server/http/controllers"
	logpkg "github.com/rzbill/flodiag/pkg/log"
)

// Server serves the diagnostics REST API.
type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

// New builds the server. Every request passes through Middleware.
func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = rt.Logger()
	}
	mux := http.NewServeMux()
	controllers.NewControllerRegistry(rt).RegisterAllRoutes(mux)
	s := &Server{
		rt:     rt,
		logger: logger.WithComponent("http"),
		srv:    &http.Server{Handler: cors(Middleware(rt.Listener(), mux)), ReadHeaderTimeout: 10 * time.Second},
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close closes the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
