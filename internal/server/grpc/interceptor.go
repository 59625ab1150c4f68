package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/rzbill/flodiag/internal/selfdiag"
	logpkg "github.com/rzbill/flodiag/pkg/log"
)

// UnaryInterceptor writes an Error "rpc failed" event for every unary call
// that returns an error.
func UnaryInterceptor(l *selfdiag.Listener) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			l.OnEvent(selfdiag.Event{
				Level:   logpkg.ErrorLevel,
				Message: "rpc failed",
				Payload: []any{info.FullMethod, status.Code(err).String(), time.Since(start)},
			})
		}
		return resp, err
	}
}
