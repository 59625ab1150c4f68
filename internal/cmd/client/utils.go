package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	transports "github.com/rzbill/flodiag/internal/cmd/client/transports"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// grpcAddrFromEnv returns the gRPC server address from FLODIAG_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("FLODIAG_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:50051"
}

// dialGRPCContext connects to the gRPC endpoint with insecure transport for local/dev.
func dialGRPCContext(_ context.Context) (*grpc.ClientConn, error) {
	return grpc.NewClient(grpcAddrFromEnv(), grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func getTransport(baseURL BaseURLFunc) transports.DiagnosticsTransport {
	return transports.NewHTTPTransport(baseURL())
}

// printRecord writes a record in the file's own line format.
func printRecord(w io.Writer, ts time.Time, message string, params []string) {
	var b strings.Builder
	b.WriteString(ts.UTC().Format("2006-01-02T15:04:05.0000000Z"))
	b.WriteByte(':')
	b.WriteString(message)
	for _, p := range params {
		b.WriteByte('{')
		b.WriteString(p)
		b.WriteByte('}')
	}
	_, _ = fmt.Fprintln(w, b.String())
}
