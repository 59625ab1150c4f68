package client

import (
	"fmt"

	"github.com/spf13/cobra"

	transports "github.com/rzbill/flodiag/internal/cmd/client/transports"
	grpcserver "github.com/rzbill/flodiag/internal/server/grpc"
)

// NewHealthCommand constructs the `health` command, which queries the gRPC
// health service.
func NewHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server and diagnostics health over gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := transports.NewGrpcTransport(dialGRPCContext)
			overall, err := t.Health(cmd.Context(), "")
			if err != nil {
				return err
			}
			diag, err := t.Health(cmd.Context(), grpcserver.DiagnosticsService)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "server:", overall)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "diagnostics:", diag)
			return nil
		},
	}
	return cmd
}
