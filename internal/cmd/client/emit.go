package client

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rzbill/flodiag/internal/runtime"
)

// NewEmitCommand constructs the `emit` command. By default it writes the
// event through a runtime opened in this process; --server sends it to a
// running server instead.
func NewEmitCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emit <message> [params...]",
		Short: "Write one diagnostics event",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useServer, _ := cmd.Flags().GetBool("server")
			if useServer {
				if err := getTransport(baseURL).Emit(cmd.Context(), args[0], args[1:]); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status: accepted")
				return nil
			}

			configPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			rt, err := runtime.Open(runtime.Options{ConfigPath: configPath, DataDir: dataDir})
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.Refresher().Reload(); err != nil {
				return err
			}
			path, ok := rt.Refresher().Path()
			if !ok {
				return fmt.Errorf("diagnostics disabled: no LogDirectory in %s", rt.ConfigPath())
			}
			params := make([]any, 0, len(args)-1)
			for _, p := range args[1:] {
				params = append(params, p)
			}
			rt.Emit(args[0], params...)
			if rt.Listener().Stats().Written == 0 {
				return fmt.Errorf("event dropped")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "written:", path)
			return nil
		},
	}
	cmd.Flags().Bool("server", false, "Send the event to the running server")
	cmd.Flags().String("config", "", "Diagnostics config file (default: search working and executable dirs)")
	cmd.Flags().String("data-dir", "", "Data directory for the archive catalog")
	return cmd
}
