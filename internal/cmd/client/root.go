package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command holding the client commands.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "flodiag",
		Short: "flodiag client commands",
	}
	AddCommands(root, baseURL)
	return root
}

// AddCommands registers the client commands on root.
func AddCommands(root *cobra.Command, baseURL BaseURLFunc) {
	root.AddCommand(
		NewRecordsCommand(baseURL),
		NewArchiveCommand(baseURL),
		NewEmitCommand(baseURL),
		NewHealthCommand(),
	)
}
