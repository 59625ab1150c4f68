package client

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewArchiveCommand constructs the `archive` command group.
func NewArchiveCommand(baseURL BaseURLFunc) *cobra.Command {
	archiveCmd := &cobra.Command{Use: "archive", Short: "Archived diagnostics files"}
	archiveCmd.AddCommand(newArchiveListCommand(baseURL))
	return archiveCmd
}

func newArchiveListCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived files, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := getTransport(baseURL).Archive(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tRETIRED\tBYTES\tCOMPRESSED\tPATH")
			for _, e := range entries {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", e.ID, e.RetiredAt.Format(time.RFC3339), e.Bytes, e.Compressed, e.Path)
			}
			return tw.Flush()
		},
	}
}
