package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rzbill/flodiag/internal/archive"
	transports "github.com/rzbill/flodiag/internal/cmd/client/transports"
	"github.com/rzbill/flodiag/internal/selfdiag"
)

// NewRecordsCommand constructs the `records` command. With a file argument
// it reads a live or archived (.zst) diagnostics file directly; without one
// it asks the server.
func NewRecordsCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records [file]",
		Short: "Print diagnostics records, oldest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")
			archiveID, _ := cmd.Flags().GetString("archive")

			var recs []transports.Record
			if len(args) == 1 {
				local, err := readLocalRecords(args[0], filter, limit)
				if err != nil {
					return err
				}
				recs = local
			} else {
				_, remote, err := getTransport(baseURL).Records(cmd.Context(), transports.RecordsRequest{
					Filter:    filter,
					Limit:     limit,
					ArchiveID: archiveID,
				})
				if err != nil {
					return err
				}
				recs = remote
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				for _, r := range recs {
					if err := enc.Encode(r); err != nil {
						return err
					}
				}
				return nil
			}
			for _, r := range recs {
				printRecord(out, r.Time, r.Message, r.Params)
			}
			return nil
		},
	}
	cmd.Flags().String("filter", "", "CEL filter over ts_ms, message, params, text, size, now_ms")
	cmd.Flags().Int("limit", 0, "Keep only the newest N records (0 = all)")
	cmd.Flags().Bool("json", false, "Print one JSON object per record")
	cmd.Flags().String("archive", "", "Archive entry id to read from the server")
	return cmd
}

func readLocalRecords(path, filterExpr string, limit int) ([]transports.Record, error) {
	f, err := selfdiag.NewFilter(filterExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	var rc io.ReadCloser
	if strings.HasSuffix(path, ".zst") {
		rc, err = archive.OpenFile(path)
	} else {
		rc, err = os.Open(path)
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	matched := f.Apply(selfdiag.Scan(data), limit)
	out := make([]transports.Record, 0, len(matched))
	for _, r := range matched {
		out = append(out, transports.Record{Time: r.Time, Message: r.Message, Params: r.Params, Offset: r.Offset})
	}
	return out, nil
}
