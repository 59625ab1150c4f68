package transports

import (
	"context"
	"time"

	"github.com/rzbill/flodiag/internal/archive"
)

// Record is one diagnostics line returned by a server.
type Record struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Params  []string  `json:"params"`
	Offset  int       `json:"offset"`
}

// RecordsRequest selects records on the server.
type RecordsRequest struct {
	// Filter is a CEL expression evaluated server-side.
	Filter string
	// Limit keeps the newest N matches. 0 returns all.
	Limit int
	// ArchiveID reads an archived file instead of the live one.
	ArchiveID string
}

// DiagnosticsTransport abstracts the server API used by the CLI.
type DiagnosticsTransport interface {
	Records(ctx context.Context, req RecordsRequest) (source string, recs []Record, err error)
	Archive(ctx context.Context) ([]archive.Entry, error)
	Emit(ctx context.Context, message string, params []string) error
}

// HealthChecker reports the serving status of a named service ("" for the
// server as a whole).
type HealthChecker interface {
	Health(ctx context.Context, service string) (string, error)
}
