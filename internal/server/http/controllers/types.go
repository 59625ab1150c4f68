package controllers

import (
	"time"

	"github.com/rzbill/flodiag/internal/archive"
	"github.com/rzbill/flodiag/internal/runtime"
	"github.com/rzbill/flodiag/internal/selfdiag"
)

// healthResp is the body of /v1/healthz.
type healthResp struct {
	Status      string            `json:"status"`
	Diagnostics bool              `json:"diagnostics"`
	File        string            `json:"file,omitempty"`
	Level       string            `json:"level"`
	Written     uint64            `json:"written"`
	Dropped     uint64            `json:"dropped"`
	FileStats   runtime.FileStats `json:"fileStats"`
}

// recordResp is one diagnostics line.
type recordResp struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Params  []string  `json:"params"`
	Offset  int       `json:"offset"`
}

// recordsResp lists records from the live file or an archived one.
type recordsResp struct {
	Source  string       `json:"source"`
	Records []recordResp `json:"records"`
}

// archiveResp lists the archive catalog.
type archiveResp struct {
	Entries []archive.Entry `json:"entries"`
}

// emitReq asks the server to write one event.
type emitReq struct {
	Message string   `json:"message"`
	Params  []string `json:"params"`
}

func toRecordResp(recs []selfdiag.Record) []recordResp {
	out := make([]recordResp, 0, len(recs))
	for _, r := range recs {
		params := r.Params
		if params == nil {
			params = []string{}
		}
		out = append(out, recordResp{Time: r.Time, Message: r.Message, Params: params, Offset: r.Offset})
	}
	return out
}
