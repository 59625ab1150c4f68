package selfdiag

import (
	"bytes"
	"regexp"
	"sort"
	"time"
)

// recordPattern matches the timestamp prefix that starts every line.
var recordPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{7}Z:`)

// Record is one line recovered from a diagnostics file.
type Record struct {
	Time    time.Time
	Message string
	Params  []string
	// Text is the line after the timestamp prefix, without the newline.
	Text string
	// Offset is the byte offset of the line in the scanned image.
	Offset int
}

// Scan extracts the complete lines from a diagnostics file image, ordered by
// timestamp. Lines torn by the circular writer wrapping over them, and the
// NUL padding of never-written space, are skipped.
func Scan(data []byte) []Record {
	locs := recordPattern.FindAllIndex(data, -1)
	out := make([]Record, 0, len(locs))
	for i, loc := range locs {
		end := len(data)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := data[loc[1]:end]
		nl := bytes.IndexByte(body, '\n')
		if nl < 0 {
			continue
		}
		ts, err := time.Parse(timestampLayout, string(data[loc[0]:loc[1]]))
		if err != nil {
			continue
		}
		text := string(body[:nl])
		msg, params := splitParams(text)
		out = append(out, Record{Time: ts, Message: msg, Params: params, Text: text, Offset: loc[0]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// splitParams peels trailing {...} groups off a line. The format does not
// escape braces, so a message ending in a braced word reads as a parameter.
func splitParams(text string) (string, []string) {
	var params []string
	for len(text) > 0 && text[len(text)-1] == '}' {
		open := -1
		for i := len(text) - 2; i >= 0; i-- {
			if text[i] == '{' {
				open = i
				break
			}
		}
		if open < 0 {
			break
		}
		params = append(params, text[open+1:len(text)-1])
		text = text[:open]
	}
	for i, j := 0, len(params)-1; i < j; i, j = i+1, j-1 {
		params[i], params[j] = params[j], params[i]
	}
	return text, params
}
