package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// TextFormatter renders entries as a single human readable line:
//
//	2024-01-02T15:04:05.000Z INFO  message key=value ...
type TextFormatter struct {
	// TimestampFormat defaults to RFC3339 with milliseconds.
	TimestampFormat string
	// DisableTimestamp drops the leading timestamp.
	DisableTimestamp bool
	// ShowCaller appends the caller location.
	ShowCaller bool
}

// Format implements Formatter.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var b bytes.Buffer
	if !f.DisableTimestamp {
		layout := f.TimestampFormat
		if layout == "" {
			layout = "2006-01-02T15:04:05.000Z07:00"
		}
		b.WriteString(entry.Timestamp.Format(layout))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", entry.Level.String(), entry.Message)
	for _, k := range sortedKeys(entry.Fields) {
		fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
	}
	if f.ShowCaller && entry.Caller != "" {
		b.WriteString(" caller=")
		b.WriteString(entry.Caller)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// JSONFormatter renders entries as one JSON object per line.
type JSONFormatter struct {
	// ShowCaller includes the caller location.
	ShowCaller bool
}

// Format implements Formatter.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	m := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		m[k] = v
	}
	m["ts"] = entry.Timestamp.UTC().Format(time.RFC3339Nano)
	m["level"] = entry.Level.String()
	m["msg"] = entry.Message
	if f.ShowCaller && entry.Caller != "" {
		m["caller"] = entry.Caller
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func sortedKeys(m Fields) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
