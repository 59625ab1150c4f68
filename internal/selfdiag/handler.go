package selfdiag

import (
	"context"
	"log/slog"
	"sort"

	logpkg "github.com/rzbill/flodiag/pkg/log"
)

// Handler is a slog.Handler that writes records through a Listener. Each
// attribute becomes one "{key=value}" parameter. Attributes added with
// WithAttrs are stored with their group prefix already applied.
type Handler struct {
	l     *Listener
	attrs []slog.Attr
	group string
}

// NewHandler returns a slog.Handler backed by l.
func NewHandler(l *Listener) *Handler { return &Handler{l: l} }

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return h.l.Enabled(logpkg.FromSlogLevel(level))
}

// Handle implements slog.Handler. It never fails.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	payload := make([]any, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		payload = append(payload, a.Key+"="+a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		payload = append(payload, h.key(a.Key)+"="+a.Value.String())
		return true
	})
	h.l.OnEvent(Event{Level: logpkg.FromSlogLevel(r.Level), Message: r.Message, Payload: payload})
	return nil
}

func (h *Handler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	nh.attrs = append(nh.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.key(a.Key)
		nh.attrs = append(nh.attrs, a)
	}
	return &nh
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.group = h.key(name)
	return &nh
}

// LogOutput adapts a Listener to the pkg/log Output interface so a process
// logger can mirror its entries into the diagnostics file. Fields become
// "{key=value}" parameters in key order.
type LogOutput struct {
	l *Listener
}

// NewLogOutput returns an Output writing through l.
func NewLogOutput(l *Listener) *LogOutput { return &LogOutput{l: l} }

// Write implements logpkg.Output.
func (o *LogOutput) Write(entry *logpkg.Entry, _ []byte) error {
	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	payload := make([]any, 0, len(keys))
	for _, k := range keys {
		payload = append(payload, k+"="+paramText(entry.Fields[k]))
	}
	o.l.OnEvent(Event{Level: entry.Level, Message: entry.Message, Payload: payload})
	return nil
}

// Close implements logpkg.Output.
func (o *LogOutput) Close() error { return nil }
