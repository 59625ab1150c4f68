package log

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
)

// LevelFatal is the slog level used for FatalLevel entries.
const LevelFatal = slog.LevelError + 4

// bridgeHandler is a slog.Handler that routes records through the owning
// logger's formatter and outputs.
type bridgeHandler struct {
	logger     *BaseLogger
	attrs      []slog.Attr
	group      string
	redactions map[string]struct{}
	sampler    *sampler
}

func newBridgeHandler(logger *BaseLogger) *bridgeHandler {
	h := &bridgeHandler{logger: logger, attrs: attrsFromMap(logger.fields), sampler: logger.sampler}
	return h.withRedactions(logger.redactions)
}

// NewSlogHandler exposes the bridge for code that wants a slog.Handler
// writing through a Logger built by NewLogger.
func NewSlogHandler(l Logger) slog.Handler {
	if bl, ok := l.(*BaseLogger); ok {
		return bl.slogLogger.Handler()
	}
	return nil
}

// Enabled gates by the BaseLogger level.
func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.GetLevel() <= FromSlogLevel(level)
}

// Handle converts the slog record to our Entry and writes it using the logger's
// formatter and outputs.
func (h *bridgeHandler) Handle(_ context.Context, r slog.Record) error {
	fields := Fields{}
	for i := range h.attrs {
		h.put(fields, h.attrs[i])
	}
	r.Attrs(func(a slog.Attr) bool {
		h.put(fields, a)
		return true
	})

	if h.sampler != nil && !h.sampler.allow(r.Level, r.Message) {
		return nil
	}

	caller := ""
	if pc := r.PC; pc != 0 {
		if fn := runtime.FuncForPC(pc); fn != nil {
			file, line := fn.FileLine(pc)
			caller = file + ":" + itoa(line)
		}
	} else if _, file, line, ok := runtime.Caller(5); ok {
		caller = file + ":" + itoa(line)
	}

	entry := &Entry{
		Level:     FromSlogLevel(r.Level),
		Message:   r.Message,
		Fields:    fields,
		Timestamp: r.Time,
		Caller:    caller,
	}
	if err, ok := fields["error"].(error); ok {
		entry.Error = err
	}

	formatted, err := h.logger.formatter.Format(entry)
	if err != nil {
		return err
	}
	for _, out := range h.logger.outputs {
		_ = out.Write(entry, formatted)
	}
	return nil
}

func (h *bridgeHandler) put(fields Fields, a slog.Attr) {
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	if _, ok := h.redactions[a.Key]; ok {
		fields[key] = "[REDACTED]"
		return
	}
	fields[key] = a.Value.Any()
}

// WithAttrs returns a copy of the handler with additional base attributes.
func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	if len(attrs) > 0 {
		nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	}
	return &nh
}

// WithGroup returns a copy of the handler that prefixes subsequent keys.
func (h *bridgeHandler) WithGroup(name string) slog.Handler {
	nh := *h
	if h.group != "" && name != "" {
		name = h.group + "." + name
	}
	nh.group = name
	return &nh
}

// withRedactions returns a copy of the handler that redacts the provided keys.
func (h *bridgeHandler) withRedactions(keys []string) *bridgeHandler {
	if len(keys) == 0 {
		return h
	}
	nh := *h
	nh.redactions = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		nh.redactions[k] = struct{}{}
	}
	return &nh
}

// sampler implements simple per-message sampling.
type sampler struct {
	mu         sync.Mutex
	initial    uint64
	thereafter uint64
	counts     map[string]uint64
}

func newSampler(initial, thereafter int) *sampler {
	if initial < 0 {
		initial = 0
	}
	if thereafter <= 0 {
		thereafter = 1
	}
	return &sampler{
		initial:    uint64(initial),
		thereafter: uint64(thereafter),
		counts:     make(map[string]uint64),
	}
}

func (s *sampler) allow(level slog.Level, message string) bool {
	key := strconv.Itoa(int(level)) + ":" + message
	s.mu.Lock()
	n := s.counts[key]
	s.counts[key] = n + 1
	s.mu.Unlock()
	if n < s.initial {
		return true
	}
	return (n-s.initial)%s.thereafter == 0
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	case FatalLevel:
		return LevelFatal
	default:
		return slog.LevelInfo
	}
}

// FromSlogLevel maps a slog.Level onto the nearest Level.
func FromSlogLevel(level slog.Level) Level {
	switch {
	case level < slog.LevelInfo:
		return DebugLevel
	case level < slog.LevelWarn:
		return InfoLevel
	case level < slog.LevelError:
		return WarnLevel
	case level < LevelFatal:
		return ErrorLevel
	default:
		return FatalLevel
	}
}

func attrsFromMap(m Fields) []slog.Attr {
	if len(m) == 0 {
		return nil
	}
	attrs := make([]slog.Attr, 0, len(m))
	for k, v := range m {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func attrsFromFieldSlice(fields []Field) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	return attrs
}

// itoa is a small fast int to string for non-negative numbers.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	bp := len(buf)
	for i > 0 {
		bp--
		buf[bp] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[bp:])
}
