// Package log provides a structured logging system for flodiag components.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Fields is a map of field names to values.
type Fields map[string]interface{}

// Context keys for propagating logging context
const (
	RequestIDKey = "request_id"
	TraceIDKey   = "trace_id"
	SpanIDKey    = "span_id"
	ComponentKey = "component"
	OperationKey = "operation"
)

// Entry represents a single log entry.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
	Caller    string
	Error     error
}

// Logger defines the core logging interface for flodiag components.
type Logger interface {
	// Standard logging methods with structured context (Field-based API)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// Printf-style variants
	Debugf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
	Fatalf(msg string, args ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger

	// With adds multiple fields to the logger
	With(fields ...Field) Logger

	// WithContext adds request context to the Logger
	WithContext(ctx context.Context) Logger

	// WithComponent tags logs with a component name
	WithComponent(component string) Logger

	// SetLevel sets the minimum log level
	SetLevel(level Level)

	// GetLevel returns the current minimum log level
	GetLevel() Level
}

// Formatter defines the interface for formatting log entries.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output defines the interface for log outputs.
type Output interface {
	Write(entry *Entry, formattedEntry []byte) error
	Close() error
}

// LoggerOption is a function that configures a logger.
type LoggerOption func(*BaseLogger)

// BaseLogger implements the Logger interface.
type BaseLogger struct {
	// level is shared between a logger and the children derived from it.
	level      *atomic.Int32
	fields     Fields
	formatter  Formatter
	outputs    []Output
	redactions []string
	sampler    *sampler
	slogLogger *slog.Logger
}

// ContextExtractor extracts logging context from a context.Context.
func ContextExtractor(ctx context.Context) Fields {
	if ctx == nil {
		return Fields{}
	}

	fields := Fields{}
	for _, k := range []string{RequestIDKey, TraceIDKey, SpanIDKey, ComponentKey, OperationKey} {
		if v := ctx.Value(k); v != nil {
			fields[k] = v
		}
	}
	return fields
}

// NewLogger creates a new logger with the given options.
func NewLogger(options ...LoggerOption) Logger {
	logger := &BaseLogger{
		level:     new(atomic.Int32),
		fields:    Fields{},
		formatter: &JSONFormatter{},
		outputs:   []Output{},
	}
	logger.level.Store(int32(InfoLevel))

	for _, option := range options {
		option(logger)
	}

	if len(logger.outputs) == 0 {
		logger.outputs = append(logger.outputs, &ConsoleOutput{})
	}

	logger.slogLogger = slog.New(newBridgeHandler(logger))
	return logger
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) {
		l.level.Store(int32(level))
	}
}

// WithFormatter sets the log formatter.
func WithFormatter(formatter Formatter) LoggerOption {
	return func(l *BaseLogger) {
		l.formatter = formatter
	}
}

// WithOutput adds an output to the logger.
func WithOutput(output Output) LoggerOption {
	return func(l *BaseLogger) {
		l.outputs = append(l.outputs, output)
	}
}

// WithRedactedKeys replaces the values of the named fields with [REDACTED].
func WithRedactedKeys(keys ...string) LoggerOption {
	return func(l *BaseLogger) {
		l.redactions = append(l.redactions, keys...)
	}
}

// WithSampling logs the first initial occurrences of a message per level and
// every thereafter-th occurrence after that.
func WithSampling(initial, thereafter int) LoggerOption {
	return func(l *BaseLogger) {
		if thereafter > 0 {
			l.sampler = newSampler(initial, thereafter)
		}
	}
}

// Slog exposes the slog.Logger backing this logger.
func (l *BaseLogger) Slog() *slog.Logger { return l.slogLogger }

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// Fatal logs at FatalLevel and exits the process.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields)
	os.Exit(1)
}

func (l *BaseLogger) Debugf(msg string, args ...interface{}) { l.logf(DebugLevel, msg, args) }
func (l *BaseLogger) Infof(msg string, args ...interface{})  { l.logf(InfoLevel, msg, args) }
func (l *BaseLogger) Warnf(msg string, args ...interface{})  { l.logf(WarnLevel, msg, args) }
func (l *BaseLogger) Errorf(msg string, args ...interface{}) { l.logf(ErrorLevel, msg, args) }

// Fatalf logs a formatted message at FatalLevel and exits the process.
func (l *BaseLogger) Fatalf(msg string, args ...interface{}) {
	l.logf(FatalLevel, msg, args)
	os.Exit(1)
}

func (l *BaseLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(Fields{key: value})
}

func (l *BaseLogger) WithFields(fields Fields) Logger {
	nl := l.clone()
	for k, v := range fields {
		nl.fields[k] = v
	}
	nl.slogLogger = slog.New(newBridgeHandler(nl))
	return nl
}

func (l *BaseLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithFields(Fields{"error": err.Error()})
}

func (l *BaseLogger) With(fields ...Field) Logger {
	m := make(Fields, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return l.WithFields(m)
}

func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	return l.WithFields(ContextExtractor(ctx))
}

func (l *BaseLogger) WithComponent(component string) Logger {
	return l.WithFields(Fields{ComponentKey: component})
}

func (l *BaseLogger) SetLevel(level Level) { l.level.Store(int32(level)) }

func (l *BaseLogger) GetLevel() Level { return Level(l.level.Load()) }

func (l *BaseLogger) clone() *BaseLogger {
	nl := *l
	nl.fields = make(Fields, len(l.fields))
	for k, v := range l.fields {
		nl.fields[k] = v
	}
	return &nl
}

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	if level < l.GetLevel() {
		return
	}
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrsFromFieldSlice(fields)...)
}

func (l *BaseLogger) logf(level Level, msg string, args []interface{}) {
	if level < l.GetLevel() {
		return
	}
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), fmt.Sprintf(msg, args...))
}
