package log

import (
	"bytes"
	stdlog "log"
)

type stdWriter struct {
	logger Logger
	level  Level
}

func (w stdWriter) Write(p []byte) (int, error) {
	msg := string(bytes.TrimRight(p, "\n"))
	switch w.level {
	case DebugLevel:
		w.logger.Debug(msg)
	case WarnLevel:
		w.logger.Warn(msg)
	case ErrorLevel, FatalLevel:
		w.logger.Error(msg)
	default:
		w.logger.Info(msg)
	}
	return len(p), nil
}

// ToStdLogger adapts l to a *log.Logger writing at the given level.
func ToStdLogger(l Logger, level Level) *stdlog.Logger {
	return stdlog.New(stdWriter{logger: l, level: level}, "", 0)
}

// RedirectStdLog routes the standard library's default logger into l at
// InfoLevel.
func RedirectStdLog(l Logger) {
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(stdWriter{logger: l, level: InfoLevel})
}
