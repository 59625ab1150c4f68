// Package log provides flodiag's structured logging facade and utilities.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that feeds a formatter/outputs
// pipeline, so slog-based code and facade-based code share one output.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("refresher"), log.Str("dir", "/var/log/app"))
//	l.Info("diagnostics file opened", log.Int("size_kb", 1024))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config, supporting JSON
// or text formatting and multiple outputs (console, file, null). Redaction and
// sampling are applied inside the slog bridge.
//
// Level is also the severity type of the self-diagnostics listener, and
// ParseLevel understands the event level names (verbose, informational,
// warning, critical) used in diagnostics config files.
//
// # Interop
//
// To integrate with libraries expecting *log.Logger, use ToStdLogger or
// RedirectStdLog. NewSlogHandler returns the slog.Handler behind a Logger.
package log
