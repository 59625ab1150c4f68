package log

import (
	"fmt"
	"strings"
)

// Config describes a logger declaratively.
type Config struct {
	// Level is one of debug|info|warn|error|fatal (event level names such as
	// verbose, informational, warning and critical are accepted too).
	Level string `json:"level" yaml:"level"`
	// Format is text or json.
	Format string `json:"format" yaml:"format"`
	// Outputs lists console, null, or file:<path>. Defaults to console.
	Outputs []string `json:"outputs" yaml:"outputs"`
	// RedactKeys lists field keys whose values are replaced.
	RedactKeys []string `json:"redactKeys" yaml:"redactKeys"`
	// SampleInitial/SampleThereafter enable per-message sampling when
	// SampleThereafter > 0.
	SampleInitial    int `json:"sampleInitial" yaml:"sampleInitial"`
	SampleThereafter int `json:"sampleThereafter" yaml:"sampleThereafter"`
}

// ParseLevel parses a level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "verbose", "trace":
		return DebugLevel, nil
	case "info", "informational", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal", "critical", "logalways":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := []LoggerOption{WithLevel(level)}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		opts = append(opts, WithFormatter(&TextFormatter{}))
	case "json":
		opts = append(opts, WithFormatter(&JSONFormatter{}))
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	for _, o := range cfg.Outputs {
		switch {
		case o == "console":
			opts = append(opts, WithOutput(NewConsoleOutput()))
		case o == "null":
			opts = append(opts, WithOutput(NullOutput{}))
		case strings.HasPrefix(o, "file:"):
			fo, err := NewFileOutput(strings.TrimPrefix(o, "file:"))
			if err != nil {
				return nil, fmt.Errorf("log output %q: %w", o, err)
			}
			opts = append(opts, WithOutput(fo))
		default:
			return nil, fmt.Errorf("unknown log output %q", o)
		}
	}
	if len(cfg.RedactKeys) > 0 {
		opts = append(opts, WithRedactedKeys(cfg.RedactKeys...))
	}
	if cfg.SampleThereafter > 0 {
		opts = append(opts, WithSampling(cfg.SampleInitial, cfg.SampleThereafter))
	}
	return NewLogger(opts...), nil
}
