package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/term"
)

// ConsoleOutput writes formatted entries to stderr (or a custom writer).
// Levels are colourised when the destination is a terminal.
type ConsoleOutput struct {
	mu     sync.Mutex
	w      io.Writer
	colors bool
}

// NewConsoleOutput returns a ConsoleOutput writing to stderr.
func NewConsoleOutput() *ConsoleOutput {
	return &ConsoleOutput{w: os.Stderr, colors: term.IsTerminal(int(os.Stderr.Fd()))}
}

// NewWriterOutput returns a ConsoleOutput writing to w without colours.
func NewWriterOutput(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{w: w}
}

var levelColors = map[Level]string{
	DebugLevel: "\x1b[90m",
	InfoLevel:  "\x1b[36m",
	WarnLevel:  "\x1b[33m",
	ErrorLevel: "\x1b[31m",
	FatalLevel: "\x1b[35m",
}

// Write implements Output.
func (o *ConsoleOutput) Write(entry *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	w := o.w
	if w == nil {
		w = os.Stderr
	}
	if o.colors {
		if c, ok := levelColors[entry.Level]; ok {
			if _, err := io.WriteString(w, c); err != nil {
				return err
			}
			defer io.WriteString(w, "\x1b[0m")
		}
	}
	_, err := w.Write(formatted)
	return err
}

// Close implements Output.
func (o *ConsoleOutput) Close() error { return nil }

// FileOutput appends formatted entries to a file.
type FileOutput struct {
	mu sync.Mutex
	f  *os.File
}

// NewFileOutput opens (creating parent directories) path for appending.
func NewFileOutput(path string) (*FileOutput, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileOutput{f: f}, nil
}

// Write implements Output.
func (o *FileOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.f.Write(formatted)
	return err
}

// Close implements Output.
func (o *FileOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.f.Close()
}

// NullOutput discards everything.
type NullOutput struct{}

func (NullOutput) Write(*Entry, []byte) error { return nil }
func (NullOutput) Close() error               { return nil }
