// Package logging wraps arbor so every component of the assistant logs the same way.
package logging

import (
	"os"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// Logger wraps arbor.ILogger to provide a consistent interface.
type Logger struct {
	arbor.ILogger
}

// discardWriter implements writers.IWriter and drops everything written to it.
type discardWriter struct{}

func (w *discardWriter) Write(p []byte) (int, error)           { return len(p), nil }
func (w *discardWriter) WithLevel(_ log.Level) writers.IWriter { return w }
func (w *discardWriter) GetFilePath() string                   { return "" }
func (w *discardWriter) Close() error                          { return nil }

// New creates a logger that writes to stderr at the given level
// ("debug", "info", "warn", "error"). An empty level means "info".
func New(level string) *Logger {
	if level == "" {
		level = "info"
	}
	l := arbor.NewLogger().
		WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			Writer:     os.Stderr,
			TimeFormat: timeFormat,
		}).
		WithLevelFromString(level)
	return &Logger{ILogger: l}
}

// NewSilent returns a logger that discards all output. Tests use it.
func NewSilent() *Logger {
	return &Logger{ILogger: arbor.NewLogger().WithWriters([]writers.IWriter{&discardWriter{}})}
}

// WithCorrelationId returns a new Logger tagged with the given correlation id.
func (l *Logger) WithCorrelationId(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}

// OrSilent returns l, or a silent logger when l is nil, so components can
// accept an optional logger without nil checks at every call site.
func OrSilent(l *Logger) *Logger {
	if l == nil {
		return NewSilent()
	}
	return l
}
