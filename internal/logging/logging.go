// Package logging supplies the process-wide structured logger. Packages
// depend on the Logger interface, never on zerolog directly, so tests can
// swap in NopLogger or MockLogger without pulling in the real sink.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the minimal structured-logging interface used throughout the
// pipeline.
type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Debug(msg string, fields map[string]any)
}

// ZerologLogger adapts zerolog.Logger to Logger.
type ZerologLogger struct {
	z zerolog.Logger
}

// New builds a ZerologLogger writing to w at the given level ("debug",
// "info", "error", ...). An unrecognised level falls back to info.
func New(w io.Writer, level string) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	z := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &ZerologLogger{z: z}
}

func (l *ZerologLogger) with(ev *zerolog.Event, fields map[string]any) *zerolog.Event {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	return ev
}

func (l *ZerologLogger) Info(msg string, fields map[string]any) {
	l.with(l.z.Info(), fields).Msg(msg)
}

func (l *ZerologLogger) Error(msg string, fields map[string]any) {
	l.with(l.z.Error(), fields).Msg(msg)
}

func (l *ZerologLogger) Debug(msg string, fields map[string]any) {
	l.with(l.z.Debug(), fields).Msg(msg)
}

// NopLogger discards everything; used as a safe zero value.
type NopLogger struct{}

func (NopLogger) Info(string, map[string]any)  {}
func (NopLogger) Error(string, map[string]any) {}
func (NopLogger) Debug(string, map[string]any) {}

// entry records one call for MockLogger's inspection in tests.
type entry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

// MockLogger records calls for assertions in tests rather than writing
// anywhere.
type MockLogger struct {
	Entries []entry
}

func (m *MockLogger) Info(msg string, fields map[string]any) {
	m.Entries = append(m.Entries, entry{"info", msg, fields})
}

func (m *MockLogger) Error(msg string, fields map[string]any) {
	m.Entries = append(m.Entries, entry{"error", msg, fields})
}

func (m *MockLogger) Debug(msg string, fields map[string]any) {
	m.Entries = append(m.Entries, entry{"debug", msg, fields})
}

// Count returns how many entries were recorded at the given level.
func (m *MockLogger) Count(level string) int {
	n := 0
	for _, e := range m.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}
