// Package logging builds the structured logger shared by every component.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level   string `mapstructure:"level"`   // debug, info, warn, error
	Dir     string `mapstructure:"dir"`     // empty disables the log file
	Console bool   `mapstructure:"console"` // human-readable stderr output
	History int    `mapstructure:"history"` // entries kept for the on-screen log
}

func DefaultConfig() Config {
	return Config{Level: "info", Console: true, History: 8}
}

// Entry is one line of in-memory history.
type Entry struct {
	Time      time.Time
	Level     string
	Component string
	Message   string
}

// Logger owns the root zerolog.Logger and its sinks.
type Logger struct {
	zlog    zerolog.Logger
	file    *os.File
	history *History
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates the root logger. With a Dir set, output is also appended to a
// dated file inside it.
func New(cfg Config) (*Logger, error) {
	var writers []io.Writer
	l := &Logger{history: NewHistory(cfg.History)}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("logging: create log directory: %w", err)
		}
		path := filepath.Join(cfg.Dir, fmt.Sprintf("splatview_%s.log", time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		l.file = f
		writers = append(writers, f)
	}
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	if l.history.Cap() > 0 {
		writers = append(writers, l.history)
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = zerolog.MultiLevelWriter(writers...)
	}
	l.zlog = zerolog.New(out).Level(ParseLevel(cfg.Level)).With().
		Timestamp().
		Str("app", "splatview").
		Logger()
	return l, nil
}

// Component returns a logger tagged with the component name.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}

// Zerolog returns the root logger.
func (l *Logger) Zerolog() zerolog.Logger { return l.zlog }

// History returns the in-memory log tail.
func (l *Logger) History() *History { return l.history }

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// History is a ring of recent entries, fed by the logger's JSON output.
type History struct {
	mu      sync.Mutex
	entries []Entry
	max     int
}

func NewHistory(max int) *History {
	if max < 0 {
		max = 0
	}
	return &History{max: max}
}

func (h *History) Cap() int { return h.max }

// Write implements io.Writer for zerolog JSON lines.
func (h *History) Write(p []byte) (int, error) {
	var raw struct {
		Level     string `json:"level"`
		Component string `json:"component"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(p, &raw); err != nil {
		return len(p), nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, Entry{Time: time.Now(), Level: raw.Level, Component: raw.Component, Message: raw.Message})
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
	return len(p), nil
}

// Recent returns up to n of the newest entries, oldest first.
func (h *History) Recent(n int) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]Entry, n)
	copy(out, h.entries[len(h.entries)-n:])
	return out
}
