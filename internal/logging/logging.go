// Package logging builds the structured logger shared by commands and the explorer.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	clog "github.com/charmbracelet/log"
)

// New returns a logger writing to w at the given level name.
func New(w io.Writer, level string) *clog.Logger {
	logger := clog.NewWithOptions(w, clog.Options{
		Prefix:          "pronocloud",
		Level:           ParseLevel(level),
		ReportTimestamp: true,
	})
	return logger
}

// ParseLevel maps a level name to a log level, defaulting to info.
func ParseLevel(level string) clog.Level {
	lvl, err := clog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return clog.InfoLevel
	}
	return lvl
}

// OpenFile returns a logger appending to path plus a close func.
func OpenFile(path, level string) (*clog.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(f, level), f.Close, nil
}

// Discard returns a logger that drops everything.
func Discard() *clog.Logger {
	return New(io.Discard, "error")
}
