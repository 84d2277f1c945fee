// Package logging builds the logrus loggers used by the CLI, the TUI and
// the API server.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// FileName is the log file written inside the board directory.
const FileName = "trackle.log"

// DebugEnv forces debug level when set to a true value.
const DebugEnv = "TRACKLE_DEBUG"

const logFileMode = 0o600

// Options controls logger construction.
type Options struct {
	Level  string // debug, info, warn or error; default info
	Format string // text or json; default text

	// Output receives log lines. When nil and File is set, File is
	// opened for append; when both are empty logs are discarded.
	Output io.Writer
	File   string
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ValidLevel reports whether s names a supported level.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// ValidFormat reports whether s names a supported format.
func ValidFormat(s string) bool {
	return s == "" || s == "text" || s == "json"
}

// New returns a configured logger and a close function for any file it
// opened. The close function is never nil.
func New(opts Options) (*logrus.Logger, func() error, error) {
	log := logrus.New()
	closeFn := func() error { return nil }

	log.SetLevel(ParseLevel(opts.Level))
	if dbg, err := strconv.ParseBool(os.Getenv(DebugEnv)); err == nil && dbg {
		log.SetLevel(logrus.DebugLevel)
	}

	if opts.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	switch {
	case opts.Output != nil:
		log.SetOutput(opts.Output)
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return nil, closeFn, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFileMode) //nolint:gosec // path from board config
		if err != nil {
			return nil, closeFn, fmt.Errorf("opening log file: %w", err)
		}
		log.SetOutput(f)
		closeFn = f.Close
	default:
		log.SetOutput(io.Discard)
	}
	return log, closeFn, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
