// Package logging builds the structured logger shared by every component.
//
// Console output is human readable. When a file is configured, the same
// events are also written there as JSON lines, rotated by size.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is a zerolog level name. Empty means info.
	Level string
	// File is an optional JSON log file path.
	File string
	// MaxSizeMB is the rotation threshold of File. Zero means 10.
	MaxSizeMB int
	// Writer receives console output. Nil means os.Stderr.
	Writer  io.Writer
	NoColor bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger and a closer for its file sink.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if s := strings.TrimSpace(opts.Level); s != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		level = l
	}

	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}
	console := zerolog.ConsoleWriter{Out: out, NoColor: opts.NoColor, TimeFormat: time.TimeOnly}

	var (
		w      io.Writer = console
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		size := opts.MaxSizeMB
		if size <= 0 {
			size = 10
		}
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    size,
			MaxBackups: 3,
		}
		w = zerolog.MultiLevelWriter(console, file)
		closer = file
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// Component returns l tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
