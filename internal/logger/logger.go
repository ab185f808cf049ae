// Package logger builds the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Options selects the level and output format.
type Options struct {
	// Env "local" forces debug level.
	Env    string
	Level  string
	Format string // text, json or both

	// Out and Err default to os.Stdout and os.Stderr.
	Out io.Writer
	Err io.Writer
}

// New returns a logger for opts. Format "both" writes text to Out and JSON to Err.
func New(opts Options) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", opts.Level, err)
	}
	if opts.Env == "local" {
		level = slog.LevelDebug
	}

	out, errOut := opts.Out, opts.Err
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch opts.Format {
	case "", "text":
		h = slog.NewTextHandler(out, handlerOpts)
	case "json":
		h = slog.NewJSONHandler(out, handlerOpts)
	case "both":
		h = slog.NewMultiHandler(
			slog.NewTextHandler(out, handlerOpts),
			slog.NewJSONHandler(errOut, handlerOpts),
		)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	return slog.New(h).With(slog.String("env", opts.Env)), nil
}
