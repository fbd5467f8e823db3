// Package logging configures runtime logging on the 0 (emergency) .. 7 (debug)
// priority scale with console, JSONL file, or both as outputs.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Output modes.
const (
	OutputNone    = 0
	OutputConsole = 1
	OutputFile    = 2
	OutputBoth    = 3
)

// LevelCritical carries emergency, alert and critical records.
const LevelCritical = slog.LevelError + 4

// Options selects the logger priority and sinks.
type Options struct {
	Priority int
	Output   int
	// Console receives text records for OutputConsole and OutputBoth.
	// Defaults to os.Stderr.
	Console io.Writer
	// Path overrides the JSONL file location.
	Path string
}

// Runtime bundles the configured logger and its open file handle lifecycle.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	level  *slog.LevelVar
	closer io.Closer
}

// Close flushes and closes the logger output sink.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// SetPriority changes the minimum emitted priority live.
func (r Runtime) SetPriority(priority int) {
	if r.level == nil {
		return
	}
	r.level.Set(LevelForPriority(priority))
}

// LevelForPriority maps the 0..7 priority scale onto slog levels. Values
// outside the scale are clamped.
func LevelForPriority(priority int) slog.Level {
	switch {
	case priority <= 2:
		return LevelCritical
	case priority == 3:
		return slog.LevelError
	case priority == 4:
		return slog.LevelWarn
	case priority == 5:
		return slog.LevelInfo + 2
	case priority == 6:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// New builds the logger selected by opts.
func New(opts Options) (Runtime, error) {
	if opts.Output < OutputNone || opts.Output > OutputBoth {
		return Runtime{}, fmt.Errorf("log output mode %d is not one of 0-3", opts.Output)
	}

	level := new(slog.LevelVar)
	level.Set(LevelForPriority(opts.Priority))
	handlerOpts := &slog.HandlerOptions{Level: level}

	if opts.Output == OutputNone {
		return Runtime{Logger: slog.New(slog.DiscardHandler), level: level}, nil
	}

	var handlers []slog.Handler
	if opts.Output == OutputConsole || opts.Output == OutputBoth {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		handlers = append(handlers, slog.NewTextHandler(console, handlerOpts))
	}

	rt := Runtime{level: level}
	if opts.Output == OutputFile || opts.Output == OutputBoth {
		path := opts.Path
		if strings.TrimSpace(path) == "" {
			resolved, err := resolveLogPath()
			if err != nil {
				return Runtime{}, err
			}
			path = resolved
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return Runtime{}, err
		}

		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return Runtime{}, err
		}
		handlers = append(handlers, slog.NewJSONHandler(f, handlerOpts))
		rt.Path = path
		rt.closer = f
	}

	if len(handlers) == 1 {
		rt.Logger = slog.New(handlers[0])
	} else {
		rt.Logger = slog.New(teeHandler(handlers))
	}
	return rt, nil
}

// resolveLogPath selects XDG_STATE_HOME when available, otherwise ~/.local/state.
func resolveLogPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "asrclient", "log.jsonl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "asrclient", "log.jsonl"), nil
}

// teeHandler fans each record out to every handler enabled for its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
