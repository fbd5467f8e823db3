// Package shell runs the interactive asrclient prompt: it reads operator
// lines and dispatches them without ever waiting on a running session.
package shell

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// DefaultPrompt is printed before every read.
const DefaultPrompt = "asrclient-cli> "

// Config wires a Shell.
type Config struct {
	Input        io.Reader
	Prompt       string
	MaxLineBytes int
	Dispatcher   *Dispatcher
	Console      Console
	Logger       *slog.Logger
}

// Shell is the read-dispatch loop.
type Shell struct {
	reader     *LineReader
	prompt     string
	dispatcher *Dispatcher
	console    Console
	logger     *slog.Logger
}

// New builds a shell from cfg.
func New(cfg Config) *Shell {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Shell{
		reader:     NewLineReader(cfg.Input, cfg.MaxLineBytes),
		prompt:     prompt,
		dispatcher: cfg.Dispatcher,
		console:    cfg.Console,
		logger:     logger,
	}
}

type readResult struct {
	line      string
	truncated bool
	err       error
}

// Run loops until quit/exit or end of input, both of which return nil, or
// until ctx is cancelled, which returns ctx.Err().
func (s *Shell) Run(ctx context.Context) error {
	lines := make(chan readResult)
	next := make(chan struct{})
	defer close(next)

	go s.readLoop(ctx, lines, next)

	for {
		s.console.Prompt(s.prompt)

		var res readResult
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res = <-lines:
		}

		if res.err != nil {
			if errors.Is(res.err, io.EOF) {
				s.logger.Info("shell input closed")
				return nil
			}
			return res.err
		}
		if res.truncated {
			s.console.Warn("line truncated to the maximum line length")
			s.logger.Warn("shell line truncated", "kept_bytes", len(res.line))
		}

		if strings.TrimSpace(res.line) != "" && !s.dispatcher.Dispatch(ctx, res.line) {
			return nil
		}

		select {
		case next <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// readLoop reads one line per request so input past a quit stays unread.
func (s *Shell) readLoop(ctx context.Context, lines chan<- readResult, next <-chan struct{}) {
	for {
		line, truncated, err := s.reader.ReadLine()
		select {
		case lines <- readResult{line: line, truncated: truncated, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
		if _, ok := <-next; !ok {
			return
		}
	}
}
