package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/estelamoura/unimrcp/internal/session"
)

// ErrEmptyCommand is reported for a line with no command token.
var ErrEmptyCommand = errors.New("empty command (input help for usage)")

// Launcher starts one session per run command.
type Launcher interface {
	Launch(ctx context.Context, req session.Request) (*session.Handle, error)
}

// PrioritySetter receives loglevel changes.
type PrioritySetter interface {
	SetLogPriority(priority int)
}

// Console is the operator output used by the dispatcher and the shell.
type Console interface {
	Prompt(prompt string)
	Print(text string)
	Error(err error)
	Warn(message string)
}

// Dispatcher routes one operator line to its command handler. It keeps no
// state between lines and is safe for concurrent use.
type Dispatcher struct {
	launcher Launcher
	priority PrioritySetter
	console  Console
	help     string
	logger   *slog.Logger
}

// NewDispatcher wires a dispatcher. help is printed verbatim by `help`.
func NewDispatcher(launcher Launcher, priority PrioritySetter, console Console, help string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		launcher: launcher,
		priority: priority,
		console:  console,
		help:     help,
		logger:   logger,
	}
}

// Dispatch executes line and reports whether the shell keeps running. Only
// quit and exit return false.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		d.console.Error(ErrEmptyCommand)
		return true
	}

	name, args := fields[0], fields[1:]
	switch strings.ToLower(name) {
	case "run":
		d.run(ctx, args)
	case "loglevel":
		d.logLevel(args)
	case "help":
		d.console.Print(d.help)
	case "quit", "exit":
		d.logger.Debug("shell stop requested", "command", name)
		return false
	default:
		d.console.Print(fmt.Sprintf("Unknown command: %s (input help for usage)", name))
	}
	return true
}

func (d *Dispatcher) run(ctx context.Context, args []string) {
	req := session.Request{
		SendSetParams:     arg(args, 0),
		SendDefineGrammar: arg(args, 1),
		GrammarURI:        arg(args, 2),
		InputFile:         arg(args, 3),
		Repetitions:       arg(args, 4),
		Profile:           arg(args, 5),
	}
	if _, err := d.launcher.Launch(ctx, req); err != nil {
		d.console.Error(err)
	}
}

func (d *Dispatcher) logLevel(args []string) {
	raw := arg(args, 0)
	priority, err := strconv.Atoi(raw)
	if err != nil {
		d.logger.Debug("loglevel ignored", "value", raw)
		return
	}
	d.priority.SetLogPriority(priority)
}

// arg returns args[i], or "" when the token is absent.
func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
