package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/estelamoura/unimrcp/internal/engine"
)

// ErrSpawn indicates the session goroutine could not be started.
var ErrSpawn = errors.New("unable to start session")

// Spawner starts fn as an independent unit of work.
type Spawner interface {
	Spawn(fn func()) error
}

// SpawnFunc adapts a function to the Spawner interface.
type SpawnFunc func(fn func()) error

func (f SpawnFunc) Spawn(fn func()) error {
	return f(fn)
}

// GoSpawner runs each unit on a new goroutine.
type GoSpawner struct{}

func (GoSpawner) Spawn(fn func()) error {
	go fn()
	return nil
}

// Handle tracks one launched session. Done yields the summary once and is
// then closed.
type Handle struct {
	id   int
	done chan Summary
}

// ID returns the session id.
func (h *Handle) ID() int { return h.id }

// Done returns the completion channel.
func (h *Handle) Done() <-chan Summary { return h.done }

func (h *Handle) finish(summary Summary) {
	h.done <- summary
	close(h.done)
}

// LauncherConfig wires a Launcher.
type LauncherConfig struct {
	Engine         engine.Engine
	Reporter       Reporter
	Logger         *slog.Logger
	DefaultProfile string
	// Optional; defaults to a fresh Counter, GoSpawner and Registry.
	Counter  *Counter
	Spawner  Spawner
	Registry *Registry
}

// Launcher validates run requests and starts one Runner per request.
type Launcher struct {
	cfg LauncherConfig
}

// NewLauncher fills defaults into cfg.
func NewLauncher(cfg LauncherConfig) *Launcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Reporter == nil {
		cfg.Reporter = discardReporter{}
	}
	if cfg.Counter == nil {
		cfg.Counter = &Counter{}
	}
	if cfg.Spawner == nil {
		cfg.Spawner = GoSpawner{}
	}
	if cfg.Registry == nil {
		cfg.Registry = &Registry{}
	}
	if strings.TrimSpace(cfg.DefaultProfile) == "" {
		cfg.DefaultProfile = "uni2"
	}
	return &Launcher{cfg: cfg}
}

// Stats returns the session counts.
func (l *Launcher) Stats() Stats {
	return l.cfg.Registry.Stats()
}

// Launch validates req and starts its session without waiting for it. A
// request that fails validation consumes no id and starts nothing.
func (l *Launcher) Launch(ctx context.Context, req Request) (*Handle, error) {
	if err := req.validate(); err != nil {
		l.cfg.Logger.Warn("run rejected", "error", err.Error())
		return nil, err
	}

	profile := req.Profile
	if profile == "" {
		profile = l.cfg.DefaultProfile
	}

	id := l.cfg.Counter.Next()
	arena := NewArena(ctx)
	desc := Descriptor{
		ID:          id,
		Profile:     profile,
		GrammarURI:  req.GrammarURI,
		InputFile:   req.InputFile,
		Repetitions: ParseRepetitions(req.Repetitions),
		Directives: engine.Directives{
			SendDefineGrammar: ParseDirective(req.SendDefineGrammar),
			SendSetParams:     ParseDirective(req.SendSetParams),
		},
		Engine: l.cfg.Engine,
		Arena:  arena,
	}

	l.cfg.Reporter.Launched(desc)
	l.cfg.Logger.Info("session launched",
		"session", id,
		"profile", profile,
		"grammar_uri", desc.GrammarURI,
		"input_file", desc.InputFile,
		"repetitions", desc.Repetitions,
		"send_define_grammar", desc.Directives.SendDefineGrammar,
		"send_set_params", desc.Directives.SendSetParams,
	)

	handle := &Handle{id: id, done: make(chan Summary, 1)}
	runner := NewRunner(desc, l.cfg.Reporter, l.cfg.Logger)
	registry := l.cfg.Registry
	registry.started(id)
	arena.OnRelease(registry.released)

	err := l.cfg.Spawner.Spawn(func() {
		summary := runner.Run(arena.Context())
		registry.finished(summary)
		handle.finish(summary)
	})
	if err != nil {
		arena.Release()
		registry.abandoned()
		l.cfg.Logger.Error("unable to start session", "session", id, "error", err.Error())
		return nil, fmt.Errorf("%w %d: %v", ErrSpawn, id, err)
	}
	return handle, nil
}

type discardReporter struct{}

func (discardReporter) Launched(Descriptor)       {}
func (discardReporter) Pass(PassReport)           {}
func (discardReporter) Failed(int, string, error) {}
