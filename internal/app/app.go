// Package app wires configuration, logging, the recognition engine, and the
// interactive shell behind the asrclient command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/estelamoura/unimrcp/internal/assets"
	"github.com/estelamoura/unimrcp/internal/cli"
	"github.com/estelamoura/unimrcp/internal/config"
	"github.com/estelamoura/unimrcp/internal/engine"
	"github.com/estelamoura/unimrcp/internal/engine/loopback"
	"github.com/estelamoura/unimrcp/internal/engine/remote"
	"github.com/estelamoura/unimrcp/internal/logging"
	"github.com/estelamoura/unimrcp/internal/version"
)

// Runner executes one asrclient invocation.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Logger replaces the configured logger when set.
	Logger *slog.Logger

	// onServe observes the bound address of `serve`.
	onServe func(addr string)
}

var _ cli.Handlers = Runner{}

// Execute runs asrclient with os.Stdin as the shell input.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute runs args and returns the process exit code.
func (r Runner) Execute(ctx context.Context, args []string) int {
	if r.Stdin == nil {
		r.Stdin = strings.NewReader("")
	}

	root := cli.NewRootCommand(r, version.String(), r.Stdout, r.Stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	code := cli.ExitCode(err)
	if code == 2 {
		fmt.Fprintf(r.Stderr, "\n%s", root.UsageString())
	}
	return code
}

// environment is the resolved configuration and logging of one invocation.
type environment struct {
	rootDir string
	loaded  config.Loaded
	cfg     config.Config
	catalog config.Catalog
	logs    logging.Runtime
	logger  *slog.Logger
}

func (e *environment) close() {
	_ = e.logs.Close()
}

// setup loads the configuration, applies command line overrides and starts logging.
func (r Runner) setup(opts cli.Options) (*environment, error) {
	rootDir := strings.TrimSpace(opts.RootDir)
	if rootDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve root dir: %w", err)
		}
		rootDir = wd
	}

	loaded, err := config.Load(opts.ConfigPath, rootDir)
	if err != nil {
		return nil, err
	}
	cfg := loaded.Config
	if opts.Engine != "" {
		cfg.Engine.Kind = opts.Engine
	}
	if opts.LogPriority != cli.Unset {
		cfg.Log.Priority = opts.LogPriority
	}
	if opts.LogOutput != cli.Unset {
		cfg.Log.Output = opts.LogOutput
	}

	logs, err := logging.New(logging.Options{
		Priority: cfg.Log.Priority,
		Output:   cfg.Log.Output,
		Console:  r.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	logger := r.Logger
	if logger == nil {
		logger = logs.Logger
	}

	for _, w := range loaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	catalog, err := config.LoadCatalog(cfg.ResolveProfilesPath(rootDir))
	if err != nil {
		_ = logs.Close()
		return nil, err
	}

	logger.Info("command start",
		"root_dir", rootDir,
		"config", loaded.Path,
		"engine", cfg.Engine.Kind,
		"log", logs.Path,
	)

	return &environment{
		rootDir: rootDir,
		loaded:  loaded,
		cfg:     cfg,
		catalog: catalog,
		logs:    logs,
		logger:  logger,
	}, nil
}

func (e *environment) resolver() *assets.Resolver {
	resolver := assets.NewResolver(e.cfg.ResolveDataDir(e.rootDir))
	resolver.Device = e.cfg.Audio.Input
	return resolver
}

func (e *environment) loopback() *loopback.Engine {
	return loopback.New(loopback.Options{
		Catalog:    e.catalog,
		Resolver:   e.resolver(),
		SetParams:  e.cfg.SetParams,
		Recognize:  e.cfg.Recognize,
		Latency:    time.Duration(e.cfg.Engine.LatencyMS) * time.Millisecond,
		Logger:     e.logger.With("component", "loopback"),
		OnPriority: e.logs.SetPriority,
	})
}

// newEngine opens the configured engine. The returned engine owns any debug
// dump file and closes it with itself.
func (r Runner) newEngine(ctx context.Context, env *environment) (engine.Engine, error) {
	cfg := env.cfg
	if cfg.Engine.Kind != config.EngineGRPC {
		eng := env.loopback()
		env.logger.Info("engine ready", "engine", eng.Describe())
		return eng, nil
	}

	clientCfg := remote.ClientConfig{
		Endpoint:    cfg.Engine.GRPC,
		Token:       cfg.Engine.Token,
		DialTimeout: time.Duration(cfg.Engine.DialTimeoutMS) * time.Millisecond,
		Resolver:    env.resolver(),
		Logger:      env.logger.With("component", "remote"),
		OnPriority:  env.logs.SetPriority,
	}

	var dump *os.File
	if cfg.Debug.EnableGRPCDump {
		f, err := remote.CreateDumpFile()
		if err != nil {
			env.logger.Warn("grpc debug dump disabled", "error", err.Error())
		} else {
			dump = f
			clientCfg.DebugResponseSinkJSON = f
			env.logger.Info("grpc debug dump enabled", "path", f.Name())
		}
	}

	client, err := remote.Dial(ctx, clientCfg)
	if err != nil {
		if dump != nil {
			_ = dump.Close()
		}
		return nil, err
	}
	env.logger.Info("engine ready", "engine", "grpc", "endpoint", cfg.Engine.GRPC)
	if dump == nil {
		return client, nil
	}
	return closingEngine{Engine: client, extra: dump}, nil
}

// closingEngine closes extra after the engine.
type closingEngine struct {
	engine.Engine
	extra io.Closer
}

func (c closingEngine) Close() error {
	return errors.Join(c.Engine.Close(), c.extra.Close())
}
