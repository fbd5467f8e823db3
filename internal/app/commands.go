package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/estelamoura/unimrcp/internal/audio"
	"github.com/estelamoura/unimrcp/internal/cli"
	"github.com/estelamoura/unimrcp/internal/console"
	"github.com/estelamoura/unimrcp/internal/doctor"
	"github.com/estelamoura/unimrcp/internal/engine/remote"
	"github.com/estelamoura/unimrcp/internal/ipc"
	"github.com/estelamoura/unimrcp/internal/session"
	"github.com/estelamoura/unimrcp/internal/shell"
)

const controlTimeout = 500 * time.Millisecond

// Shell runs the interactive prompt until quit, end of input, or a signal.
func (r Runner) Shell(ctx context.Context, opts cli.Options) error {
	env, err := r.setup(opts)
	if err != nil {
		return err
	}
	defer env.close()

	eng, err := r.newEngine(ctx, env)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := eng.Close(); closeErr != nil {
			env.logger.Warn("close engine", "error", closeErr.Error())
		}
	}()

	printer := console.New(r.Stdout)
	launcher := session.NewLauncher(session.LauncherConfig{
		Engine:         eng,
		Reporter:       printer,
		Logger:         env.logger,
		DefaultProfile: env.cfg.Session.DefaultProfile,
	})
	help := shell.HelpText(env.cfg, env.catalog.Names())
	dispatcher := shell.NewDispatcher(launcher, eng, printer, help, env.logger)

	stopControl := r.startControl(ctx, env, launcher, dispatcher, printer)
	defer stopControl()

	sh := shell.New(shell.Config{
		Input:        r.Stdin,
		Prompt:       env.cfg.Shell.Prompt,
		MaxLineBytes: env.cfg.Shell.MaxLineBytes,
		Dispatcher:   dispatcher,
		Console:      printer,
		Logger:       env.logger,
	})

	err = sh.Run(ctx)
	stats := launcher.Stats()
	env.logger.Info("shell stop",
		"launched", stats.Launched,
		"active", stats.Active,
		"completed", stats.Completed,
		"failed", stats.Failed,
	)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(r.Stdout)
		return nil
	}
	return err
}

// startControl serves the control socket for the shell's lifetime. A missing
// runtime dir or a second shell only costs the socket, never the shell.
func (r Runner) startControl(ctx context.Context, env *environment, launcher *session.Launcher, dispatcher *shell.Dispatcher, printer *console.Printer) func() {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		env.logger.Debug("control socket disabled", "error", err.Error())
		return func() {}
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			printer.Warn("another asrclient shell owns " + socketPath + "; control socket disabled")
		}
		env.logger.Warn("control socket disabled", "path", socketPath, "error", err.Error())
		return func() {}
	}

	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(serveCtx, listener, controlHandler(launcher, dispatcher))
	}()
	env.logger.Debug("control socket ready", "path", socketPath)

	return func() {
		cancel()
		if serveErr := <-done; serveErr != nil {
			env.logger.Warn("control socket failed", "error", serveErr.Error())
		}
		if releaseErr := ipc.Release(listener, socketPath); releaseErr != nil {
			env.logger.Warn("release control socket", "error", releaseErr.Error())
		}
	}
}

func controlHandler(launcher *session.Launcher, dispatcher *shell.Dispatcher) ipc.Handler {
	return ipc.HandlerFunc(func(ctx context.Context, req ipc.Request) ipc.Response {
		switch req.Command {
		case ipc.CommandStatus:
			stats := launcher.Stats()
			return ipc.Response{OK: true, PID: os.Getpid(), Stats: &stats}
		case ipc.CommandExec:
			fields := strings.Fields(req.Line)
			if len(fields) == 0 {
				return ipc.Response{OK: false, Error: shell.ErrEmptyCommand.Error()}
			}
			switch strings.ToLower(fields[0]) {
			case "quit", "exit":
				return ipc.Response{OK: false, Error: fields[0] + " is only accepted at the prompt"}
			}
			dispatcher.Dispatch(ctx, req.Line)
			return ipc.Response{OK: true, Message: "dispatched: " + strings.Join(fields, " ")}
		default:
			return ipc.Response{OK: false, Error: fmt.Sprintf("unknown control command %q", req.Command)}
		}
	})
}

// Status prints the session counters of the running shell, or idle.
func (r Runner) Status(ctx context.Context, _ cli.Options) error {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return nil
	}

	resp, err := ipc.Forward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus}, controlTimeout)
	if errors.Is(err, ipc.ErrNoShell) {
		fmt.Fprintln(r.Stdout, "idle")
		return nil
	}
	if err != nil {
		return err
	}

	stats := session.Stats{}
	if resp.Stats != nil {
		stats = *resp.Stats
	}
	fmt.Fprintf(r.Stdout, "running pid=%d launched=%d active=%d completed=%d failed=%d last_id=%d\n",
		resp.PID, stats.Launched, stats.Active, stats.Completed, stats.Failed, stats.LastID)
	return nil
}

// Send forwards one shell line to the running shell.
func (r Runner) Send(ctx context.Context, _ cli.Options, line string) error {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}
	resp, err := ipc.Forward(ctx, socketPath, ipc.Request{Command: ipc.CommandExec, Line: line}, controlTimeout)
	if err != nil {
		return err
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return nil
}

// Doctor prints the readiness report.
func (r Runner) Doctor(ctx context.Context, opts cli.Options) error {
	env, err := r.setup(opts)
	if err != nil {
		return err
	}
	defer env.close()

	report := doctor.Run(ctx, doctor.Options{Loaded: env.loaded, RootDir: env.rootDir})
	fmt.Fprintln(r.Stdout, report.String())
	if !report.OK() {
		return errors.New("doctor found failing checks")
	}
	return nil
}

// Devices lists the Pulse input sources.
func (r Runner) Devices(ctx context.Context, _ cli.Options) error {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return errors.New("no audio devices found")
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s pulse:%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}
	return nil
}

// Serve exposes the loopback engine over gRPC until ctx ends.
func (r Runner) Serve(ctx context.Context, opts cli.Options, listen string) error {
	env, err := r.setup(opts)
	if err != nil {
		return err
	}
	defer env.close()

	if strings.TrimSpace(listen) == "" {
		listen = env.cfg.Engine.GRPC
	}
	lis, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}

	backend := env.loopback()
	defer backend.Close()

	srv := remote.NewServer(remote.ServerConfig{Token: env.cfg.Engine.Token, Logger: env.logger})
	health := remote.Register(srv, backend, env.logger)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(lis) }()

	addr := lis.Addr().String()
	env.logger.Info("recognizer serving", "addr", addr, "engine", backend.Describe())
	fmt.Fprintf(r.Stdout, "serving %s on %s\n", remote.ServiceName, addr)
	if r.onServe != nil {
		r.onServe(addr)
	}

	select {
	case <-ctx.Done():
	case err := <-served:
		return fmt.Errorf("serve %s: %w", addr, err)
	}

	health.Shutdown()
	srv.GracefulStop()
	<-served
	env.logger.Info("recognizer stopped", "addr", addr)
	return nil
}
