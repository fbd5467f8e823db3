// Package cli declares the asrclient process command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// Engine flag values.
const (
	EngineLoopback = "loopback"
	EngineGRPC     = "grpc"
)

// Unset marks a numeric flag that was not given.
const Unset = -1

// Options are the global flags shared by every command.
type Options struct {
	RootDir     string
	ConfigPath  string
	Engine      string
	LogPriority int
	LogOutput   int
}

// Handlers implements the commands. Returned *UsageError values exit with 2.
type Handlers interface {
	Shell(ctx context.Context, opts Options) error
	Doctor(ctx context.Context, opts Options) error
	Devices(ctx context.Context, opts Options) error
	Status(ctx context.Context, opts Options) error
	Send(ctx context.Context, opts Options, line string) error
	Serve(ctx context.Context, opts Options, listen string) error
}

// UsageError is a command line mistake.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}

// NewRootCommand builds the command tree. versionText is printed by
// `version` and `--version`.
func NewRootCommand(h Handlers, versionText string, stdout, stderr io.Writer) *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "asrclient",
		Short: "Interactive speech recognition console client",
		Long: `asrclient opens an interactive shell that launches recognition sessions
against a speech recognition engine. Each "run" command starts a background
session performing one or more recognition passes while the prompt stays
available for further commands.`,
		Version:       versionText,
		Args:          noArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.Shell(cmd.Context(), *opts)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("{{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.RootDir, "root-dir", "r", "", "project root directory (conf/ and data/ live here)")
	flags.IntVarP(&opts.LogPriority, "log-prio", "l", Unset, "log priority (0-emergency, ..., 7-debug)")
	flags.IntVarP(&opts.LogOutput, "log-output", "o", Unset, "log output mode (0-none, 1-console only, 2-file only, 3-both)")
	flags.StringVar(&opts.ConfigPath, "config", "", "config file path (default: <root>/conf/asrclient.jsonc)")
	flags.StringVar(&opts.Engine, "engine", "", "recognition engine: loopback or grpc (default from config)")

	root.AddCommand(
		&cobra.Command{
			Use:   "doctor",
			Short: "Run configuration and engine readiness checks",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Doctor(cmd.Context(), *opts)
			},
		},
		&cobra.Command{
			Use:   "devices",
			Short: "List PulseAudio input sources usable as pulse: inputs",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Devices(cmd.Context(), *opts)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the session counters of the running shell",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Status(cmd.Context(), *opts)
			},
		},
		&cobra.Command{
			Use:     "send <command...>",
			Short:   "Forward one shell command to the running shell",
			Example: "  asrclient send run y y builtin:lm sample.raw 3",
			Args: func(_ *cobra.Command, args []string) error {
				if len(args) == 0 {
					return usageErrorf("send requires a shell command")
				}
				return nil
			},
			RunE: func(cmd *cobra.Command, args []string) error {
				return h.Send(cmd.Context(), *opts, strings.Join(args, " "))
			},
		},
		newServeCommand(h, opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), versionText)
				return err
			},
		},
	)

	return root
}

func newServeCommand(h Handlers, opts *Options) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the loopback engine as a gRPC recognizer service",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.Serve(cmd.Context(), *opts, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default: engine.grpc from config)")
	return cmd
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	if cmd.HasSubCommands() {
		return usageErrorf("unknown command %q for %q", args[0], cmd.CommandPath())
	}
	return usageErrorf("%q accepts no arguments, got %q", cmd.CommandPath(), args)
}

func (o Options) validate() error {
	if o.LogPriority != Unset && (o.LogPriority < 0 || o.LogPriority > 7) {
		return usageErrorf("--log-prio must be between 0 and 7")
	}
	if o.LogOutput != Unset && (o.LogOutput < 0 || o.LogOutput > 3) {
		return usageErrorf("--log-output must be between 0 and 3")
	}
	switch o.Engine {
	case "", EngineLoopback, EngineGRPC:
	default:
		return usageErrorf("--engine must be %s or %s", EngineLoopback, EngineGRPC)
	}
	return nil
}
