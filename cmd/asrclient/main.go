// Command asrclient is an interactive console for launching speech
// recognition sessions against an ASR engine.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/estelamoura/unimrcp/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}
