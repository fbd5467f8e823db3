package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ErrAlreadyRunning indicates another shell owns the control socket.
var ErrAlreadyRunning = errors.New("asrclient shell already running")

// SocketName is the control socket file name under XDG_RUNTIME_DIR.
const SocketName = "asrclient.sock"

// RuntimeSocketPath returns the control socket location.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, SocketName), nil
}

// Acquire makes the calling shell the owner of the control socket at path.
// A socket file whose shell no longer answers is reclaimed and the listen
// retried up to retries times; a shell that answers yields ErrAlreadyRunning.
func Acquire(ctx context.Context, path string, pingTimeout time.Duration, retries int) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			// Only the owning user may drive the shell.
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		if err := reclaim(ctx, path, pingTimeout); err != nil {
			return nil, err
		}
		if attempt == retries {
			return nil, fmt.Errorf("failed to acquire socket %s after %d retries", path, retries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
		}
	}
}

// reclaim removes a socket file left behind by a shell that exited without
// releasing it. An undecided ping leaves the file in place.
func reclaim(ctx context.Context, path string, pingTimeout time.Duration) error {
	alive, err := Ping(ctx, path, pingTimeout)
	if alive {
		return ErrAlreadyRunning
	}
	if err != nil {
		return fmt.Errorf("ping existing socket %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}

// Release closes listener and removes its socket file. Releasing twice is
// harmless.
func Release(listener net.Listener, path string) error {
	closeErr := listener.Close()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove socket %s: %w", path, err)
	}
	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		return fmt.Errorf("close socket %s: %w", path, closeErr)
	}
	return nil
}
