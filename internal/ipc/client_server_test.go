package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/estelamoura/unimrcp/internal/session"
)

func serveTest(t *testing.T, socketPath string, handler Handler) (cancel func()) {
	t.Helper()
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancelFn := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- Serve(ctx, listener, handler) }()

	return func() {
		cancelFn()
		require.NoError(t, <-serveDone)
	}
}

func TestSendRoundTrip(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), SocketName)

	stop := serveTest(t, socketPath, HandlerFunc(func(_ context.Context, req Request) Response {
		if req.Command != CommandStatus {
			return Response{OK: false, Error: "unexpected command"}
		}
		return Response{OK: true, PID: 42, Stats: &session.Stats{Launched: 3, Active: 1, Completed: 2, LastID: 3}}
	}))

	resp, err := Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, 42, resp.PID)
	require.Equal(t, &session.Stats{Launched: 3, Active: 1, Completed: 2, LastID: 3}, resp.Stats)

	stop()
}

func TestForward(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), SocketName)

	_, err := Forward(context.Background(), socketPath, Request{Command: CommandStatus}, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNoShell)

	var (
		mu  sync.Mutex
		got []Request
	)
	stop := serveTest(t, socketPath, HandlerFunc(func(_ context.Context, req Request) Response {
		mu.Lock()
		got = append(got, req)
		mu.Unlock()
		if req.Line == "quit" {
			return Response{OK: false, Error: "quit is only accepted at the prompt"}
		}
		return Response{OK: true, Message: "dispatched"}
	}))

	resp, err := Forward(context.Background(), socketPath, Request{Command: CommandExec, Line: "run y y builtin:lm sample.raw"}, 200*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, "dispatched", resp.Message)

	_, err = Forward(context.Background(), socketPath, Request{Command: CommandExec, Line: "quit"}, 200*time.Millisecond)
	require.EqualError(t, err, "quit is only accepted at the prompt")

	stop()
	require.Equal(t, []Request{
		{Command: CommandExec, Line: "run y y builtin:lm sample.raw"},
		{Command: CommandExec, Line: "quit"},
	}, got)

	_, err = Forward(context.Background(), socketPath, Request{Command: CommandStatus}, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNoShell)
}

func TestSendDecodeResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), SocketName)

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		_, _ = reader.ReadBytes('\n')
		_, _ = conn.Write([]byte("not-json\n"))
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestSendReadResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), SocketName)

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		_ = conn.Close()
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read response")
}

func TestServeDecodeRequestErrorResponse(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), SocketName)
	stop := serveTest(t, socketPath, HandlerFunc(func(_ context.Context, _ Request) Response {
		return Response{OK: true}
	}))

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")

	stop()
}

func TestPing(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), SocketName)
	stop := serveTest(t, socketPath, HandlerFunc(func(_ context.Context, req Request) Response {
		if req.Command == CommandStatus {
			return Response{OK: true}
		}
		return Response{OK: false, Error: "bad"}
	}))

	alive, pingErr := Ping(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, pingErr)
	require.True(t, alive)

	stop()

	alive, pingErr = Ping(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, pingErr)
	require.False(t, alive)
}

func TestServeRejectsOversizedRequest(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), SocketName)
	handled := make(chan Request, 1)
	stop := serveTest(t, socketPath, HandlerFunc(func(_ context.Context, req Request) Response {
		handled <- req
		return Response{OK: true}
	}))
	defer stop()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	go func() {
		// The server stops reading at the cap, so the write may fail.
		_, _ = conn.Write([]byte(strings.Repeat("x", maxRequestBytes+512)))
	}()

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "exceeds")
	require.Empty(t, handled)
}
