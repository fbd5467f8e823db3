package shell

import (
	"context"
	"sync"

	"github.com/estelamoura/unimrcp/internal/engine"
	"github.com/estelamoura/unimrcp/internal/session"
)

type fakeLauncher struct {
	mu       sync.Mutex
	requests []session.Request
	err      error
}

func (f *fakeLauncher) Launch(_ context.Context, req session.Request) (*session.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func (f *fakeLauncher) launched() []session.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.Request(nil), f.requests...)
}

type fakePriority struct {
	mu     sync.Mutex
	values []int
}

func (f *fakePriority) SetLogPriority(p int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, p)
}

// echoEngine returns the grammar and input as the recognition text.
type echoEngine struct {
	mu      sync.Mutex
	created int
}

func (e *echoEngine) CreateSession(_ context.Context, profile string) (engine.Session, error) {
	e.mu.Lock()
	e.created++
	e.mu.Unlock()
	return echoSession{profile: profile}, nil
}

func (e *echoEngine) SetLogPriority(int) {}
func (e *echoEngine) Close() error       { return nil }

type echoSession struct{ profile string }

func (s echoSession) Profile() string { return s.profile }

func (s echoSession) RecognizeFile(_ context.Context, req engine.FileRequest) (engine.Result, error) {
	return engine.Result{Text: req.GrammarURI + " " + req.InputFile}, nil
}

func (echoSession) Destroy(context.Context) error { return nil }

// blockingEngine holds every recognition until release is closed.
type blockingEngine struct {
	release chan struct{}
}

func (e *blockingEngine) CreateSession(_ context.Context, profile string) (engine.Session, error) {
	return blockingSession{release: e.release, profile: profile}, nil
}

func (e *blockingEngine) SetLogPriority(int) {}
func (e *blockingEngine) Close() error       { return nil }

type blockingSession struct {
	release chan struct{}
	profile string
}

func (s blockingSession) Profile() string { return s.profile }

func (s blockingSession) RecognizeFile(context.Context, engine.FileRequest) (engine.Result, error) {
	<-s.release
	return engine.Result{}, nil
}

func (blockingSession) Destroy(context.Context) error { return nil }

func newSessionLauncher(eng engine.Engine, reporter session.Reporter) *session.Launcher {
	return session.NewLauncher(session.LauncherConfig{Engine: eng, Reporter: reporter})
}
