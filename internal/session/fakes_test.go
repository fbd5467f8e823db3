package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/estelamoura/unimrcp/internal/engine"
)

type fakeEngine struct {
	createErr  error
	destroyErr error
	// results are returned pass by pass; missing entries yield no result.
	results []engine.Result
	errs    []error
	block   chan struct{}

	mu        sync.Mutex
	profiles  []string
	calls     []engine.FileRequest
	destroyed int
	priority  []int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeEngine) CreateSession(_ context.Context, profile string) (engine.Session, error) {
	f.mu.Lock()
	f.profiles = append(f.profiles, profile)
	f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &fakeSession{engine: f, profile: profile}, nil
}

func (f *fakeEngine) SetLogPriority(p int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priority = append(f.priority, p)
}

func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSession struct {
	engine  *fakeEngine
	profile string
	pass    int
}

func (s *fakeSession) Profile() string { return s.profile }

func (s *fakeSession) RecognizeFile(_ context.Context, req engine.FileRequest) (engine.Result, error) {
	f := s.engine
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	i := s.pass
	s.pass++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return engine.Result{}, err
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return engine.Result{}, nil
}

func (s *fakeSession) Destroy(context.Context) error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	s.engine.destroyed++
	return s.engine.destroyErr
}

type recordingReporter struct {
	mu       sync.Mutex
	launched []Descriptor
	passes   []PassReport
	failures []error
}

func (r *recordingReporter) Launched(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launched = append(r.launched, d)
}

func (r *recordingReporter) Pass(p PassReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = append(r.passes, p)
}

func (r *recordingReporter) Failed(_ int, _ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *recordingReporter) passesFor(id int) []PassReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PassReport
	for _, p := range r.passes {
		if p.SessionID == id {
			out = append(out, p)
		}
	}
	return out
}

var errEngineDown = errors.New("engine down")
