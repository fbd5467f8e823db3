package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/estelamoura/unimrcp/internal/engine"
	"github.com/estelamoura/unimrcp/internal/fsm"
)

// Descriptor is the immutable description of one launched session. It is
// owned by exactly one Runner.
type Descriptor struct {
	ID          int
	Profile     string
	GrammarURI  string
	InputFile   string
	Repetitions int
	Directives  engine.Directives

	Engine engine.Engine
	Arena  *Arena
}

// PassReport is the outcome of one recognition pass.
type PassReport struct {
	SessionID int
	Profile   string
	Pass      int
	Elapsed   time.Duration
	Result    engine.Result
	// Err is the engine error, if any. The pass still counts as a no-result pass.
	Err error
}

// Found reports whether the pass produced a recognition result.
func (p PassReport) Found() bool {
	return p.Err == nil && p.Result.Found()
}

// Summary is the complete lifecycle output of one session.
type Summary struct {
	ID         int
	Profile    string
	State      fsm.State
	Passes     int
	Results    int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Reporter receives session progress. Implementations must be safe for
// concurrent use by many runners.
type Reporter interface {
	Launched(Descriptor)
	Pass(PassReport)
	Failed(sessionID int, profile string, err error)
}

// Runner executes the passes of one session.
type Runner struct {
	desc     Descriptor
	reporter Reporter
	logger   *slog.Logger

	state fsm.State
}

// NewRunner binds a runner to desc.
func NewRunner(desc Descriptor, reporter Reporter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		desc:     desc,
		reporter: reporter,
		logger:   logger.With("session", desc.ID, "profile", desc.Profile),
		state:    fsm.StateIdle,
	}
}

// State returns the runner's lifecycle state. Only the runner goroutine
// advances it.
func (r *Runner) State() fsm.State {
	return r.state
}

func (r *Runner) transition(event fsm.Event) {
	next, err := fsm.Transition(r.state, event)
	if err != nil {
		r.logger.Error("session lifecycle", "error", err.Error())
		return
	}
	r.logger.Debug("session transition", "from", string(r.state), "event", string(event), "to", string(next))
	r.state = next
}

// Run creates the engine session, performs every pass in order, destroys the
// engine session and releases the arena. The arena is released on every path.
func (r *Runner) Run(ctx context.Context) Summary {
	defer r.desc.Arena.Release()

	summary := Summary{ID: r.desc.ID, Profile: r.desc.Profile, StartedAt: time.Now()}
	finish := func() Summary {
		summary.State = r.state
		summary.FinishedAt = time.Now()
		return summary
	}

	r.transition(fsm.EventStart)
	sess, err := r.desc.Engine.CreateSession(ctx, r.desc.Profile)
	if err != nil {
		r.transition(fsm.EventFail)
		summary.Err = fmt.Errorf("unable to create session: %w", err)
		r.logger.Error("unable to create session", "error", err.Error())
		r.reporter.Failed(r.desc.ID, r.desc.Profile, summary.Err)
		return finish()
	}
	r.transition(fsm.EventCreated)

	req := engine.FileRequest{
		GrammarURI: r.desc.GrammarURI,
		InputFile:  r.desc.InputFile,
		Directives: r.desc.Directives,
	}
	for i := 1; i <= r.desc.Repetitions; i++ {
		report := r.pass(ctx, sess, req, i)
		r.reporter.Pass(report)
		summary.Passes++
		if report.Found() {
			summary.Results++
		}
		r.transition(fsm.EventPassed)
	}

	r.transition(fsm.EventDestroy)
	if err := sess.Destroy(ctx); err != nil {
		r.transition(fsm.EventFail)
		summary.Err = fmt.Errorf("destroy session: %w", err)
		r.logger.Warn("destroy session failed", "error", err.Error())
		return finish()
	}
	r.transition(fsm.EventDestroyed)

	r.logger.Info("session finished", "passes", summary.Passes, "results", summary.Results)
	return finish()
}

func (r *Runner) pass(ctx context.Context, sess engine.Session, req engine.FileRequest, index int) PassReport {
	started := time.Now()
	result, err := sess.RecognizeFile(ctx, req)
	elapsed := time.Since(started)

	report := PassReport{
		SessionID: r.desc.ID,
		Profile:   r.desc.Profile,
		Pass:      index,
		Elapsed:   elapsed,
		Result:    result,
		Err:       err,
	}
	if err != nil {
		r.logger.Warn("recognition failed", "pass", index, "error", err.Error())
	} else {
		r.logger.Debug("recognition finished",
			"pass", index,
			"elapsed_ms", elapsed.Milliseconds(),
			"found", result.Found(),
			"completion_cause", result.CompletionCause,
			"request_id", result.RequestID,
		)
	}
	return report
}
