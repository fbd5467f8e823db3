// Package loopback is an in-process recognition engine. It resolves the same
// grammar and audio references a real recognizer would and answers with a
// deterministic hypothesis describing what it received.
package loopback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/estelamoura/unimrcp/internal/assets"
	"github.com/estelamoura/unimrcp/internal/config"
	"github.com/estelamoura/unimrcp/internal/engine"
	"github.com/estelamoura/unimrcp/internal/transcript"
	"github.com/google/uuid"
)

// Completion causes, named after the MRCP RECOGNITION-COMPLETE causes.
const (
	CauseSuccess      = "success"
	CauseNoInput      = "no-input-timeout"
	CauseNoMatch      = "no-match"
	CauseGrammarError = "grammar-load-failure"
)

// Options configures a loopback engine.
type Options struct {
	Catalog   config.Catalog
	Resolver  *assets.Resolver
	SetParams config.RecognitionParams
	Recognize config.RecognitionParams
	// Latency is added to every recognition pass.
	Latency    time.Duration
	Logger     *slog.Logger
	OnPriority engine.PriorityFunc
}

var _ engine.Engine = (*Engine)(nil)

// Engine implements engine.Engine without any network dependency.
type Engine struct {
	opts Options

	priority atomic.Int64
	open     atomic.Int64

	mu     sync.Mutex
	closed bool
}

// New returns a loopback engine. A zero catalog means the default catalog.
func New(opts Options) *Engine {
	if len(opts.Catalog.Profiles) == 0 {
		opts.Catalog = config.DefaultCatalog()
	}
	if opts.Resolver == nil {
		opts.Resolver = assets.NewResolver("")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{opts: opts}
	e.priority.Store(6)
	return e
}

// CreateSession opens a session for a catalog profile.
func (e *Engine) CreateSession(_ context.Context, profile string) (engine.Session, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, engine.ErrSessionClosed
	}
	if !e.opts.Catalog.Has(profile) {
		return nil, fmt.Errorf("%w: %q", engine.ErrUnknownProfile, profile)
	}

	s := &session{
		id:      uuid.NewString(),
		profile: profile,
		engine:  e,
	}
	e.open.Add(1)
	e.opts.Logger.Debug("loopback session created", "engine_session", s.id, "profile", profile)
	return s, nil
}

// SetLogPriority stores the clamped priority and forwards it to OnPriority.
func (e *Engine) SetLogPriority(priority int) {
	priority = engine.ClampPriority(priority)
	e.priority.Store(int64(priority))
	if e.opts.OnPriority != nil {
		e.opts.OnPriority(priority)
	}
}

// LogPriority returns the last priority set.
func (e *Engine) LogPriority() int {
	return int(e.priority.Load())
}

// OpenSessions returns the number of sessions not yet destroyed.
func (e *Engine) OpenSessions() int {
	return int(e.open.Load())
}

// Describe renders the engine state for status output.
func (e *Engine) Describe() string {
	return fmt.Sprintf("loopback profiles=%s open_sessions=%d priority=%d",
		strings.Join(e.opts.Catalog.Names(), ","), e.OpenSessions(), e.LogPriority())
}

// Close rejects further sessions.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

type session struct {
	id      string
	profile string
	engine  *Engine

	// Calls on one session are sequential; mu guards against misuse.
	mu sync.Mutex
	// params holds the last SET-PARAMS values; zero until one is sent.
	params    config.RecognitionParams
	grammars  map[string]assets.Grammar
	destroyed bool
}

func (s *session) Profile() string { return s.profile }

func (s *session) RecognizeFile(ctx context.Context, req engine.FileRequest) (engine.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return engine.Result{}, engine.ErrSessionClosed
	}

	opts := s.engine.opts
	requestID := uuid.NewString()

	if req.Directives.SendSetParams {
		s.params = opts.SetParams
		opts.Logger.Debug("loopback set-params",
			"engine_session", s.id,
			"confidence_threshold", opts.SetParams.ConfidenceThreshold,
			"n_best_list_length", opts.SetParams.NBestListLength,
			"no_input_timeout_ms", opts.SetParams.NoInputTimeoutMS,
			"recognition_timeout_ms", opts.SetParams.RecognitionTimeoutMS,
			"start_input_timers", opts.SetParams.StartInputTimers,
		)
	}

	grammar, err := s.grammar(req)
	if err != nil {
		return engine.Result{CompletionCause: CauseGrammarError, RequestID: requestID}, err
	}

	if opts.Latency > 0 {
		timer := time.NewTimer(opts.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return engine.Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	pcm := req.Audio
	source := req.InputFile
	if pcm == nil {
		audio, err := opts.Resolver.LoadAudio(ctx, req.InputFile)
		if err != nil {
			return engine.Result{RequestID: requestID}, err
		}
		pcm = audio.PCM
		source = audio.Source
	}
	if len(pcm) == 0 {
		return engine.Result{CompletionCause: CauseNoInput, RequestID: requestID}, nil
	}

	params := s.effectiveParams()
	hypotheses := s.hypotheses(grammar, source, len(pcm), req.Directives, params.NBestListLength)
	best, ok := transcript.Best(hypotheses, params.ConfidenceThreshold)
	if !ok {
		return engine.Result{CompletionCause: CauseNoMatch, RequestID: requestID}, nil
	}

	opts.Logger.Debug("loopback recognition complete",
		"engine_session", s.id,
		"request_id", requestID,
		"bytes", len(pcm),
		"confidence", best.Confidence,
	)
	return engine.Result{Text: best.Text, CompletionCause: CauseSuccess, RequestID: requestID}, nil
}

// effectiveParams overlays the RECOGNIZE header values on the session's
// SET-PARAMS values. A zero header value is treated as not sent.
func (s *session) effectiveParams() config.RecognitionParams {
	p := s.params
	header := s.engine.opts.Recognize
	if header.ConfidenceThreshold > 0 {
		p.ConfidenceThreshold = header.ConfidenceThreshold
	}
	if header.NBestListLength > 0 {
		p.NBestListLength = header.NBestListLength
	}
	if p.NBestListLength < 1 {
		p.NBestListLength = 1
	}
	return p
}

// grammar resolves the request grammar. DEFINE-GRAMMAR stores it on the
// session; without it the grammar must be a scheme URI or already defined.
func (s *session) grammar(req engine.FileRequest) (assets.Grammar, error) {
	if g, ok := s.grammars[req.GrammarURI]; ok && !req.Directives.SendDefineGrammar {
		return g, nil
	}

	var g assets.Grammar
	if req.GrammarContent != "" {
		g = assets.Grammar{URI: req.GrammarURI, Content: req.GrammarContent}
	} else {
		resolved, err := s.engine.opts.Resolver.ResolveGrammar(req.GrammarURI)
		if err != nil {
			return assets.Grammar{}, err
		}
		g = resolved
	}

	if g.Inline() && !req.Directives.SendDefineGrammar {
		return assets.Grammar{}, fmt.Errorf("grammar %q must be defined before use", req.GrammarURI)
	}
	if req.Directives.SendDefineGrammar {
		if s.grammars == nil {
			s.grammars = make(map[string]assets.Grammar)
		}
		s.grammars[req.GrammarURI] = g
	}
	return g, nil
}

// hypotheses builds an n-best list with strictly falling confidence. The
// first entry scores 0.95 so default thresholds accept it.
func (s *session) hypotheses(grammar assets.Grammar, source string, size int, d engine.Directives, n int) []transcript.Hypothesis {
	text := fmt.Sprintf("grammar=%s input=%s bytes=%d define_grammar=%s set_params=%s",
		grammar.URI, source, size, yesNo(d.SendDefineGrammar), yesNo(d.SendSetParams))

	out := make([]transcript.Hypothesis, 0, n)
	for i := 0; i < n; i++ {
		h := transcript.Hypothesis{Text: text, Confidence: 0.95 - 0.1*float64(i)}
		if i > 0 {
			h.Text = fmt.Sprintf("%s alt=%d", text, i)
		}
		out = append(out, h)
	}
	return out
}

func (s *session) Destroy(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return engine.ErrSessionClosed
	}
	s.destroyed = true
	s.grammars = nil
	s.engine.open.Add(-1)
	s.engine.opts.Logger.Debug("loopback session destroyed", "engine_session", s.id, "profile", s.profile)
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
