package loopback

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/estelamoura/unimrcp/internal/assets"
	"github.com/estelamoura/unimrcp/internal/config"
	"github.com/estelamoura/unimrcp/internal/engine"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.raw"), make([]byte, 320), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "silence.raw"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "digits.grxml"), []byte("<grammar/>"), 0o600))

	cfg := config.Default()
	return New(Options{
		Resolver:  assets.NewResolver(dir),
		SetParams: cfg.SetParams,
		Recognize: cfg.Recognize,
	}), dir
}

func TestCreateSessionRejectsUnknownProfile(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.CreateSession(context.Background(), "uni9")
	require.ErrorIs(t, err, engine.ErrUnknownProfile)

	s, err := e.CreateSession(context.Background(), "uni2")
	require.NoError(t, err)
	require.Equal(t, "uni2", s.Profile())
	require.Equal(t, 1, e.OpenSessions())
}

func TestRecognizeFileDescribesInput(t *testing.T) {
	e, dir := newTestEngine(t)
	s, err := e.CreateSession(context.Background(), "uni1")
	require.NoError(t, err)

	result, err := s.RecognizeFile(context.Background(), engine.FileRequest{
		GrammarURI: "builtin:lm",
		InputFile:  "sample.raw",
		Directives: engine.Directives{SendDefineGrammar: true, SendSetParams: true},
	})
	require.NoError(t, err)
	require.True(t, result.Found())
	require.Equal(t, CauseSuccess, result.CompletionCause)
	require.NotEmpty(t, result.RequestID)
	require.Equal(t,
		"grammar=builtin:lm input="+filepath.Join(dir, "sample.raw")+" bytes=320 define_grammar=yes set_params=yes",
		result.Text,
	)
}

func TestSetParamsAppliesWhereRecognizeSendsNoValue(t *testing.T) {
	e, _ := newTestEngine(t)
	e.opts.SetParams = config.RecognitionParams{ConfidenceThreshold: 0.99, NBestListLength: 2}
	e.opts.Recognize = config.RecognitionParams{}
	s, err := e.CreateSession(context.Background(), "uni2")
	require.NoError(t, err)

	req := engine.FileRequest{GrammarURI: "builtin:lm", InputFile: "sample.raw"}
	result, err := s.RecognizeFile(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Found(), "no SET-PARAMS yet, so no threshold applies")

	req.Directives.SendSetParams = true
	result, err = s.RecognizeFile(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.Found())
	require.Equal(t, CauseNoMatch, result.CompletionCause)

	// SET-PARAMS values stay on the session for later passes.
	req.Directives.SendSetParams = false
	result, err = s.RecognizeFile(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, CauseNoMatch, result.CompletionCause)
}

func TestRecognizeHeaderOverridesSetParams(t *testing.T) {
	e, _ := newTestEngine(t)
	e.opts.SetParams = config.RecognitionParams{ConfidenceThreshold: 0.99, NBestListLength: 2}
	e.opts.Recognize = config.RecognitionParams{ConfidenceThreshold: 0.5}
	s, err := e.CreateSession(context.Background(), "uni2")
	require.NoError(t, err)

	result, err := s.RecognizeFile(context.Background(), engine.FileRequest{
		GrammarURI: "builtin:lm",
		InputFile:  "sample.raw",
		Directives: engine.Directives{SendSetParams: true},
	})
	require.NoError(t, err)
	require.True(t, result.Found())
	require.Equal(t, CauseSuccess, result.CompletionCause)
}

func TestRecognizeFileEmptyAudioHasNoResult(t *testing.T) {
	e, _ := newTestEngine(t)
	s, err := e.CreateSession(context.Background(), "uni2")
	require.NoError(t, err)

	result, err := s.RecognizeFile(context.Background(), engine.FileRequest{GrammarURI: "builtin:lm", InputFile: "silence.raw"})
	require.NoError(t, err)
	require.False(t, result.Found())
	require.Equal(t, CauseNoInput, result.CompletionCause)
}

func TestRecognizeFileUsesPreloadedAudio(t *testing.T) {
	e, _ := newTestEngine(t)
	s, err := e.CreateSession(context.Background(), "uni2")
	require.NoError(t, err)

	result, err := s.RecognizeFile(context.Background(), engine.FileRequest{
		GrammarURI: "builtin:lm",
		InputFile:  "remote.raw",
		Audio:      []byte{1, 2, 3, 4},
	})
	require.NoError(t, err)
	require.Contains(t, result.Text, "input=remote.raw bytes=4")
}

func TestRecognizeFileNoMatchBelowThreshold(t *testing.T) {
	e, _ := newTestEngine(t)
	e.opts.Recognize.ConfidenceThreshold = 0.99
	s, err := e.CreateSession(context.Background(), "uni2")
	require.NoError(t, err)

	result, err := s.RecognizeFile(context.Background(), engine.FileRequest{GrammarURI: "builtin:lm", InputFile: "sample.raw"})
	require.NoError(t, err)
	require.False(t, result.Found())
	require.Equal(t, CauseNoMatch, result.CompletionCause)
}

func TestRecognizeFileGrammarDefinition(t *testing.T) {
	e, _ := newTestEngine(t)
	s, err := e.CreateSession(context.Background(), "uni2")
	require.NoError(t, err)

	_, err = s.RecognizeFile(context.Background(), engine.FileRequest{GrammarURI: "digits.grxml", InputFile: "sample.raw"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "must be defined")

	result, err := s.RecognizeFile(context.Background(), engine.FileRequest{
		GrammarURI: "digits.grxml",
		InputFile:  "sample.raw",
		Directives: engine.Directives{SendDefineGrammar: true},
	})
	require.NoError(t, err)
	require.Contains(t, result.Text, "grammar=file://")

	// Defined grammars stay available on the session.
	result, err = s.RecognizeFile(context.Background(), engine.FileRequest{GrammarURI: "digits.grxml", InputFile: "sample.raw"})
	require.NoError(t, err)
	require.True(t, result.Found())

	_, err = s.RecognizeFile(context.Background(), engine.FileRequest{GrammarURI: "missing.grxml", InputFile: "sample.raw"})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRecognizeFileMissingAudio(t *testing.T) {
	e, _ := newTestEngine(t)
	s, err := e.CreateSession(context.Background(), "uni2")
	require.NoError(t, err)

	_, err = s.RecognizeFile(context.Background(), engine.FileRequest{GrammarURI: "builtin:lm", InputFile: "missing.raw"})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRecognizeFileLatencyHonorsContext(t *testing.T) {
	e, _ := newTestEngine(t)
	e.opts.Latency = time.Hour
	s, err := e.CreateSession(context.Background(), "uni2")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.RecognizeFile(ctx, engine.FileRequest{GrammarURI: "builtin:lm", InputFile: "sample.raw"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDestroyClosesSession(t *testing.T) {
	e, _ := newTestEngine(t)
	s, err := e.CreateSession(context.Background(), "uni2")
	require.NoError(t, err)

	require.NoError(t, s.Destroy(context.Background()))
	require.Equal(t, 0, e.OpenSessions())
	require.ErrorIs(t, s.Destroy(context.Background()), engine.ErrSessionClosed)

	_, err = s.RecognizeFile(context.Background(), engine.FileRequest{GrammarURI: "builtin:lm", InputFile: "sample.raw"})
	require.ErrorIs(t, err, engine.ErrSessionClosed)
}

func TestSetLogPriorityClampsAndNotifies(t *testing.T) {
	var got []int
	e := New(Options{OnPriority: func(p int) { got = append(got, p) }})

	e.SetLogPriority(3)
	e.SetLogPriority(99)
	require.Equal(t, []int{3, 7}, got)
	require.Equal(t, 7, e.LogPriority())
	require.Contains(t, e.Describe(), "priority=7")
	require.Contains(t, e.Describe(), "profiles=uni1,uni2")
}

func TestCloseRejectsNewSessions(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Close())

	_, err := e.CreateSession(context.Background(), "uni2")
	require.ErrorIs(t, err, engine.ErrSessionClosed)
}
