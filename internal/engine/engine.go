// Package engine defines the recognition engine contract consumed by the session core.
package engine

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrUnknownProfile indicates the requested client profile is not configured.
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrSessionClosed indicates a call on a session that was already destroyed.
	ErrSessionClosed = errors.New("engine session already destroyed")
)

// Directives select which priming messages precede a RECOGNIZE request.
type Directives struct {
	SendDefineGrammar bool
	SendSetParams     bool
}

// FileRequest is one recognize-file call. Audio and GrammarContent carry
// pre-loaded input when the caller already resolved it; otherwise the engine
// resolves InputFile and GrammarURI itself.
type FileRequest struct {
	GrammarURI     string
	InputFile      string
	Directives     Directives
	Audio          []byte
	GrammarContent string
}

// Result is the outcome of one recognize-file call. An empty Text means the
// engine produced no result, which is not an error.
type Result struct {
	Text            string
	CompletionCause string
	RequestID       string
}

// Found reports whether the engine produced a recognition result.
func (r Result) Found() bool {
	return strings.TrimSpace(r.Text) != ""
}

// Session is one engine-side recognition context bound to a profile.
// Calls on a single Session are never concurrent.
type Session interface {
	Profile() string
	RecognizeFile(context.Context, FileRequest) (Result, error)
	Destroy(context.Context) error
}

// Engine creates sessions and is shared by every running session.
type Engine interface {
	CreateSession(ctx context.Context, profile string) (Session, error)
	SetLogPriority(priority int)
	Close() error
}

// PriorityFunc receives log priority changes requested through an engine.
type PriorityFunc func(priority int)

// ClampPriority bounds a log priority to the 0 (emergency) .. 7 (debug) scale.
func ClampPriority(priority int) int {
	if priority < 0 {
		return 0
	}
	if priority > 7 {
		return 7
	}
	return priority
}
