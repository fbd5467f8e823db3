package session

import (
	"context"
	"sync"
)

// Arena owns the resources of one session. Release runs once, however many
// times it is called.
type Arena struct {
	ctx    context.Context
	cancel context.CancelFunc

	once     sync.Once
	mu       sync.Mutex
	hooks    []func()
	released bool
}

// NewArena returns an arena whose context keeps parent's values but never
// its cancellation.
func NewArena(parent context.Context) *Arena {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &Arena{ctx: ctx, cancel: cancel}
}

// Context is the session's execution context; it ends at Release.
func (a *Arena) Context() context.Context {
	return a.ctx
}

// OnRelease registers fn to run at Release, newest first. It returns false
// without registering once the arena is already released.
func (a *Arena) OnRelease(fn func()) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return false
	}
	a.hooks = append(a.hooks, fn)
	return true
}

// Release cancels the context and runs the release hooks.
func (a *Arena) Release() {
	a.once.Do(func() {
		a.mu.Lock()
		a.released = true
		hooks := a.hooks
		a.hooks = nil
		a.mu.Unlock()

		a.cancel()
		for i := len(hooks) - 1; i >= 0; i-- {
			hooks[i]()
		}
	})
}
