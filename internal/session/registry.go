package session

import "sync/atomic"

// Stats is a snapshot of session activity since process start. Active
// counts sessions whose arena is not yet released.
type Stats struct {
	Launched  int `json:"launched"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	// LastID is the most recently assigned id. It may belong to a session
	// that failed to start: ids stay consumed on spawn failure.
	LastID int `json:"last_id"`
}

// Registry counts sessions as they launch and finish.
type Registry struct {
	launched  atomic.Int64
	active    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	lastID    atomic.Int64
}

func (r *Registry) started(id int) {
	r.launched.Add(1)
	r.active.Add(1)
	r.lastID.Store(int64(id))
}

// released ends the active span of a session. It runs as an arena release
// hook, so it fires on every path exactly once.
func (r *Registry) released() {
	r.active.Add(-1)
}

func (r *Registry) finished(summary Summary) {
	r.completed.Add(1)
	if summary.Err != nil {
		r.failed.Add(1)
	}
}

// abandoned uncounts a session whose goroutine never ran. Its active span
// already ended with the arena.
func (r *Registry) abandoned() {
	r.launched.Add(-1)
}

// Stats returns the current counts.
func (r *Registry) Stats() Stats {
	return Stats{
		Launched:  int(r.launched.Load()),
		Active:    int(r.active.Load()),
		Completed: int(r.completed.Load()),
		Failed:    int(r.failed.Load()),
		LastID:    int(r.lastID.Load()),
	}
}
