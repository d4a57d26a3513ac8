// Package progress provides a lightweight tracker that keeps aggregated
// task counters (scheduled, running, completed, …) for a single engine run.
// The tracker lives in the run context; the scheduler atomically updates the
// counters via the Delta helper without requiring a global registry.
package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the scheduler.
// Fields are signed and can be either positive or negative.
type Delta struct {
	Total     int
	Running   int
	Suspended int
	Completed int
	Failed    int
	Cancelled int
}

// Progress keeps aggregated task counters for a run. Safe for concurrent
// use.
type Progress struct {
	RunID     string
	StartedAt time.Time

	TotalTasks     int
	RunningTasks   int
	SuspendedTasks int
	CompletedTasks int
	FailedTasks    int
	CancelledTasks int

	mu       sync.Mutex
	onChange func(Progress)
}

func (p *Progress) copyLocked() Progress {
	return Progress{
		RunID:          p.RunID,
		StartedAt:      p.StartedAt,
		TotalTasks:     p.TotalTasks,
		RunningTasks:   p.RunningTasks,
		SuspendedTasks: p.SuspendedTasks,
		CompletedTasks: p.CompletedTasks,
		FailedTasks:    p.FailedTasks,
		CancelledTasks: p.CancelledTasks,
	}
}

// Update applies the supplied delta. If an onChange callback is registered
// it is invoked with a copy outside the critical section so that slow
// observers never block the scheduler.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.TotalTasks += d.Total
	p.RunningTasks += d.Running
	p.SuspendedTasks += d.Suspended
	p.CompletedTasks += d.Completed
	p.FailedTasks += d.Failed
	p.CancelledTasks += d.Cancelled
	snapshot := p.copyLocked()
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copyLocked()
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables it; only one callback is active at a time.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = cb
	p.mu.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// NewTracker creates a tracker with zeroed counters.
func NewTracker(runID string, onChange func(Progress)) *Progress {
	return &Progress{RunID: runID, StartedAt: time.Now(), onChange: onChange}
}

// WithTracker embeds an existing tracker in a derived context.
func WithTracker(ctx context.Context, tracker *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, tracker)
}

// WithNewTracker creates a tracker, embeds it in a derived context and
// returns both.
func WithNewTracker(ctx context.Context, runID string, onChange func(Progress)) (context.Context, *Progress) {
	tracker := NewTracker(runID, onChange)
	return WithTracker(ctx, tracker), tracker
}

// FromContext returns the tracker carried by ctx, or nil.
func FromContext(ctx context.Context) *Progress {
	if ctx == nil {
		return nil
	}
	tracker, _ := ctx.Value(trackerKey).(*Progress)
	return tracker
}
