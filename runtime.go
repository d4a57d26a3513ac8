package strand

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/strandkit/strand/channel"
	"github.com/strandkit/strand/model/action"
	"github.com/strandkit/strand/policy"
	"github.com/strandkit/strand/progress"
	"github.com/strandkit/strand/runtime/scheduler"
	"github.com/strandkit/strand/runtime/task"
	"github.com/strandkit/strand/store"
)

// Runtime drives one engine run: it owns the scheduler loop goroutine and
// exposes scheduling, action dispatch and state access.
type Runtime struct {
	core    *scheduler.Service
	bridge  store.Bridge
	config  *Config
	policy  *policy.Policy
	tracker *progress.Progress

	mu      sync.Mutex
	group   *errgroup.Group
	cancel  context.CancelFunc
	started bool
}

// Start launches the scheduler loop. It returns immediately; processes
// scheduled before Start begin stepping once the loop is up.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errors.New("runtime already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	if r.policy != nil {
		ctx = policy.WithPolicy(ctx, r.policy)
	}
	ctx = progress.WithTracker(ctx, r.tracker)
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return r.core.Run(ctx)
	})
	r.cancel = cancel
	r.group = group
	r.started = true
	return nil
}

// Shutdown cancels every live task cooperatively and waits for the loop to
// exit, bounded by ctx.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	cancel, group := r.cancel, r.group
	r.mu.Unlock()
	if cancel == nil {
		return errors.New("runtime not started")
	}
	cancel()
	done := make(chan error, 1)
	go func() { done <- group.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule registers fn as a new root task and returns its handle.
func (r *Runtime) Schedule(fn scheduler.Fn, args ...any) *task.Handle {
	return r.core.Schedule(fn, args...)
}

// ScheduleDetached registers fn as a detached root task whose failure is
// journaled but never propagates.
func (r *Runtime) ScheduleDetached(fn scheduler.Fn, args ...any) *task.Handle {
	return r.core.ScheduleDetached(fn, args...)
}

// Dispatch applies an action to the store and wakes matching waiters.
func (r *Runtime) Dispatch(a action.Action) {
	r.bridge.Dispatch(a)
}

// Select evaluates a selector against current store state.
func (r *Runtime) Select(selector any) (any, error) {
	return r.bridge.Select(selector)
}

// NewChannel creates a fixed-capacity channel; capacity <= 0 uses the
// configured default buffer size.
func (r *Runtime) NewChannel(capacity int) *channel.Channel {
	if capacity <= 0 {
		capacity = r.config.Channels.DefaultBuffer
	}
	return channel.New(channel.Fixed(capacity))
}

// ChannelOf creates a channel fed by every broadcast action matching
// pattern. The returned stop function detaches and closes it.
func (r *Runtime) ChannelOf(pattern any, buffer channel.Buffer) (*channel.Channel, func(), error) {
	p, err := action.Of(pattern)
	if err != nil {
		return nil, nil, err
	}
	ch := channel.New(buffer)
	detach := r.core.Hub().Pipe(p, ch)
	stop := func() {
		detach()
		ch.Close()
	}
	return ch, stop, nil
}

// Progress returns a snapshot of the task counters for this run.
func (r *Runtime) Progress() progress.Progress {
	return r.tracker.Snapshot()
}

// RunID returns the run identifier.
func (r *Runtime) RunID() string {
	return r.core.RunID()
}
