// Package task holds the runtime state of running processes: the task state
// machine, the arena that owns every task by stable integer id, and the
// public Handle returned to callers.
package task

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/strandkit/strand/effect"
)

// State represents the lifecycle position of a task.
type State string

const (
	StateRunning   State = "running"
	StateSuspended State = "suspended"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// ErrCanceled is the cancellation signal delivered to a cancelled task's
// suspension point. It is a control-flow marker, not an operation failure:
// process code receives it from its pending yield so that deferred cleanup
// still runs, and the task settles as Cancelled regardless of what the
// process returns afterwards.
var ErrCanceled = errors.New("task canceled")

// Resume carries the value (or failure) a suspended continuation is resumed
// with.
type Resume struct {
	Value any
	Err   error
}

// Yield is what a stepped continuation hands back to the interpreter: either
// the next effect descriptor, or the process result when End is set.
type Yield struct {
	Effect effect.Effect
	End    bool
	Result any
	Err    error
}

// Task wraps one running process: its suspended continuation (the in/out
// lockstep channel pair), cancellation flag, parent/children links and
// completion result. All links are arena ids, not pointers.
type Task struct {
	id       int64
	parentID int64
	name     string
	detached bool

	in  chan Resume
	out chan Yield

	mu        sync.Mutex
	state     State
	awaiting  string
	waitSeq   uint64
	result    any
	err       error
	cancelled bool
	signalled bool
	started   bool
	releaser  func()
	children  []int64
	done      chan struct{}

	createdAt  time.Time
	finishedAt *time.Time
}

// ID returns the arena id.
func (t *Task) ID() int64 { return t.id }

// ParentID returns the parent task's arena id, or 0 for roots and detached
// tasks.
func (t *Task) ParentID() int64 { return t.parentID }

// Name returns the informative process name.
func (t *Task) Name() string { return t.name }

// Detached reports whether the task was spawned unparented.
func (t *Task) Detached() bool { return t.detached }

// In is the resume side of the continuation.
func (t *Task) In() chan Resume { return t.in }

// Out is the yield side of the continuation.
func (t *Task) Out() chan Yield { return t.out }

// Done is closed once the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} { return t.done }

// State returns the current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Awaiting describes what a suspended task is waiting on; empty otherwise.
func (t *Task) Awaiting() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.awaiting
}

// Terminal reports whether the task has settled.
func (t *Task) Terminal() bool { return t.State().Terminal() }

// SetRunning marks the task as actively stepping. The pending suspension
// releaser, if any, is taken over by the caller.
func (t *Task) SetRunning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return
	}
	t.state = StateRunning
	t.awaiting = ""
}

// Suspend transitions the task to Suspended and returns the wait token that
// an asynchronous resumption must present. Stale resumptions (earlier
// tokens) are discarded by the scheduler.
func (t *Task) Suspend(awaiting string, releaser func()) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateSuspended
	t.awaiting = awaiting
	t.releaser = releaser
	t.waitSeq++
	return t.waitSeq
}

// WaitToken returns the current suspension token.
func (t *Task) WaitToken() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waitSeq
}

// Release runs and clears the pending suspension releaser. It is invoked
// both on resumption (so completed waits let go of their registrations) and
// on cancellation (so timers, channel takers and in-flight invokes are let
// go before the cancellation completes). Releasers must tolerate being
// called after their resource already fired.
func (t *Task) Release() {
	t.mu.Lock()
	releaser := t.releaser
	t.releaser = nil
	t.mu.Unlock()
	if releaser != nil {
		releaser()
	}
}

// SetReleaser installs the suspension releaser after the fact, for waits
// whose cancellation hook only exists once the registration completed.
func (t *Task) SetReleaser(releaser func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releaser = releaser
}

// MarkStarted records that the process goroutine was launched. A task
// cancelled before this point settles without its process ever running.
func (t *Task) MarkStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = true
}

// Started reports whether the process goroutine was launched.
func (t *Task) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

// MarkCancelSignalled records that the cancellation signal was delivered to
// the continuation, so it is handed over at most once.
func (t *Task) MarkCancelSignalled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.signalled = true
}

// CancelSignalled reports whether the continuation already observed the
// cancellation signal.
func (t *Task) CancelSignalled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.signalled
}

// RequestCancel marks the task for cooperative cancellation. It reports
// false when the task already settled or was already marked.
func (t *Task) RequestCancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled || t.state.Terminal() {
		return false
	}
	t.cancelled = true
	return true
}

// CancelRequested reports whether cancellation has been requested.
func (t *Task) CancelRequested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Settle moves the task into a terminal state exactly once. Later calls are
// no-ops so that a terminal state never transitions again.
func (t *Task) Settle(state State, result any, err error) bool {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return false
	}
	t.state = state
	t.awaiting = ""
	t.result = result
	t.err = err
	now := time.Now()
	t.finishedAt = &now
	t.mu.Unlock()
	close(t.done)
	return true
}

// Result returns the settlement outcome: the process result for Completed,
// the failure for Failed and ErrCanceled for Cancelled. Calling it before
// the task settled returns an error.
func (t *Task) Result() (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case StateCompleted:
		return t.result, nil
	case StateFailed:
		return nil, t.err
	case StateCancelled:
		return nil, ErrCanceled
	}
	return nil, fmt.Errorf("task %d not settled", t.id)
}

// AddChild links a child id under this task.
func (t *Task) AddChild(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.children = append(t.children, id)
}

// RemoveChild unlinks a settled child.
func (t *Task) RemoveChild(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, childID := range t.children {
		if childID == id {
			t.children = append(t.children[:i], t.children[i+1:]...)
			return
		}
	}
}

// Children returns a copy of the linked child ids, oldest first.
func (t *Task) Children() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int64(nil), t.children...)
}

// CreatedAt returns the creation time.
func (t *Task) CreatedAt() time.Time { return t.createdAt }
