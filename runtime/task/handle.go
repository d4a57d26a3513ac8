package task

import "context"

// Handle is the public reference to a scheduled task. It is safe to use from
// any goroutine.
type Handle struct {
	t      *Task
	cancel func()
}

// NewHandle wraps a task together with the scheduler-provided cancellation
// entry point.
func NewHandle(t *Task, cancel func()) *Handle {
	return &Handle{t: t, cancel: cancel}
}

// ID returns the task's arena id.
func (h *Handle) ID() int64 { return h.t.ID() }

// State returns the task's current lifecycle state.
func (h *Handle) State() State { return h.t.State() }

// IsDone reports whether the task reached a terminal state.
func (h *Handle) IsDone() bool { return h.t.Terminal() }

// Cancel requests cooperative cancellation of the task and its subtree.
func (h *Handle) Cancel() {
	if h.cancel != nil {
		h.cancel()
	}
}

// Join blocks until the task settles and returns its result, its failure,
// or ErrCanceled. The context bounds the wait only; it does not cancel the
// task.
func (h *Handle) Join(ctx context.Context) (any, error) {
	select {
	case <-h.t.Done():
		return h.t.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Task returns the underlying task; used by the interpreter when a Join or
// Cancel effect references this handle.
func (h *Handle) Task() *Task { return h.t }
