package scheduler

import (
	"context"
	"time"

	"github.com/strandkit/strand/channel"
	"github.com/strandkit/strand/effect"
	"github.com/strandkit/strand/model/action"
	"github.com/strandkit/strand/runtime/task"
)

// Fn is a process function. It runs on its own goroutine but advances in
// lockstep with the scheduler: every Yield hands an effect descriptor over
// and parks the goroutine until the scheduler resumes it with the outcome.
type Fn func(ctx *Context) (any, error)

// Winner is the result of a Race: the label of the branch that settled
// first and its value.
type Winner struct {
	Label string
	Value any
}

// Context is the surface a process sees. It is bound to one task and must
// only be used from that process goroutine.
type Context struct {
	service *Service
	task    *task.Task
	ctx     context.Context
	args    []any
}

// Context returns the base context the scheduler runs under, carrying
// policy, progress tracking and tracing.
func (c *Context) Context() context.Context { return c.ctx }

// Args returns the arguments the process was scheduled with.
func (c *Context) Args() []any { return c.args }

// Arg returns the argument at index, or nil when out of range.
func (c *Context) Arg(index int) any {
	if index < 0 || index >= len(c.args) {
		return nil
	}
	return c.args[index]
}

// TaskID returns the arena id of the task running this process.
func (c *Context) TaskID() int64 { return c.task.ID() }

// Yield hands an effect descriptor to the scheduler and parks until the
// effect settles. The returned error is either the effect's failure or
// task.ErrCanceled when the task was cancelled at this suspension point.
func (c *Context) Yield(eff effect.Effect) (any, error) {
	c.task.Out() <- task.Yield{Effect: eff}
	resume := <-c.task.In()
	return resume.Value, resume.Err
}

// Invoke runs fn concurrently and parks until it settles.
func (c *Context) Invoke(fn effect.Op, args ...any) (any, error) {
	return c.Yield(effect.Invoke(fn, args...))
}

// Call invokes a named operation from the extension registry.
func (c *Context) Call(name string, args ...any) (any, error) {
	return c.Yield(effect.Call(name, args...))
}

// Emit hands an action to the store bridge, fire-and-forget.
func (c *Context) Emit(a action.Action) error {
	_, err := c.Yield(effect.Emit(a))
	return err
}

// Take parks until an action matching pattern is broadcast and returns it.
func (c *Context) Take(pattern any) (action.Action, error) {
	value, err := c.Yield(effect.Take(pattern))
	if err != nil {
		return action.Action{}, err
	}
	a, _ := value.(action.Action)
	return a, nil
}

// TakeFrom parks until ch yields an item or is closed.
func (c *Context) TakeFrom(ch *channel.Channel) (any, error) {
	return c.Yield(effect.TakeFrom(ch))
}

// Fork starts fn as an attached child task and returns its handle
// immediately.
func (c *Context) Fork(fn Fn, args ...any) (*task.Handle, error) {
	return c.handleOf(effect.Fork(fn, args...))
}

// Spawn starts fn detached: it outlives this task and its failures do not
// propagate.
func (c *Context) Spawn(fn Fn, args ...any) (*task.Handle, error) {
	return c.handleOf(effect.Spawn(fn, args...))
}

// Join parks until the referenced task settles and returns its result.
func (c *Context) Join(h *task.Handle) (any, error) {
	return c.Yield(effect.Join(h))
}

// Cancel requests cooperative cancellation of the referenced task's subtree.
// A nil handle cancels the calling task itself.
func (c *Context) Cancel(h *task.Handle) error {
	var target any
	if h != nil {
		target = h
	}
	_, err := c.Yield(effect.Cancel(target))
	return err
}

// Race runs the labeled effects concurrently; the first settlement wins and
// the losers are cancelled.
func (c *Context) Race(branches map[string]effect.Effect) (Winner, error) {
	value, err := c.Yield(effect.Race(branches))
	if err != nil {
		return Winner{}, err
	}
	winner, _ := value.(Winner)
	return winner, nil
}

// All runs the effects concurrently and parks until every one settles,
// returning results in argument order. The first failure cancels the rest.
func (c *Context) All(effects ...effect.Effect) ([]any, error) {
	value, err := c.Yield(effect.All(effects...))
	if err != nil {
		return nil, err
	}
	results, _ := value.([]any)
	return results, nil
}

// Select reads store state through the bridge, synchronously.
func (c *Context) Select(selector any) (any, error) {
	return c.Yield(effect.Select(selector))
}

// Sleep parks for the duration; cancellation interrupts it.
func (c *Context) Sleep(d time.Duration) error {
	_, err := c.Yield(effect.Delay(d))
	return err
}

// Debounce forks a watcher that runs handler with the latest matching
// action once the pattern has been quiet for the duration.
func (c *Context) Debounce(d time.Duration, pattern any, handler Fn) (*task.Handle, error) {
	return c.handleOf(effect.Debounce(d, pattern, handler))
}

// Throttle forks a watcher that runs handler at most once per duration
// window, dropping matches that arrive inside a window.
func (c *Context) Throttle(d time.Duration, pattern any, handler Fn) (*task.Handle, error) {
	return c.handleOf(effect.Throttle(d, pattern, handler))
}

func (c *Context) handleOf(eff effect.Effect) (*task.Handle, error) {
	value, err := c.Yield(eff)
	if err != nil {
		return nil, err
	}
	handle, _ := value.(*task.Handle)
	return handle, nil
}
