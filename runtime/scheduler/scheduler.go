// Package scheduler is the single-threaded effect interpreter. One loop
// goroutine owns the task arena, the broadcast hub and all bookkeeping;
// process goroutines only ever run between a resume and their next yield,
// so effects execute strictly one at a time in FIFO mailbox order.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/strandkit/strand/extension"
	"github.com/strandkit/strand/internal/clock"
	"github.com/strandkit/strand/internal/idgen"
	"github.com/strandkit/strand/model/action"
	"github.com/strandkit/strand/progress"
	"github.com/strandkit/strand/runtime/task"
	"github.com/strandkit/strand/service/journal"
	"github.com/strandkit/strand/service/signal"
	"github.com/strandkit/strand/store"
	"github.com/strandkit/strand/tracing"
)

// ErrUnmatchedEffect reports an effect descriptor the interpreter cannot
// dispatch: an unknown kind or a malformed payload.
var ErrUnmatchedEffect = errors.New("unmatched effect")

// Service interprets effects yielded by process tasks.
type Service struct {
	arena       *task.Arena
	hub         *signal.Hub
	queue       *mailbox
	clock       clock.Clock
	bridge      store.Bridge
	ops         *extension.Operations
	journal     *journal.Service
	runID       string
	unsubscribe func()

	// owned by the Run loop
	ctx     context.Context
	groups  map[int64]*group
	joiners map[int64][]*joinRef
	spans   map[int64]*tracing.Span

	tracker atomic.Pointer[progress.Progress]
}

type joinRef struct {
	taskID    int64
	token     uint64
	abandoned bool
}

// loop messages
type (
	startMsg struct {
		t    *task.Task
		fn   Fn
		args []any
	}
	resumeMsg struct {
		id    int64
		token uint64
		value any
		err   error
	}
	actionMsg struct {
		a action.Action
	}
	cancelMsg struct {
		id int64
	}
)

// Option customises the scheduler.
type Option func(*Service)

// WithBridge connects the scheduler to a store bridge. Emits flow through
// it and its dispatched actions feed the broadcast hub.
func WithBridge(bridge store.Bridge) Option {
	return func(s *Service) { s.bridge = bridge }
}

// WithClock swaps the timer source, used by tests to drive Delay,
// Debounce and Throttle deterministically.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithOperations installs the named operation registry backing Call
// effects.
func WithOperations(ops *extension.Operations) Option {
	return func(s *Service) { s.ops = ops }
}

// WithJournal enables persistent task lifecycle records.
func WithJournal(j *journal.Service) Option {
	return func(s *Service) { s.journal = j }
}

// WithRunID overrides the generated run identifier.
func WithRunID(runID string) Option {
	return func(s *Service) { s.runID = runID }
}

// WithTracker installs the progress tracker at construction, so counters
// cover tasks scheduled before the Run loop starts.
func WithTracker(tracker *progress.Progress) Option {
	return func(s *Service) { s.tracker.Store(tracker) }
}

// New creates a scheduler. It does nothing until Run is called.
func New(options ...Option) *Service {
	s := &Service{
		arena:   task.NewArena(),
		hub:     signal.New(),
		queue:   newMailbox(),
		clock:   clock.System(),
		groups:  map[int64]*group{},
		joiners: map[int64][]*joinRef{},
		spans:   map[int64]*tracing.Span{},
		runID:   idgen.New(),
	}
	for _, option := range options {
		option(s)
	}
	// subscribe eagerly so actions dispatched before Run are buffered, not
	// lost
	if s.bridge != nil {
		s.unsubscribe = s.bridge.Subscribe(func(a action.Action) {
			s.queue.Put(actionMsg{a: a})
		})
	}
	return s
}

// RunID returns the run identifier stamped on journal records.
func (s *Service) RunID() string { return s.runID }

// Hub exposes the broadcast matcher, so callers can pipe matched actions
// into private channels.
func (s *Service) Hub() *signal.Hub { return s.hub }

// Schedule registers fn as a new root task. The task begins stepping once
// the Run loop picks it up.
func (s *Service) Schedule(fn Fn, args ...any) *task.Handle {
	return s.spawnTask(nil, fn, args, false, "")
}

// ScheduleDetached registers fn as a detached root task; its failure is
// journaled but never propagates to any caller.
func (s *Service) ScheduleDetached(fn Fn, args ...any) *task.Handle {
	return s.spawnTask(nil, fn, args, true, "")
}

// Notify feeds an external action directly into the broadcast matcher,
// bypassing the store bridge.
func (s *Service) Notify(a action.Action) {
	s.queue.Put(actionMsg{a: a})
}

// Run executes the interpreter loop until ctx is cancelled, then cancels
// every live task cooperatively and returns.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx
	if tracker := progress.FromContext(ctx); tracker != nil {
		s.tracker.Store(tracker)
	}
	if s.unsubscribe != nil {
		defer s.unsubscribe()
	}
	for {
		msg, ok := s.queue.Get(ctx.Done())
		if !ok {
			s.shutdown()
			return nil
		}
		s.process(msg)
	}
}

func (s *Service) process(msg any) {
	switch m := msg.(type) {
	case startMsg:
		s.start(m)
	case resumeMsg:
		s.resume(m)
	case actionMsg:
		s.hub.Broadcast(m.a)
	case cancelMsg:
		s.cancelSubtree(s.arena.Lookup(m.id))
	}
}

func (s *Service) start(m startMsg) {
	t := m.t
	if t.Terminal() {
		return
	}
	if t.CancelRequested() {
		s.settle(t, nil, task.ErrCanceled)
		return
	}
	s.launch(t, m.fn, m.args)
	s.step(t, task.Resume{})
}

// launch starts the process goroutine. It parks on the first In receive,
// so fn only begins once the loop steps the task.
func (s *Service) launch(t *task.Task, fn Fn, args []any) {
	ctx, span := tracing.StartSpan(s.ctx, "task "+t.Name())
	s.spans[t.ID()] = span
	c := &Context{service: s, task: t, ctx: ctx, args: args}
	t.MarkStarted()
	go func() {
		<-t.In()
		var result any
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("process %v panicked: %v", t.Name(), r)
				}
			}()
			result, err = fn(c)
		}()
		t.Out() <- task.Yield{End: true, Result: result, Err: err}
	}()
}

// step advances one task until it suspends or settles. Synchronous effects
// are interpreted inline; asynchronous ones park the task with a wait
// token and return control to the loop.
func (s *Service) step(t *task.Task, in task.Resume) {
	for {
		if t.Terminal() {
			return
		}
		if t.State() == task.StateSuspended {
			s.updateProgress(progress.Delta{Suspended: -1, Running: 1})
		}
		t.Release()
		t.SetRunning()
		t.In() <- in
		y := <-t.Out()
		if y.End {
			s.settle(t, y.Result, y.Err)
			return
		}
		res, suspended := s.dispatch(t, y.Effect)
		if suspended {
			s.updateProgress(progress.Delta{Running: -1, Suspended: 1})
			return
		}
		if t.CancelRequested() && !t.CancelSignalled() {
			t.MarkCancelSignalled()
			res = task.Resume{Err: task.ErrCanceled}
		}
		in = res
	}
}

func (s *Service) resume(m resumeMsg) {
	t := s.arena.Lookup(m.id)
	if t == nil || t.Terminal() {
		return
	}
	if t.State() != task.StateSuspended || t.WaitToken() != m.token {
		// stale resumption from a released wait
		return
	}
	s.step(t, task.Resume{Value: m.value, Err: m.err})
}

// settle finalises a task. A task marked for cancellation settles as
// Cancelled regardless of what the process returned.
func (s *Service) settle(t *task.Task, result any, err error) {
	state := task.StateCompleted
	switch {
	case t.CancelRequested() || errors.Is(err, task.ErrCanceled):
		state = task.StateCancelled
	case err != nil:
		state = task.StateFailed
	}
	t.Release()
	if !t.Settle(state, result, err) {
		return
	}

	// a failed or cancelled task takes its attached subtree down with it
	if state != task.StateCompleted {
		for _, id := range t.Children() {
			s.cancelSubtree(s.arena.Lookup(id))
		}
	}

	if span := s.spans[t.ID()]; span != nil {
		delete(s.spans, t.ID())
		if state == task.StateCancelled {
			tracing.EndSpan(span, task.ErrCanceled)
		} else {
			tracing.EndSpan(span, err)
		}
	}
	s.journalSettle(t, state, err)
	delta := progress.Delta{Running: -1}
	switch state {
	case task.StateCompleted:
		delta.Completed = 1
	case task.StateFailed:
		delta.Failed = 1
	case task.StateCancelled:
		delta.Cancelled = 1
	}
	s.updateProgress(delta)

	value, outcome := t.Result()
	if g := s.groups[t.ID()]; g != nil {
		delete(s.groups, t.ID())
		g.childDone(s, t)
	}
	for _, ref := range s.joiners[t.ID()] {
		if ref.abandoned {
			continue
		}
		s.queue.Put(resumeMsg{id: ref.taskID, token: ref.token, value: value, err: outcome})
	}
	delete(s.joiners, t.ID())
	s.arena.Remove(t)
}

// cancelSubtree requests cooperative cancellation depth-first, children
// before their parent. Suspended tasks are resumed in place with the
// cancellation signal; a task currently mid-step observes its flag at the
// next yield.
func (s *Service) cancelSubtree(t *task.Task) {
	if t == nil || t.Terminal() {
		return
	}
	t.RequestCancel()
	for _, id := range t.Children() {
		s.cancelSubtree(s.arena.Lookup(id))
	}
	switch {
	case !t.Started():
		s.settle(t, nil, task.ErrCanceled)
	case t.State() == task.StateSuspended:
		t.Release()
		t.MarkCancelSignalled()
		s.step(t, task.Resume{Err: task.ErrCanceled})
	}
}

func (s *Service) spawnTask(parent *task.Task, fn Fn, args []any, detached bool, name string) *task.Handle {
	if name == "" {
		name = procName(fn)
	}
	t := s.arena.Create(parent, name, detached)
	handle := task.NewHandle(t, func() {
		s.queue.Put(cancelMsg{id: t.ID()})
	})
	s.updateProgress(progress.Delta{Total: 1, Running: 1})
	if s.journal != nil {
		_ = s.journal.Append(context.Background(), journal.Record{
			Event:    journal.EventScheduled,
			TaskID:   t.ID(),
			ParentID: t.ParentID(),
			Task:     name,
			Detached: detached,
		})
	}
	s.queue.Put(startMsg{t: t, fn: fn, args: args})
	return handle
}

func (s *Service) journalSettle(t *task.Task, state task.State, err error) {
	if s.journal == nil {
		return
	}
	event := journal.EventCompleted
	switch state {
	case task.StateFailed:
		event = journal.EventFailed
	case task.StateCancelled:
		event = journal.EventCancelled
	}
	record := journal.Record{
		Event:    event,
		TaskID:   t.ID(),
		ParentID: t.ParentID(),
		Task:     t.Name(),
		Detached: t.Detached(),
	}
	if err != nil && state == task.StateFailed {
		record.Error = err.Error()
	}
	_ = s.journal.Append(context.Background(), record)
	if t.Detached() && state == task.StateFailed {
		_ = s.journal.Append(context.Background(), journal.Record{
			Event:    journal.EventDetachedFailure,
			TaskID:   t.ID(),
			Task:     t.Name(),
			Detached: true,
			Error:    err.Error(),
		})
	}
}

// shutdown cancels every live task and discards whatever is left queued.
func (s *Service) shutdown() {
	for _, t := range s.arena.Live() {
		s.cancelSubtree(t)
	}
	for {
		if _, ok := s.queue.TryGet(); !ok {
			return
		}
	}
}

func (s *Service) updateProgress(d progress.Delta) {
	if tracker := s.tracker.Load(); tracker != nil {
		tracker.Update(d)
	}
}

func procName(fn Fn) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "process"
	}
	name := f.Name()
	if index := strings.LastIndex(name, "/"); index >= 0 {
		name = name[index+1:]
	}
	return name
}
