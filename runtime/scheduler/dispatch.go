package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/strandkit/strand/effect"
	"github.com/strandkit/strand/model/action"
	"github.com/strandkit/strand/policy"
	"github.com/strandkit/strand/runtime/task"
	"github.com/strandkit/strand/tracing"
)

// dispatch interprets one yielded effect. It returns the resumption for
// synchronous effects, or suspended=true after parking the task with a
// wait token and a releaser.
func (s *Service) dispatch(t *task.Task, eff effect.Effect) (task.Resume, bool) {
	switch eff.Kind {
	case effect.KindInvoke, effect.KindCall:
		return s.handleInvoke(t, eff)
	case effect.KindEmit:
		return s.handleEmit(t, eff)
	case effect.KindTake:
		return s.handleTake(t, eff)
	case effect.KindTakeFrom:
		return s.handleTakeFrom(t, eff)
	case effect.KindFork, effect.KindSpawn:
		return s.handleFork(t, eff)
	case effect.KindJoin:
		return s.handleJoin(t, eff)
	case effect.KindCancel:
		return s.handleCancel(t, eff)
	case effect.KindRace, effect.KindAll:
		return s.handleGroup(t, eff)
	case effect.KindSelect:
		return s.handleSelect(eff)
	case effect.KindDelay:
		return s.handleDelay(t, eff)
	case effect.KindDebounce, effect.KindThrottle:
		return s.handleWatcher(t, eff)
	}
	return task.Resume{Err: fmt.Errorf("%w: kind %v", ErrUnmatchedEffect, eff.Kind)}, false
}

func (s *Service) handleInvoke(t *task.Task, eff effect.Effect) (task.Resume, bool) {
	if t.CancelRequested() {
		return task.Resume{Err: task.ErrCanceled}, false
	}
	op := eff.Op
	name := eff.Name
	if eff.Kind == effect.KindCall {
		if s.ops == nil {
			return task.Resume{Err: fmt.Errorf("operation %q: no registry configured", name)}, false
		}
		registered, ok := s.ops.Lookup(name)
		if !ok {
			return task.Resume{Err: fmt.Errorf("operation %q not registered", name)}, false
		}
		if !policy.FromContext(s.ctx).IsAllowed(name) {
			return task.Resume{Err: fmt.Errorf("operation %q denied by policy", name)}, false
		}
		op = registered
	}
	if op == nil {
		return task.Resume{Err: fmt.Errorf("%w: invoke without operation", ErrUnmatchedEffect)}, false
	}
	if name == "" {
		name = "invoke"
	}
	id := t.ID()
	token := t.Suspend(name, nil)
	opCtx, cancel := context.WithCancel(s.ctx)
	t.SetReleaser(cancel)
	args := eff.Args
	go func() {
		defer cancel()
		spanCtx, span := tracing.StartSpan(opCtx, "op "+name)
		value, err := invokeSafely(op, spanCtx, args)
		tracing.EndSpan(span, err)
		s.queue.Put(resumeMsg{id: id, token: token, value: value, err: err})
	}()
	return task.Resume{}, true
}

func invokeSafely(op effect.Op, ctx context.Context, args []any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return op(ctx, args...)
}

// handleEmit is fire-and-forget: the action goes through the bridge (whose
// subscription feeds the broadcast matcher on a later mailbox turn) and
// the emitting task resumes immediately.
func (s *Service) handleEmit(t *task.Task, eff effect.Effect) (task.Resume, bool) {
	if s.bridge != nil {
		s.bridge.Dispatch(eff.Action)
	} else {
		s.queue.Put(actionMsg{a: eff.Action})
	}
	return task.Resume{Value: eff.Action}, false
}

func (s *Service) handleTake(t *task.Task, eff effect.Effect) (task.Resume, bool) {
	if t.CancelRequested() {
		return task.Resume{Err: task.ErrCanceled}, false
	}
	pattern, err := action.Of(eff.Pattern)
	if err != nil {
		return task.Resume{Err: err}, false
	}
	id := t.ID()
	token := t.Suspend("take", nil)
	cancel := s.hub.Register(pattern, func(a action.Action) {
		s.queue.Put(resumeMsg{id: id, token: token, value: a})
	})
	t.SetReleaser(cancel)
	return task.Resume{}, true
}

func (s *Service) handleTakeFrom(t *task.Task, eff effect.Effect) (task.Resume, bool) {
	if t.CancelRequested() {
		return task.Resume{Err: task.ErrCanceled}, false
	}
	ch := eff.Channel
	if ch == nil {
		return task.Resume{Err: fmt.Errorf("%w: take from nil channel", ErrUnmatchedEffect)}, false
	}
	id := t.ID()
	token := t.Suspend("take-from", nil)
	cancel := ch.Register(func(item any, err error) {
		s.queue.Put(resumeMsg{id: id, token: token, value: item, err: err})
	})
	t.SetReleaser(cancel)
	return task.Resume{}, true
}

func (s *Service) handleFork(t *task.Task, eff effect.Effect) (task.Resume, bool) {
	if t.CancelRequested() {
		return task.Resume{Err: task.ErrCanceled}, false
	}
	fn, ok := procOf(eff.Proc)
	if !ok {
		return task.Resume{Err: fmt.Errorf("%w: unsupported process type %T", ErrUnmatchedEffect, eff.Proc)}, false
	}
	detached := eff.Kind == effect.KindSpawn
	parent := t
	if detached {
		parent = nil
	}
	handle := s.spawnTask(parent, fn, eff.Args, detached, "")
	return task.Resume{Value: handle}, false
}

func (s *Service) handleJoin(t *task.Task, eff effect.Effect) (task.Resume, bool) {
	target := resolveTask(eff.Task)
	if target == nil {
		return task.Resume{Err: fmt.Errorf("%w: join without task", ErrUnmatchedEffect)}, false
	}
	if target == t {
		return task.Resume{Err: errors.New("task cannot join itself")}, false
	}
	if target.Terminal() {
		value, err := target.Result()
		return task.Resume{Value: value, Err: err}, false
	}
	if t.CancelRequested() {
		return task.Resume{Err: task.ErrCanceled}, false
	}
	token := t.Suspend("join "+target.Name(), nil)
	ref := &joinRef{taskID: t.ID(), token: token}
	s.joiners[target.ID()] = append(s.joiners[target.ID()], ref)
	t.SetReleaser(func() { ref.abandoned = true })
	return task.Resume{}, true
}

// handleCancel cancels the target subtree inline. When the calling task is
// inside that subtree, the step loop converts its next resumption into the
// cancellation signal.
func (s *Service) handleCancel(t *task.Task, eff effect.Effect) (task.Resume, bool) {
	target := resolveTask(eff.Task)
	if target == nil {
		target = t
	}
	s.cancelSubtree(target)
	return task.Resume{}, false
}

func (s *Service) handleSelect(eff effect.Effect) (task.Resume, bool) {
	if s.bridge == nil {
		return task.Resume{Err: errors.New("select: no store bridge configured")}, false
	}
	value, err := s.bridge.Select(eff.Selector)
	return task.Resume{Value: value, Err: err}, false
}

func (s *Service) handleDelay(t *task.Task, eff effect.Effect) (task.Resume, bool) {
	if t.CancelRequested() {
		return task.Resume{Err: task.ErrCanceled}, false
	}
	if eff.Duration <= 0 {
		return task.Resume{}, false
	}
	id := t.ID()
	token := t.Suspend("delay", nil)
	timer := s.clock.AfterFunc(eff.Duration, func() {
		s.queue.Put(resumeMsg{id: id, token: token})
	})
	t.SetReleaser(func() { timer.Stop() })
	return task.Resume{}, true
}

func procOf(v any) (Fn, bool) {
	switch fn := v.(type) {
	case Fn:
		return fn, true
	case func(*Context) (any, error):
		return fn, true
	}
	return nil, false
}

func resolveTask(v any) *task.Task {
	switch target := v.(type) {
	case *task.Handle:
		return target.Task()
	case *task.Task:
		return target
	}
	return nil
}
