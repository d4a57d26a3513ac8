package scheduler

import (
	"fmt"
	"time"

	"github.com/strandkit/strand/channel"
	"github.com/strandkit/strand/effect"
	"github.com/strandkit/strand/model/action"
	"github.com/strandkit/strand/runtime/task"
)

// handleWatcher forks a long-lived watcher process implementing Debounce
// or Throttle on top of Take, Delay, Race and Fork.
func (s *Service) handleWatcher(t *task.Task, eff effect.Effect) (task.Resume, bool) {
	if t.CancelRequested() {
		return task.Resume{Err: task.ErrCanceled}, false
	}
	handler, ok := procOf(eff.Proc)
	if !ok {
		return task.Resume{Err: fmt.Errorf("%w: unsupported process type %T", ErrUnmatchedEffect, eff.Proc)}, false
	}
	pattern, err := action.Of(eff.Pattern)
	if err != nil {
		return task.Resume{Err: err}, false
	}
	var fn Fn
	name := "throttle"
	if eff.Kind == effect.KindDebounce {
		fn = s.debounceProc(eff.Duration, pattern, handler)
		name = "debounce"
	} else {
		fn = s.throttleProc(eff.Duration, pattern, handler)
	}
	handle := s.spawnTask(t, fn, nil, false, name)
	return task.Resume{Value: handle}, false
}

// debounceProc restarts its quiet timer on every match, keeping only the
// latest action, and forks the handler once the pattern stays quiet for
// the full duration.
func (s *Service) debounceProc(d time.Duration, pattern action.Pattern, handler Fn) Fn {
	return func(c *Context) (any, error) {
		ch := channel.New(channel.Replacing(1))
		stop := s.hub.Pipe(pattern, ch)
		defer stop()
		defer ch.Close()
		for {
			item, err := c.TakeFrom(ch)
			if err != nil {
				return nil, err
			}
			latest := item
			for {
				winner, err := c.Race(map[string]effect.Effect{
					"quiet":  effect.Delay(d),
					"signal": effect.TakeFrom(ch),
				})
				if err != nil {
					return nil, err
				}
				if winner.Label == "signal" {
					latest = winner.Value
					continue
				}
				if _, err := c.Fork(handler, latest); err != nil {
					return nil, err
				}
				break
			}
		}
	}
}

// throttleProc forks the handler on the first match and then ignores the
// pattern for the duration: matches landing inside the window are drained
// away once it closes.
func (s *Service) throttleProc(d time.Duration, pattern action.Pattern, handler Fn) Fn {
	return func(c *Context) (any, error) {
		ch := channel.New(channel.Sliding(1))
		stop := s.hub.Pipe(pattern, ch)
		defer stop()
		defer ch.Close()
		for {
			item, err := c.TakeFrom(ch)
			if err != nil {
				return nil, err
			}
			if _, err := c.Fork(handler, item); err != nil {
				return nil, err
			}
			if err := c.Sleep(d); err != nil {
				return nil, err
			}
			for {
				if _, ok, _ := ch.TryTake(); !ok {
					break
				}
			}
		}
	}
}
