// Package effect defines the inert descriptors processes yield to request
// work from the interpreter. A descriptor is pure data: constructing one has
// no side effect; only the scheduler interpreting it does.
package effect

import (
	"context"
	"time"

	"github.com/strandkit/strand/channel"
	"github.com/strandkit/strand/model/action"
)

// Kind tags the closed set of effect variants the interpreter understands.
type Kind int

const (
	// KindInvoke calls an operation function asynchronously.
	KindInvoke Kind = iota + 1
	// KindCall invokes a named operation from the extension registry.
	KindCall
	// KindEmit hands an action to the store bridge, fire-and-forget.
	KindEmit
	// KindTake suspends until an action matching the pattern is emitted.
	KindTake
	// KindTakeFrom suspends on a private channel instead of the broadcast
	// matcher.
	KindTakeFrom
	// KindFork starts a child task and resumes immediately with its handle.
	KindFork
	// KindSpawn is Fork without parent linkage (detached).
	KindSpawn
	// KindJoin suspends until the referenced task settles.
	KindJoin
	// KindCancel requests cooperative cancellation of a task subtree.
	KindCancel
	// KindRace runs labeled effects concurrently; first settlement wins.
	KindRace
	// KindAll runs effects concurrently and waits for every settlement.
	KindAll
	// KindSelect reads store state synchronously.
	KindSelect
	// KindDelay suspends for a duration, cancellable.
	KindDelay
	// KindDebounce forks a watcher that invokes the handler only after the
	// pattern has been quiet for the duration.
	KindDebounce
	// KindThrottle forks a watcher that invokes the handler at most once per
	// duration window.
	KindThrottle
)

func (k Kind) String() string {
	switch k {
	case KindInvoke:
		return "invoke"
	case KindCall:
		return "call"
	case KindEmit:
		return "emit"
	case KindTake:
		return "take"
	case KindTakeFrom:
		return "takeFrom"
	case KindFork:
		return "fork"
	case KindSpawn:
		return "spawn"
	case KindJoin:
		return "join"
	case KindCancel:
		return "cancel"
	case KindRace:
		return "race"
	case KindAll:
		return "all"
	case KindSelect:
		return "select"
	case KindDelay:
		return "delay"
	case KindDebounce:
		return "debounce"
	case KindThrottle:
		return "throttle"
	}
	return "unknown"
}

// Op is the signature of an invocable operation. The context is cancelled
// when the invoking task is cancelled; operations without a natural abort
// point may ignore it, in which case their eventual result is discarded.
type Op func(ctx context.Context, args ...any) (any, error)

// Effect is the tagged descriptor. Only the fields relevant to Kind are
// populated. Proc and Task are deliberately loosely typed: the process
// function type and the task handle live above this package, and the
// interpreter re-asserts them on dispatch.
type Effect struct {
	Kind Kind

	// Invoke / Call
	Op   Op
	Name string
	Args []any

	// Emit
	Action action.Action

	// Take / TakeFrom / Debounce / Throttle
	Pattern any
	Channel *channel.Channel

	// Fork / Spawn / Debounce / Throttle
	Proc any

	// Join / Cancel
	Task any

	// Race
	Branches map[string]Effect

	// All
	Effects []Effect

	// Select
	Selector any

	// Delay / Debounce / Throttle
	Duration time.Duration
}

// Invoke describes calling fn with args; the task suspends until fn settles.
func Invoke(fn Op, args ...any) Effect {
	return Effect{Kind: KindInvoke, Op: fn, Args: args}
}

// Call describes invoking the named registry operation with args.
func Call(name string, args ...any) Effect {
	return Effect{Kind: KindCall, Name: name, Args: args}
}

// Emit describes handing an action to the store bridge.
func Emit(a action.Action) Effect {
	return Effect{Kind: KindEmit, Action: a}
}

// Take describes awaiting the first action matching pattern (see
// action.Of for accepted forms).
func Take(pattern any) Effect {
	return Effect{Kind: KindTake, Pattern: pattern}
}

// TakeFrom describes awaiting the next item from a private channel.
func TakeFrom(ch *channel.Channel) Effect {
	return Effect{Kind: KindTakeFrom, Channel: ch}
}

// Fork describes starting proc as a child task; the parent resumes
// immediately with the child's handle.
func Fork(proc any, args ...any) Effect {
	return Effect{Kind: KindFork, Proc: proc, Args: args}
}

// Spawn describes starting proc as a detached task.
func Spawn(proc any, args ...any) Effect {
	return Effect{Kind: KindSpawn, Proc: proc, Args: args}
}

// Join describes awaiting the settlement of the referenced task handle.
func Join(handle any) Effect {
	return Effect{Kind: KindJoin, Task: handle}
}

// Cancel describes cooperative cancellation of the referenced task handle
// and its whole subtree.
func Cancel(handle any) Effect {
	return Effect{Kind: KindCancel, Task: handle}
}

// Race describes running the labeled effects concurrently; the first to
// settle wins and all losers are cancelled.
func Race(branches map[string]Effect) Effect {
	return Effect{Kind: KindRace, Branches: branches}
}

// All describes running effects concurrently and awaiting every settlement;
// any failure cancels the rest and propagates.
func All(effects ...Effect) Effect {
	return Effect{Kind: KindAll, Effects: effects}
}

// Select describes a synchronous read of store state. The selector may be a
// path expression ("user.name") or a func applied to the state.
func Select(selector any) Effect {
	return Effect{Kind: KindSelect, Selector: selector}
}

// Delay describes a cancellable suspension for the given duration.
func Delay(duration time.Duration) Effect {
	return Effect{Kind: KindDelay, Duration: duration}
}

// Debounce describes forking a watcher that runs proc with the triggering
// action only once the pattern has been quiet for duration.
func Debounce(duration time.Duration, pattern any, proc any) Effect {
	return Effect{Kind: KindDebounce, Duration: duration, Pattern: pattern, Proc: proc}
}

// Throttle describes forking a watcher that runs proc with the triggering
// action immediately, then ignores further matches until duration elapsed.
func Throttle(duration time.Duration, pattern any, proc any) Effect {
	return Effect{Kind: KindThrottle, Duration: duration, Pattern: pattern, Proc: proc}
}
