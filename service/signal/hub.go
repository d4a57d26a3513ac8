// Package signal implements the broadcast matcher behind Take effects:
// waiters register a pattern and are resumed, in registration order, by the
// first emitted action that matches. Matching is non-destructive across
// waiters (broadcast) and exactly-once per waiter: a matched waiter is
// deregistered before its delivery runs.
package signal

import (
	"sync"

	"github.com/strandkit/strand/channel"
	"github.com/strandkit/strand/model/action"
)

// Deliver receives the matched action.
type Deliver func(a action.Action)

// Hub fans emitted actions out to pattern waiters and piped channels.
type Hub struct {
	mu      sync.Mutex
	waiters []*waiter
	pipes   []*pipe
}

type waiter struct {
	pattern action.Pattern
	deliver Deliver
	removed bool
}

type pipe struct {
	pattern action.Pattern
	ch      *channel.Channel
	removed bool
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{}
}

// Register adds a one-shot waiter for pattern. The returned cancel function
// deregisters it without delivery (used when the waiting task is cancelled).
func (h *Hub) Register(pattern action.Pattern, deliver Deliver) (cancel func()) {
	w := &waiter{pattern: pattern, deliver: deliver}
	h.mu.Lock()
	h.waiters = append(h.waiters, w)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		w.removed = true
		h.mu.Unlock()
	}
}

// Pipe feeds every action matching pattern into ch until stopped. Unlike
// waiters, pipes are persistent; they back throttle/debounce channels and
// caller-created action channels.
func (h *Hub) Pipe(pattern action.Pattern, ch *channel.Channel) (stop func()) {
	p := &pipe{pattern: pattern, ch: ch}
	h.mu.Lock()
	h.pipes = append(h.pipes, p)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		p.removed = true
		h.mu.Unlock()
	}
}

// Broadcast matches a against every waiter exactly once. Matched waiters
// are deregistered first, then delivered in registration order; deliveries
// may register new waiters without affecting the current broadcast.
func (h *Hub) Broadcast(a action.Action) {
	h.mu.Lock()
	var matched []*waiter
	remaining := h.waiters[:0]
	for _, w := range h.waiters {
		if w.removed {
			continue
		}
		if w.pattern.Matches(a) {
			w.removed = true
			matched = append(matched, w)
			continue
		}
		remaining = append(remaining, w)
	}
	h.waiters = remaining

	var fed []*pipe
	pipes := h.pipes[:0]
	for _, p := range h.pipes {
		if p.removed {
			continue
		}
		pipes = append(pipes, p)
		if p.pattern.Matches(a) {
			fed = append(fed, p)
		}
	}
	h.pipes = pipes
	h.mu.Unlock()

	for _, w := range matched {
		w.deliver(a)
	}
	for _, p := range fed {
		_ = p.ch.Put(a)
	}
}

// Waiting returns the number of registered waiters; informative only.
func (h *Hub) Waiting() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, w := range h.waiters {
		if !w.removed {
			n++
		}
	}
	return n
}
