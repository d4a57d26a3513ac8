// Package channel provides the mailbox bridging external asynchronous
// sources (timers, sockets, UI events) into the engine's pull-based take
// vocabulary. Items queue per the configured buffer strategy until a process
// takes them; closing delivers ErrClosed to pending and future takers.
package channel

import (
	"errors"
	"sync"
)

// ErrClosed is delivered to takers once the channel's source has ended and
// the buffer drained, so that no taker hangs indefinitely.
var ErrClosed = errors.New("channel closed")

// SourceFunc attaches an external push source. It receives an emit callback
// and returns an unsubscribe function invoked when the channel is closed.
type SourceFunc func(emit func(item any)) (unsubscribe func())

// Taker receives a single delivered item, or ErrClosed.
type Taker func(item any, err error)

// Channel is a FIFO (or sliding/replacing, per buffer) mailbox. Puts may
// come from any goroutine; takers are served in registration order.
type Channel struct {
	mu          sync.Mutex
	buffer      Buffer
	takers      []*takerEntry
	closed      bool
	unsubscribe func()
}

type takerEntry struct {
	deliver  Taker
	canceled bool
}

// New creates a channel with the supplied buffer strategy. A nil buffer
// defaults to Unbounded.
func New(buffer Buffer) *Channel {
	if buffer == nil {
		buffer = Unbounded()
	}
	return &Channel{buffer: buffer}
}

// FromSource creates a channel fed by an external push source.
func FromSource(source SourceFunc, buffer Buffer) *Channel {
	ch := New(buffer)
	ch.unsubscribe = source(func(item any) { _ = ch.Put(item) })
	return ch
}

// Put delivers an item to the oldest waiting taker, or stores it in the
// buffer. It returns ErrClosed after Close, and reports a full fixed buffer
// by returning nil while discarding the item (puts are fire-and-forget for
// external sources).
func (c *Channel) Put(item any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if taker := c.nextTakerLocked(); taker != nil {
		c.mu.Unlock()
		taker.deliver(item, nil)
		return nil
	}
	c.buffer.Put(item)
	c.mu.Unlock()
	return nil
}

// TryTake synchronously claims the next queued item. The error is ErrClosed
// once the channel is closed and drained.
func (c *Channel) TryTake() (any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.buffer.Take(); ok {
		return item, true, nil
	}
	if c.closed {
		return nil, false, ErrClosed
	}
	return nil, false, nil
}

// Register enqueues a taker to receive the next item (or ErrClosed). When an
// item is already queued the taker is served before Register returns. The
// returned cancel function withdraws a still-pending taker.
func (c *Channel) Register(taker Taker) (cancel func()) {
	c.mu.Lock()
	if item, ok := c.buffer.Take(); ok {
		c.mu.Unlock()
		taker(item, nil)
		return func() {}
	}
	if c.closed {
		c.mu.Unlock()
		taker(nil, ErrClosed)
		return func() {}
	}
	entry := &takerEntry{deliver: taker}
	c.takers = append(c.takers, entry)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		entry.canceled = true
		c.mu.Unlock()
	}
}

// Close ends the channel: the external source is unsubscribed and every
// pending taker receives ErrClosed. Items already queued remain takeable
// via TryTake.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.takers
	c.takers = nil
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	for _, entry := range pending {
		if !entry.canceled {
			entry.deliver(nil, ErrClosed)
		}
	}
}

// Len returns the number of buffered items.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.Len()
}

func (c *Channel) nextTakerLocked() *takerEntry {
	for len(c.takers) > 0 {
		entry := c.takers[0]
		c.takers = c.takers[1:]
		if !entry.canceled {
			return entry
		}
	}
	return nil
}
