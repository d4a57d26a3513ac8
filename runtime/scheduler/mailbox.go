package scheduler

import "sync"

// mailbox is the scheduler's unbounded intake queue. Producers are process
// goroutines, invoke workers, timers and the bridge subscription; the single
// consumer is the Run loop, which gives every message a deterministic FIFO
// position.
type mailbox struct {
	mu     sync.Mutex
	items  []any
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) Put(item any) {
	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Get blocks until a message is available or done is closed.
func (m *mailbox) Get(done <-chan struct{}) (any, bool) {
	for {
		if item, ok := m.TryGet(); ok {
			return item, true
		}
		select {
		case <-m.notify:
		case <-done:
			return nil, false
		}
	}
}

func (m *mailbox) TryGet() (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == 0 {
		return nil, false
	}
	item := m.items[0]
	m.items = m.items[1:]
	return item, true
}

func (m *mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
