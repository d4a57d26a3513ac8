package task

import (
	"sync"
	"time"
)

// Arena owns every live task, keyed by a monotonically increasing integer
// id. Parent/child references are ids rather than pointers so the task tree
// carries no ownership cycles; settled tasks are removed and survive only
// through handles still holding them.
type Arena struct {
	mu    sync.Mutex
	seq   int64
	tasks map[int64]*Task
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{tasks: make(map[int64]*Task)}
}

// Create registers a new task. A nil parent (or detached=true) produces an
// unparented task.
func (a *Arena) Create(parent *Task, name string, detached bool) *Task {
	a.mu.Lock()
	a.seq++
	t := &Task{
		id:        a.seq,
		name:      name,
		detached:  detached,
		state:     StateRunning,
		in:        make(chan Resume),
		out:       make(chan Yield),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	if parent != nil && !detached {
		t.parentID = parent.ID()
	}
	a.tasks[t.id] = t
	a.mu.Unlock()

	if parent != nil && !detached {
		parent.AddChild(t.id)
	}
	return t
}

// Lookup returns the task with the given id, or nil.
func (a *Arena) Lookup(id int64) *Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tasks[id]
}

// Remove drops a settled task from the arena and unlinks it from its
// parent.
func (a *Arena) Remove(t *Task) {
	if t == nil {
		return
	}
	a.mu.Lock()
	delete(a.tasks, t.ID())
	parent := a.tasks[t.ParentID()]
	a.mu.Unlock()
	if parent != nil {
		parent.RemoveChild(t.ID())
	}
}

// Live returns a snapshot of all registered tasks.
func (a *Arena) Live() []*Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Task, 0, len(a.tasks))
	for _, t := range a.tasks {
		out = append(out, t)
	}
	return out
}

// Size returns the number of registered tasks.
func (a *Arena) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tasks)
}
