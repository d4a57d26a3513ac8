package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateTerminal(t *testing.T) {
	assert.False(t, StateRunning.Terminal())
	assert.False(t, StateSuspended.Terminal())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateCancelled.Terminal())
}

func TestSettleIsFinal(t *testing.T) {
	arena := NewArena()
	tk := arena.Create(nil, "root", false)

	assert.True(t, tk.Settle(StateCompleted, "value", nil))
	assert.False(t, tk.Settle(StateFailed, nil, assert.AnError), "terminal states must not transition")
	assert.Equal(t, StateCompleted, tk.State())

	result, err := tk.Result()
	assert.Nil(t, err)
	assert.Equal(t, "value", result)
}

func TestCancelledResult(t *testing.T) {
	arena := NewArena()
	tk := arena.Create(nil, "root", false)
	assert.True(t, tk.RequestCancel())
	assert.False(t, tk.RequestCancel(), "cancel marks once")
	tk.Settle(StateCancelled, nil, nil)

	_, err := tk.Result()
	assert.Equal(t, ErrCanceled, err)
}

func TestParentChildLinks(t *testing.T) {
	arena := NewArena()
	parent := arena.Create(nil, "parent", false)
	child := arena.Create(parent, "child", false)
	detached := arena.Create(parent, "detached", true)

	assert.Equal(t, parent.ID(), child.ParentID())
	assert.Equal(t, int64(0), detached.ParentID())
	assert.Equal(t, []int64{child.ID()}, parent.Children())

	child.Settle(StateCompleted, nil, nil)
	arena.Remove(child)
	assert.Empty(t, parent.Children())
	assert.Nil(t, arena.Lookup(child.ID()))
}

func TestSuspendTokensInvalidateStaleResumes(t *testing.T) {
	arena := NewArena()
	tk := arena.Create(nil, "root", false)

	first := tk.Suspend("take", nil)
	second := tk.Suspend("delay", nil)
	assert.NotEqual(t, first, second)
	assert.Equal(t, second, tk.WaitToken())
	assert.Equal(t, "delay", tk.Awaiting())
}

func TestReleaseRunsOnce(t *testing.T) {
	arena := NewArena()
	tk := arena.Create(nil, "root", false)

	released := 0
	tk.Suspend("take", func() { released++ })
	tk.Release()
	tk.Release()
	assert.Equal(t, 1, released)
}

func TestHandleJoin(t *testing.T) {
	arena := NewArena()
	tk := arena.Create(nil, "root", false)
	cancelled := false
	handle := NewHandle(tk, func() { cancelled = true })

	assert.False(t, handle.IsDone())
	handle.Cancel()
	assert.True(t, cancelled)

	go func() {
		time.Sleep(5 * time.Millisecond)
		tk.Settle(StateCompleted, 42, nil)
	}()

	result, err := handle.Join(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 42, result)
	assert.True(t, handle.IsDone())
}

func TestHandleJoinContextBound(t *testing.T) {
	arena := NewArena()
	tk := arena.Create(nil, "root", false)
	handle := NewHandle(tk, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := handle.Join(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
}
