package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandkit/strand/effect"
	"github.com/strandkit/strand/model/action"
	"github.com/strandkit/strand/runtime/task"
)

func TestRaceFirstSettlementWins(t *testing.T) {
	s := startService(t)
	slowEntered := make(chan struct{})
	slowCancelled := make(chan struct{})
	h := s.Schedule(func(c *Context) (any, error) {
		winner, err := c.Race(map[string]effect.Effect{
			"fast": effect.Invoke(func(ctx context.Context, args ...any) (any, error) {
				<-slowEntered
				return "payload", nil
			}),
			"slow": effect.Invoke(func(ctx context.Context, args ...any) (any, error) {
				close(slowEntered)
				<-ctx.Done()
				close(slowCancelled)
				return nil, ctx.Err()
			}),
		})
		if err != nil {
			return nil, err
		}
		return winner.Label + ":" + winner.Value.(string), nil
	})
	value, err := join(t, h)
	require.NoError(t, err)
	assert.Equal(t, "fast:payload", value)

	// the losing branch's operation context was cancelled
	select {
	case <-slowCancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("losing branch was not cancelled")
	}
	waitIdle(t, s)
	assert.Equal(t, 0, s.arena.Size())
}

func TestRaceFailurePropagates(t *testing.T) {
	s := startService(t)
	h := s.Schedule(func(c *Context) (any, error) {
		_, err := c.Race(map[string]effect.Effect{
			"broken": effect.Invoke(func(ctx context.Context, args ...any) (any, error) {
				return nil, errors.New("lookup failed")
			}),
			"waiting": effect.Take("NEVER"),
		})
		return nil, err
	})
	_, err := join(t, h)
	require.EqualError(t, err, "lookup failed")
	assert.Equal(t, task.StateFailed, h.State())
}

func TestRaceTakeAgainstTimeout(t *testing.T) {
	s := startService(t)
	h := s.Schedule(func(c *Context) (any, error) {
		winner, err := c.Race(map[string]effect.Effect{
			"reply":   effect.Take("REPLY"),
			"timeout": effect.Delay(2 * time.Second),
		})
		if err != nil {
			return nil, err
		}
		return winner.Label, nil
	})
	waitIdle(t, s)
	s.Notify(action.New("REPLY", nil))
	value, err := join(t, h)
	require.NoError(t, err)
	assert.Equal(t, "reply", value)
}

func TestAllCollectsResultsInBranchOrder(t *testing.T) {
	s := startService(t)
	thirdDone := make(chan struct{})
	h := s.Schedule(func(c *Context) (any, error) {
		return c.All(
			effect.Invoke(func(ctx context.Context, args ...any) (any, error) {
				// settle last to prove ordering is by branch, not completion
				<-thirdDone
				return 1, nil
			}),
			effect.Invoke(func(ctx context.Context, args ...any) (any, error) {
				return 2, nil
			}),
			effect.Invoke(func(ctx context.Context, args ...any) (any, error) {
				defer close(thirdDone)
				return 3, nil
			}),
		)
	})
	value, err := join(t, h)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, value)
}

func TestAllFirstFailureCancelsSiblings(t *testing.T) {
	s := startService(t)
	blockerCancelled := make(chan struct{})
	h := s.Schedule(func(c *Context) (any, error) {
		_, err := c.All(
			effect.Invoke(func(ctx context.Context, args ...any) (any, error) {
				<-ctx.Done()
				close(blockerCancelled)
				return nil, ctx.Err()
			}),
			effect.Invoke(func(ctx context.Context, args ...any) (any, error) {
				return nil, errors.New("validation rejected")
			}),
		)
		if err != nil {
			// the parent survives and can recover
			return "recovered: " + err.Error(), nil
		}
		return nil, errors.New("expected failure")
	})
	value, err := join(t, h)
	require.NoError(t, err)
	assert.Equal(t, "recovered: validation rejected", value)
	assert.Equal(t, task.StateCompleted, h.State())

	select {
	case <-blockerCancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("sibling branch was not cancelled")
	}
}

func TestAllWithoutEffects(t *testing.T) {
	s := startService(t)
	h := s.Schedule(func(c *Context) (any, error) {
		return c.All()
	})
	value, err := join(t, h)
	require.NoError(t, err)
	assert.Equal(t, []any{}, value)
}

func TestCancelParentDuringRace(t *testing.T) {
	s := startService(t)
	h := s.Schedule(func(c *Context) (any, error) {
		_, err := c.Race(map[string]effect.Effect{
			"left":  effect.Take("LEFT"),
			"right": effect.Take("RIGHT"),
		})
		return nil, err
	})
	waitIdle(t, s)
	h.Cancel()
	_, err := join(t, h)
	assert.ErrorIs(t, err, task.ErrCanceled)
	waitIdle(t, s)
	assert.Equal(t, 0, s.arena.Size())
	assert.Equal(t, 0, s.hub.Waiting())
}
