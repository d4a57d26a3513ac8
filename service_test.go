package strand_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandkit/strand"
	"github.com/strandkit/strand/channel"
	"github.com/strandkit/strand/effect"
	"github.com/strandkit/strand/internal/clock"
	"github.com/strandkit/strand/model/action"
	"github.com/strandkit/strand/runtime/scheduler"
	"github.com/strandkit/strand/runtime/task"
)

func startRuntime(t *testing.T, srv *strand.Service) *strand.Runtime {
	t.Helper()
	rt := srv.Runtime()
	require.NoError(t, rt.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Shutdown(ctx)
	})
	return rt
}

func joinHandle(t *testing.T, h *task.Handle) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.Join(ctx)
}

func TestLoginFlow(t *testing.T) {
	var successEmits atomic.Int32
	srv := strand.New(
		strand.WithInitialState(map[string]any{
			"auth": map[string]any{"status": "anonymous"},
		}),
		strand.WithReducer(func(state any, a action.Action) any {
			if a.Type != "LOGIN_SUCCESS" {
				return state
			}
			successEmits.Add(1)
			session := a.Payload.(map[string]any)
			return map[string]any{
				"auth": map[string]any{"status": "authenticated", "user": session["user"]},
			}
		}),
		strand.WithOperation("auth.login", func(ctx context.Context, args ...any) (any, error) {
			credentials := args[0].(map[string]any)
			return map[string]any{
				"user":  credentials["user"],
				"token": "token-123",
			}, nil
		}),
	)
	rt := startRuntime(t, srv)

	loginProcess := func(c *scheduler.Context) (any, error) {
		credentials := c.Arg(0).(map[string]any)
		session, err := c.Call("auth.login", credentials)
		if err != nil {
			if emitErr := c.Emit(action.New("LOGIN_FAILURE", err.Error())); emitErr != nil {
				return nil, emitErr
			}
			return nil, err
		}
		if err := c.Emit(action.New("LOGIN_SUCCESS", session)); err != nil {
			return nil, err
		}
		return session, nil
	}

	handle := rt.Schedule(loginProcess, map[string]any{"user": "a", "pass": "b"})
	value, err := joinHandle(t, handle)
	require.NoError(t, err)
	session := value.(map[string]any)
	assert.Equal(t, "a", session["user"])
	assert.Equal(t, task.StateCompleted, handle.State())
	assert.Equal(t, int32(1), successEmits.Load())

	status, err := rt.Select("auth.status")
	require.NoError(t, err)
	assert.Equal(t, "authenticated", status)
}

func TestRaceTimeoutDiscardsLateResponse(t *testing.T) {
	mock := clock.NewMock()
	fetchStarted := make(chan struct{})
	fetchCancelled := make(chan struct{})
	srv := strand.New(strand.WithClock(mock))
	rt := startRuntime(t, srv)

	handle := rt.Schedule(func(c *scheduler.Context) (any, error) {
		winner, err := c.Race(map[string]effect.Effect{
			"timeout": effect.Delay(5 * time.Second),
			"response": effect.Invoke(func(ctx context.Context, args ...any) (any, error) {
				close(fetchStarted)
				<-ctx.Done()
				close(fetchCancelled)
				return "late data", ctx.Err()
			}),
		})
		if err != nil {
			return nil, err
		}
		return winner.Label, nil
	})

	select {
	case <-fetchStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch never started")
	}
	require.Eventually(t, func() bool { return mock.Pending() == 1 }, 5*time.Second, time.Millisecond)

	mock.Advance(5 * time.Second)
	value, err := joinHandle(t, handle)
	require.NoError(t, err)
	assert.Equal(t, "timeout", value)

	// the slow branch's context was cancelled; its eventual result is dropped
	select {
	case <-fetchCancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch was not cancelled")
	}
	assert.Equal(t, task.StateCompleted, handle.State())
}

func TestChannelOfBuffersMatchingActions(t *testing.T) {
	srv := strand.New()
	rt := startRuntime(t, srv)

	ch, stop, err := rt.ChannelOf("METRIC.*", channel.Sliding(4))
	require.NoError(t, err)
	defer stop()

	consumer := rt.Schedule(func(c *scheduler.Context) (any, error) {
		var seen []string
		for i := 0; i < 2; i++ {
			item, err := c.TakeFrom(ch)
			if err != nil {
				return nil, err
			}
			seen = append(seen, item.(action.Action).Type)
		}
		return seen, nil
	})

	rt.Dispatch(action.New("METRIC.cpu", 0.5))
	rt.Dispatch(action.New("OTHER", nil))
	rt.Dispatch(action.New("METRIC.mem", 0.7))

	value, err := joinHandle(t, consumer)
	require.NoError(t, err)
	assert.Equal(t, []string{"METRIC.cpu", "METRIC.mem"}, value)
}

func TestProgressTracksTaskLifecycle(t *testing.T) {
	srv := strand.New()
	rt := startRuntime(t, srv)

	first := rt.Schedule(func(c *scheduler.Context) (any, error) { return 1, nil })
	second := rt.Schedule(func(c *scheduler.Context) (any, error) { return 2, nil })
	_, err := joinHandle(t, first)
	require.NoError(t, err)
	_, err = joinHandle(t, second)
	require.NoError(t, err)

	snapshot := rt.Progress()
	assert.Equal(t, rt.RunID(), snapshot.RunID)
	assert.GreaterOrEqual(t, snapshot.TotalTasks, 2)
	assert.GreaterOrEqual(t, snapshot.CompletedTasks, 2)
}

func TestProgressCountsTasksScheduledBeforeStart(t *testing.T) {
	srv := strand.New()
	rt := srv.Runtime()

	early := rt.Schedule(func(c *scheduler.Context) (any, error) { return "early", nil })
	snapshot := rt.Progress()
	assert.Equal(t, 1, snapshot.TotalTasks)

	require.NoError(t, rt.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Shutdown(ctx)
	})

	result, err := joinHandle(t, early)
	require.NoError(t, err)
	assert.Equal(t, "early", result)

	assert.Eventually(t, func() bool {
		snapshot := rt.Progress()
		return snapshot.CompletedTasks == 1 && snapshot.RunningTasks == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rt.Progress().TotalTasks)
}

func TestRuntimeStartTwice(t *testing.T) {
	srv := strand.New()
	rt := startRuntime(t, srv)
	assert.Error(t, rt.Start(context.Background()))
}
