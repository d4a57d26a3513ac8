package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/strandkit/strand/channel"
	"github.com/strandkit/strand/model/action"
)

func pattern(t *testing.T, expr string) action.Pattern {
	p, err := action.Parse(expr)
	assert.Nil(t, err)
	return p
}

func TestBroadcastResumesAllMatchingWaitersInOrder(t *testing.T) {
	hub := New()
	var order []string
	hub.Register(pattern(t, "LOGIN_*"), func(a action.Action) { order = append(order, "first") })
	hub.Register(pattern(t, "LOGOUT"), func(a action.Action) { order = append(order, "never") })
	hub.Register(pattern(t, "*"), func(a action.Action) { order = append(order, "second") })

	hub.Broadcast(action.New("LOGIN_SUCCESS", nil))

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 1, hub.Waiting(), "unmatched waiter stays registered")
}

func TestWaiterMatchedExactlyOnce(t *testing.T) {
	hub := New()
	count := 0
	hub.Register(pattern(t, "PING"), func(a action.Action) { count++ })

	hub.Broadcast(action.New("PING", nil))
	hub.Broadcast(action.New("PING", nil))

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, hub.Waiting())
}

func TestCancelledWaiterNotDelivered(t *testing.T) {
	hub := New()
	delivered := false
	cancel := hub.Register(pattern(t, "PING"), func(a action.Action) { delivered = true })
	cancel()

	hub.Broadcast(action.New("PING", nil))
	assert.False(t, delivered)
	assert.Equal(t, 0, hub.Waiting())
}

func TestDeliveryMayRegisterNewWaiter(t *testing.T) {
	hub := New()
	count := 0
	var rearm func(a action.Action)
	rearm = func(a action.Action) {
		count++
		hub.Register(pattern(t, "PING"), rearm)
	}
	hub.Register(pattern(t, "PING"), rearm)

	hub.Broadcast(action.New("PING", nil))
	hub.Broadcast(action.New("PING", nil))
	assert.Equal(t, 2, count, "re-registered waiter sees later broadcasts only")
}

func TestPipeFeedsChannel(t *testing.T) {
	hub := New()
	ch := channel.New(channel.Unbounded())
	stop := hub.Pipe(pattern(t, "USER_*"), ch)

	hub.Broadcast(action.New("USER_CREATED", 1))
	hub.Broadcast(action.New("OTHER", 2))
	hub.Broadcast(action.New("USER_DELETED", 3))
	assert.Equal(t, 2, ch.Len())

	stop()
	hub.Broadcast(action.New("USER_UPDATED", 4))
	assert.Equal(t, 2, ch.Len())

	item, ok, _ := ch.TryTake()
	assert.True(t, ok)
	assert.Equal(t, "USER_CREATED", item.(action.Action).Type)
}
