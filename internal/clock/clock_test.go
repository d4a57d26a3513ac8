package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockAdvanceFiresInDueOrder(t *testing.T) {
	m := NewMock()
	var fired []string
	m.AfterFunc(30*time.Millisecond, func() { fired = append(fired, "c") })
	m.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "a") })
	m.AfterFunc(20*time.Millisecond, func() { fired = append(fired, "b") })

	m.Advance(15 * time.Millisecond)
	assert.Equal(t, []string{"a"}, fired)

	m.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
}

func TestMockStop(t *testing.T) {
	m := NewMock()
	fired := false
	timer := m.AfterFunc(10*time.Millisecond, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	m.Advance(time.Second)
	assert.False(t, fired)
}

func TestMockCallbackSchedulesTimer(t *testing.T) {
	m := NewMock()
	var fired []string
	m.AfterFunc(10*time.Millisecond, func() {
		fired = append(fired, "outer")
		m.AfterFunc(5*time.Millisecond, func() { fired = append(fired, "inner") })
	})

	m.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"outer", "inner"}, fired)
}

func TestMockNowAdvances(t *testing.T) {
	m := NewMock()
	start := m.Now()
	m.Advance(time.Minute)
	assert.Equal(t, time.Minute, m.Now().Sub(start))
}
