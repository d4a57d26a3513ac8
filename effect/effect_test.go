package effect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/strandkit/strand/model/action"
)

func TestDescriptorsAreInert(t *testing.T) {
	invoked := false
	fn := func(ctx context.Context, args ...any) (any, error) {
		invoked = true
		return nil, nil
	}

	eff := Invoke(fn, 1, 2)
	assert.Equal(t, KindInvoke, eff.Kind)
	assert.Equal(t, []any{1, 2}, eff.Args)
	assert.False(t, invoked, "constructing a descriptor must not run the operation")

	emit := Emit(action.New("LOGIN_SUCCESS", "payload"))
	assert.Equal(t, KindEmit, emit.Kind)
	assert.Equal(t, "LOGIN_SUCCESS", emit.Action.Type)

	race := Race(map[string]Effect{
		"timeout":  Delay(time.Second),
		"response": Invoke(fn),
	})
	assert.Equal(t, KindRace, race.Kind)
	assert.Len(t, race.Branches, 2)
	assert.False(t, invoked)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "invoke", KindInvoke.String())
	assert.Equal(t, "race", KindRace.String())
	assert.Equal(t, "throttle", KindThrottle.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
