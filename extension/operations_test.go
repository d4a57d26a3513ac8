package extension

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/x"
)

type loginRequest struct {
	User string
	Pass string
}

func TestRegisterAndLookup(t *testing.T) {
	ops := New()
	err := ops.Register("auth.login", func(ctx context.Context, args ...any) (any, error) {
		return "token", nil
	})
	assert.Nil(t, err)

	op, ok := ops.Lookup("auth.login")
	assert.True(t, ok)
	result, err := op(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, "token", result)

	_, ok = ops.Lookup("auth.logout")
	assert.False(t, ok)
}

func TestRegisterValidation(t *testing.T) {
	ops := New()
	assert.NotNil(t, ops.Register("", func(ctx context.Context, args ...any) (any, error) { return nil, nil }))
	assert.NotNil(t, ops.Register("x", nil))

	noop := func(ctx context.Context, args ...any) (any, error) { return nil, nil }
	assert.Nil(t, ops.Register("dup", noop))
	assert.NotNil(t, ops.Register("dup", noop))
}

func TestNamesSorted(t *testing.T) {
	ops := New()
	noop := func(ctx context.Context, args ...any) (any, error) { return nil, nil }
	_ = ops.Register("b.op", noop)
	_ = ops.Register("a.op", noop)
	assert.Equal(t, []string{"a.op", "b.op"}, ops.Names())
}

func TestRegisterType(t *testing.T) {
	ops := New()
	ops.RegisterType(x.NewType(reflect.TypeOf(loginRequest{}), x.WithName("auth.LoginRequest")))

	dataType := ops.Types().Lookup("auth.LoginRequest")
	if assert.NotNil(t, dataType) {
		assert.Equal(t, reflect.TypeOf(loginRequest{}), dataType.Type)
		assert.NotNil(t, ops.Types().Lookup(dataType.Key()))
	}
	assert.Nil(t, ops.Types().Lookup("auth.Unknown"))
}
