package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		name      string
		policy    *Policy
		operation string
		allowed   bool
	}{
		{name: "nil policy allows all", policy: nil, operation: "auth.login", allowed: true},
		{name: "deny mode blocks", policy: &Policy{Mode: ModeDeny}, operation: "auth.login", allowed: false},
		{
			name:      "block list wins",
			policy:    &Policy{AllowList: []string{"auth.login"}, BlockList: []string{"auth.login"}},
			operation: "auth.login",
			allowed:   false,
		},
		{
			name:      "allow list restricts",
			policy:    &Policy{AllowList: []string{"auth.login"}},
			operation: "billing.charge",
			allowed:   false,
		},
		{
			name:      "case insensitive match",
			policy:    &Policy{AllowList: []string{"Auth.Login"}},
			operation: "auth.login",
			allowed:   true,
		},
		{name: "empty lists allow", policy: &Policy{}, operation: "anything", allowed: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.policy.IsAllowed(tc.operation), tc.name)
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	p := &Policy{Mode: ModeDeny}
	ctx := WithPolicy(context.Background(), p)
	assert.Equal(t, p, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}
