package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		matching   []string
		rejected   []string
		hasError   bool
	}{
		{
			name:       "exact type",
			expression: "LOGIN_SUCCESS",
			matching:   []string{"LOGIN_SUCCESS"},
			rejected:   []string{"LOGIN_FAILURE", "LOGIN_SUCCES"},
		},
		{
			name:       "glob prefix",
			expression: "USER_*",
			matching:   []string{"USER_CREATED", "USER_"},
			rejected:   []string{"ACCOUNT_CREATED", "USER"},
		},
		{
			name:       "wildcard",
			expression: "*",
			matching:   []string{"ANYTHING", ""},
		},
		{
			name:       "alternation",
			expression: "LOGIN_SUCCESS | SESSION_* |LOGOUT",
			matching:   []string{"LOGIN_SUCCESS", "SESSION_EXPIRED", "LOGOUT"},
			rejected:   []string{"LOGIN_FAILURE"},
		},
		{
			name:       "empty expression",
			expression: "",
			hasError:   true,
		},
		{
			name:       "dangling pipe",
			expression: "LOGIN |",
			hasError:   true,
		},
		{
			name:       "invalid characters",
			expression: "LOGIN$",
			hasError:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pattern, err := Parse(tc.expression)
			if tc.hasError {
				assert.NotNil(t, err, tc.name)
				return
			}
			assert.Nil(t, err, tc.name)
			for _, actionType := range tc.matching {
				assert.True(t, pattern.Matches(New(actionType, nil)), "%v should match %v", tc.expression, actionType)
			}
			for _, actionType := range tc.rejected {
				assert.False(t, pattern.Matches(New(actionType, nil)), "%v should not match %v", tc.expression, actionType)
			}
		})
	}
}

func TestOf(t *testing.T) {
	pattern, err := Of(nil)
	assert.Nil(t, err)
	assert.True(t, pattern.Matches(New("ANY", nil)))

	pattern, err = Of(func(a Action) bool { return a.Payload != nil })
	assert.Nil(t, err)
	assert.True(t, pattern.Matches(New("X", 1)))
	assert.False(t, pattern.Matches(New("X", nil)))

	pattern, err = Of([]string{"A", "B_*"})
	assert.Nil(t, err)
	assert.True(t, pattern.Matches(New("A", nil)))
	assert.True(t, pattern.Matches(New("B_C", nil)))
	assert.False(t, pattern.Matches(New("C", nil)))

	_, err = Of(42)
	assert.NotNil(t, err)
}

func TestParseUsesCache(t *testing.T) {
	first, err := Parse("CACHED_EXPR")
	assert.Nil(t, err)
	second, err := Parse("CACHED_EXPR")
	assert.Nil(t, err)
	assert.Equal(t, first, second)
}
