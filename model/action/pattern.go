package action

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Pattern decides whether an emitted action matches a waiting Take effect.
type Pattern interface {
	Matches(a Action) bool
}

// Predicate adapts a function to the Pattern interface.
type Predicate func(a Action) bool

func (p Predicate) Matches(a Action) bool { return p(a) }

// Exact matches a single action type.
type Exact string

func (e Exact) Matches(a Action) bool { return string(e) == a.Type }

// Prefix matches every action whose type starts with the given prefix. It is
// produced by pattern expressions with a trailing '*'.
type Prefix string

func (p Prefix) Matches(a Action) bool { return strings.HasPrefix(a.Type, string(p)) }

// Wildcard matches every action.
type Wildcard struct{}

func (Wildcard) Matches(Action) bool { return true }

// AnyOf matches when at least one member pattern matches.
type AnyOf []Pattern

func (s AnyOf) Matches(a Action) bool {
	for _, p := range s {
		if p.Matches(a) {
			return true
		}
	}
	return false
}

// patternCache holds parsed pattern expressions; Take effects typically reuse
// the same handful of expressions on every loop iteration.
var patternCache, _ = lru.New[string, Pattern](128)

// Of coerces the supported pattern representations to a Pattern:
// nil (match all), string expression, func(Action) bool, a Pattern value, or
// a slice of any of these.
func Of(value any) (Pattern, error) {
	switch actual := value.(type) {
	case nil:
		return Wildcard{}, nil
	case Pattern:
		return actual, nil
	case string:
		return Parse(actual)
	case func(Action) bool:
		return Predicate(actual), nil
	case []string:
		members := make(AnyOf, 0, len(actual))
		for _, expr := range actual {
			p, err := Parse(expr)
			if err != nil {
				return nil, err
			}
			members = append(members, p)
		}
		return members, nil
	case []any:
		members := make(AnyOf, 0, len(actual))
		for _, item := range actual {
			p, err := Of(item)
			if err != nil {
				return nil, err
			}
			members = append(members, p)
		}
		return members, nil
	}
	return nil, fmt.Errorf("unsupported pattern %T", value)
}
