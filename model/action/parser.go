package action

import (
	"fmt"
	"strings"

	"github.com/viant/parsly"
)

// Parse parses a pattern expression in the format: atom ( '|' atom )*
// where atom is an action type ("LOGIN_SUCCESS"), a glob ("USER_*") or the
// '*' wildcard. Parsed patterns are cached.
func Parse(expression string) (Pattern, error) {
	if cached, ok := patternCache.Get(expression); ok {
		return cached, nil
	}
	parsed, err := parse(expression)
	if err != nil {
		return nil, err
	}
	patternCache.Add(expression, parsed)
	return parsed, nil
}

func parse(expression string) (Pattern, error) {
	cursor := parsly.NewCursor("", []byte(expression), 0)
	var members AnyOf

	for {
		matched := cursor.MatchAfterOptional(whitespaceToken, atomToken)
		if matched.Code != atomToken.Code {
			return nil, cursor.NewError(atomToken)
		}
		members = append(members, atomPattern(matched.Text(cursor)))

		matched = cursor.MatchAfterOptional(whitespaceToken, pipeToken)
		if matched.Code != pipeToken.Code {
			break
		}
	}

	// Ensure nothing but trailing whitespace remains.
	if rest := strings.TrimSpace(string(cursor.Input[cursor.Pos:])); rest != "" {
		return nil, fmt.Errorf("unexpected input %q in pattern %q", rest, expression)
	}

	if len(members) == 1 {
		return members[0], nil
	}
	return members, nil
}

func atomPattern(text string) Pattern {
	if text == "*" {
		return Wildcard{}
	}
	if strings.HasSuffix(text, "*") {
		return Prefix(strings.TrimSuffix(text, "*"))
	}
	return Exact(text)
}
