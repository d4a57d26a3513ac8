package action

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	pipeCode
	atomCode
)

// Token definitions
var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	pipeToken       = parsly.NewToken(pipeCode, "|", matcher.NewByte('|'))
	atomToken       = parsly.NewToken(atomCode, "PatternAtom", &atomMatcher{})
)

// atomMatcher matches one pattern atom: a run of action-type characters
// (letters, digits, '_', '.', '-', '/') optionally terminated by a single
// '*' glob, or a lone '*'.
type atomMatcher struct{}

func (m *atomMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}
	if input[pos] == '*' {
		return 1
	}
	if !isAtomChar(input[pos]) {
		return 0
	}

	matched := 1
	for i := pos + 1; i < size; i++ {
		if isAtomChar(input[i]) {
			matched++
			continue
		}
		if input[i] == '*' {
			// glob terminates the atom
			return matched + 1
		}
		break
	}
	return matched
}

func isAtomChar(b byte) bool {
	return isLetter(b) || isDigit(b) || b == '_' || b == '.' || b == '-' || b == '/'
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
