package search

import (
	"fmt"
	"strings"
)

// TokenNameParser is the default NameParser: the last whitespace token is
// the last name, everything before it the first name. Single tokens fail,
// which pushes the free-text cascade to single-field matching.
//
// Callers with a real person-name parser plug it in via WithNameParser.
type TokenNameParser struct{}

// Ensure TokenNameParser implements NameParser interface.
var _ NameParser = TokenNameParser{}

// Parse implements NameParser.
func (TokenNameParser) Parse(value string) (first, last string, err error) {
	tokens := strings.Fields(value)
	if len(tokens) < 2 {
		return "", "", fmt.Errorf("cannot split %q into first and last name", value)
	}
	return strings.Join(tokens[:len(tokens)-1], " "), tokens[len(tokens)-1], nil
}

// splitName resolves (first, last) from a free-text value: a literal
// "Last, First" comma split wins, otherwise the parser decides.
func splitName(value string, parser NameParser) (first, last string, ok bool) {
	if lastPart, firstPart, found := strings.Cut(value, ","); found {
		first = strings.TrimSpace(firstPart)
		last = strings.TrimSpace(lastPart)
		if first != "" && last != "" {
			return first, last, true
		}
		return "", "", false
	}

	if parser == nil {
		return "", "", false
	}
	first, last, err := parser.Parse(value)
	if err != nil || first == "" || last == "" {
		return "", "", false
	}
	return first, last, true
}
