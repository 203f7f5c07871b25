package search

import (
	"strings"
)

// digitsOnly strips every non-digit character.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

// cardMaskRunes are the characters callers use to redact card digits.
// Folding maps them all to the single wildcard marker 'x'.
const cardMaskRunes = "x*._"

// foldCard normalizes a candidate card query: whitespace and hyphens are
// removed, and every mask character folds to 'x'. Returns the folded string
// and whether it has the 15-16 character digit/wildcard card shape.
func foldCard(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '-':
			// separator, dropped
		case strings.ContainsRune(cardMaskRunes, r) || r == 'X':
			b.WriteByte('x')
		default:
			return "", false
		}
	}

	folded := b.String()
	if len(folded) < 15 || len(folded) > 16 {
		return "", false
	}
	return folded, true
}

// maskCard computes the standard masked representation of a card string:
// first six and last four characters kept, the middle replaced with 'x'.
func maskCard(s string) string {
	if len(s) < 11 {
		return s
	}
	return s[:6] + strings.Repeat("x", len(s)-10) + s[len(s)-4:]
}

// cardLikePattern translates the folded wildcard marker to the SQL
// single-character wildcard for a literal pattern match.
func cardLikePattern(folded string) string {
	return strings.ReplaceAll(folded, "x", "_")
}

// splitEmail splits on the last '@' into local part and domain.
func splitEmail(s string) (local, domain string, ok bool) {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return "", "", false
	}
	return strings.TrimSpace(s[:at]), strings.TrimSpace(s[at+1:]), true
}
