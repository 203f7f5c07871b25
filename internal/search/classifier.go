package search

import (
	"regexp"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/custmatch/internal/config"
)

// maxIdentifier is the largest value the primary identifier column can
// hold. Digit strings above it never match by identifier.
const maxIdentifier = 2147483647

// defaultClassifierCacheSize bounds the LRU cache of classification results.
const defaultClassifierCacheSize = 1024

// Compiled patterns for query classification.
// Compiled at package init for performance.
var (
	// Phone shape, applied to the digits-only form: optional leading 1,
	// then area/exchange/subscriber and any trailing extension digits.
	phonePattern = regexp.MustCompile(`^1?(\d{3})(\d{3})(\d{4})(\d*)$`)

	// Identifier shapes.
	digitsPattern             = regexp.MustCompile(`^\d+$`)
	letterPrefixPattern       = regexp.MustCompile(`^[A-Za-z]+\d+$`)
	digitsHyphenLetterPattern = regexp.MustCompile(`^\d+(-[A-Za-z])?$`)

	// House-number shape for address-prefix search: digits with an
	// optional short alphanumeric suffix ("221", "221B", "1024a").
	houseNumberPattern = regexp.MustCompile(`^\d+[A-Za-z][A-Za-z0-9]{0,2}$`)

	// Structured name: "<company> (<last>, <first>)".
	structuredPattern = regexp.MustCompile(`^(.+?)\s*\(\s*([^(),]+?)\s*,\s*([^()]+?)\s*\)$`)
)

// PhoneQuery is a classified phone-shaped query.
type PhoneQuery struct {
	Area       string
	Exchange   string
	Subscriber string
	Extension  string
}

// Canonical returns the "AAA-EEE-SSSS" form without extension.
func (p PhoneQuery) Canonical() string {
	return p.Area + "-" + p.Exchange + "-" + p.Subscriber
}

// Full returns the canonical form plus " xEXT" when an extension was typed.
func (p PhoneQuery) Full() string {
	if p.Extension == "" {
		return p.Canonical()
	}
	return p.Canonical() + " x" + p.Extension
}

// Digits returns the bare 10-digit form.
func (p PhoneQuery) Digits() string {
	return p.Area + p.Exchange + p.Subscriber
}

// EmailQuery is a classified email-shaped query.
type EmailQuery struct {
	Address   string
	LocalPart string
	Domain    string
}

// IdentifierQuery is a classified identifier-shaped query.
type IdentifierQuery struct {
	// Value is the trimmed query.
	Value string
	// Stripped is the digit form after removing the configured special
	// prefix; empty when no special prefix applied.
	Stripped string
	// HouseNumber marks a digits-plus-suffix shape accepted only for
	// address-prefix search.
	HouseNumber bool
}

// StructuredNameQuery is a classified "<company> (<last>, <first>)" query.
type StructuredNameQuery struct {
	Company string
	Last    string
	First   string
}

// CardQuery is a classified payment-card-shaped query.
type CardQuery struct {
	// Folded is the 15-16 character digit/wildcard form.
	Folded string
}

// FreeTextQuery is the fallback cascade input.
type FreeTextQuery struct {
	Value string
}

// Classification is the non-exclusive set of shapes a query satisfies.
// A single query may select several strategies (an all-digit string is both
// an identifier and a phone number).
type Classification struct {
	Phone          *PhoneQuery
	Email          *EmailQuery
	Identifier     *IdentifierQuery
	StructuredName *StructuredNameQuery
	FreeText       *FreeTextQuery
	Card           *CardQuery
}

// Empty reports whether no shape matched; such queries are rejected with an
// empty result, not an error.
func (c Classification) Empty() bool {
	return c.Phone == nil && c.Email == nil && c.Identifier == nil &&
		c.StructuredName == nil && c.FreeText == nil && c.Card == nil
}

// Classifier normalizes raw input and determines which match strategies
// apply. Classification results are cached per raw query.
type Classifier struct {
	cfg   *config.Config
	cache *lru.Cache[string, Classification]
}

// NewClassifier creates a classifier for the given configuration.
func NewClassifier(cfg *config.Config) *Classifier {
	cache, _ := lru.New[string, Classification](defaultClassifierCacheSize)
	return &Classifier{cfg: cfg, cache: cache}
}

// Classify determines the applicable shapes for a raw query.
func (c *Classifier) Classify(raw string) Classification {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Classification{}
	}

	if cached, ok := c.cache.Get(value); ok {
		return cached
	}

	cls := Classification{
		Phone:          classifyPhone(value),
		Email:          classifyEmail(value),
		Identifier:     c.classifyIdentifier(value),
		StructuredName: classifyStructured(value),
		Card:           classifyCard(value),
	}

	// The structured shape implies the caller is replaying an exact
	// remembered value; it consumes the query exclusively, so the
	// free-text fallback stays off. Every other shape may run alongside
	// free text.
	if cls.StructuredName == nil {
		cls.FreeText = &FreeTextQuery{Value: value}
	}

	c.cache.Add(value, cls)
	return cls
}

func classifyPhone(value string) *PhoneQuery {
	m := phonePattern.FindStringSubmatch(digitsOnly(value))
	if m == nil {
		return nil
	}
	return &PhoneQuery{
		Area:       m[1],
		Exchange:   m[2],
		Subscriber: m[3],
		Extension:  m[4],
	}
}

func classifyEmail(value string) *EmailQuery {
	if !strings.Contains(value, "@") {
		return nil
	}
	local, domain, ok := splitEmail(value)
	if !ok {
		return nil
	}
	return &EmailQuery{Address: value, LocalPart: local, Domain: domain}
}

func (c *Classifier) classifyIdentifier(value string) *IdentifierQuery {
	// Configured special prefix, stripped before the digit test.
	if p := c.cfg.Identifier.SpecialPrefix; p != "" && len(value) > len(p) &&
		strings.EqualFold(value[:len(p)], p) && digitsPattern.MatchString(value[len(p):]) {
		return &IdentifierQuery{Value: value, Stripped: value[len(p):]}
	}

	switch c.cfg.Identifier.Format {
	case config.FormatLetterPrefix:
		if digitsPattern.MatchString(value) || letterPrefixPattern.MatchString(value) {
			return &IdentifierQuery{Value: value}
		}
	case config.FormatDigitsHyphenLetter:
		if digitsHyphenLetterPattern.MatchString(value) {
			return &IdentifierQuery{Value: value}
		}
	default: // config.FormatPlainDigits
		if digitsPattern.MatchString(value) {
			return &IdentifierQuery{Value: value}
		}
	}

	// Partition prefixes make letter-prefixed digit forms searchable
	// regardless of the identifier format.
	for prefix := range c.cfg.Identifier.PartitionPrefixes {
		if len(value) > len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) &&
			digitsPattern.MatchString(value[len(prefix):]) {
			return &IdentifierQuery{Value: value}
		}
	}

	// House numbers qualify only when address-prefix search is enabled.
	if c.cfg.Search.AddressSearch && houseNumberPattern.MatchString(value) {
		return &IdentifierQuery{Value: value, HouseNumber: true}
	}

	return nil
}

func classifyStructured(value string) *StructuredNameQuery {
	m := structuredPattern.FindStringSubmatch(value)
	if m == nil {
		return nil
	}
	return &StructuredNameQuery{Company: m[1], Last: m[2], First: m[3]}
}

func classifyCard(value string) *CardQuery {
	folded, ok := foldCard(value)
	if !ok {
		return nil
	}
	return &CardQuery{Folded: folded}
}

// parseIdentifier parses a digit span as an unsigned integer, rejecting
// values above the 32-bit signed maximum. Returns ok=false for oversized or
// non-numeric spans; such inputs never match by identifier.
func parseIdentifier(digits string) (int64, bool) {
	if !digitsPattern.MatchString(digits) {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || n > maxIdentifier {
		return 0, false
	}
	return int64(n), true
}
