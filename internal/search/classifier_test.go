package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/custmatch/internal/config"
)

func newTestClassifier(t *testing.T, mutate func(*config.Config)) *Classifier {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())
	return NewClassifier(cfg)
}

func TestClassify_PhoneShapes(t *testing.T) {
	c := newTestClassifier(t, nil)

	for _, input := range []string{
		"5551234567",
		"555-123-4567",
		"555.123.4567",
		"(555) 123-4567",
		"1-555-123-4567",
	} {
		cls := c.Classify(input)
		require.NotNil(t, cls.Phone, "input %q", input)
		assert.Equal(t, "555-123-4567", cls.Phone.Canonical(), "input %q", input)
		assert.Equal(t, "5551234567", cls.Phone.Digits(), "input %q", input)
		assert.Empty(t, cls.Phone.Extension, "input %q", input)
	}
}

func TestClassify_PhoneExtension(t *testing.T) {
	c := newTestClassifier(t, nil)

	cls := c.Classify("(555) 123-4567 x99")
	require.NotNil(t, cls.Phone)
	assert.Equal(t, "99", cls.Phone.Extension)
	assert.Equal(t, "555-123-4567 x99", cls.Phone.Full())
}

func TestClassify_NonExclusive(t *testing.T) {
	c := newTestClassifier(t, nil)

	// A bare ten-digit string is a phone, an identifier, and free text
	// all at once.
	cls := c.Classify("5551234567")
	assert.NotNil(t, cls.Phone)
	assert.NotNil(t, cls.Identifier)
	assert.NotNil(t, cls.FreeText)

	// Short digit strings are identifiers but not phones.
	cls = c.Classify("42")
	assert.Nil(t, cls.Phone)
	require.NotNil(t, cls.Identifier)
	assert.Equal(t, "42", cls.Identifier.Value)
}

func TestClassify_Email(t *testing.T) {
	c := newTestClassifier(t, nil)

	cls := c.Classify("john@example.com")
	require.NotNil(t, cls.Email)
	assert.Equal(t, "john", cls.Email.LocalPart)
	assert.Equal(t, "example.com", cls.Email.Domain)
	assert.NotNil(t, cls.FreeText)

	assert.Nil(t, c.Classify("not an email").Email)
}

func TestClassify_IdentifierFormats(t *testing.T) {
	t.Run("plain digits rejects letter prefix", func(t *testing.T) {
		c := newTestClassifier(t, nil)
		assert.NotNil(t, c.Classify("12345").Identifier)
		assert.Nil(t, c.Classify("AB12345").Identifier)
	})

	t.Run("letter prefix accepts both", func(t *testing.T) {
		c := newTestClassifier(t, func(cfg *config.Config) {
			cfg.Identifier.Format = config.FormatLetterPrefix
		})
		assert.NotNil(t, c.Classify("12345").Identifier)
		assert.NotNil(t, c.Classify("AB12345").Identifier)
	})

	t.Run("digits hyphen letter", func(t *testing.T) {
		c := newTestClassifier(t, func(cfg *config.Config) {
			cfg.Identifier.Format = config.FormatDigitsHyphenLetter
		})
		assert.NotNil(t, c.Classify("12345-A").Identifier)
		assert.NotNil(t, c.Classify("12345").Identifier)
		assert.Nil(t, c.Classify("12345-AB").Identifier)
	})
}

func TestClassify_SpecialPrefix(t *testing.T) {
	c := newTestClassifier(t, func(cfg *config.Config) {
		cfg.Identifier.SpecialPrefix = "CM"
	})

	cls := c.Classify("CM12345")
	require.NotNil(t, cls.Identifier)
	assert.Equal(t, "12345", cls.Identifier.Stripped)

	// Prefix matching is case-insensitive.
	cls = c.Classify("cm12345")
	require.NotNil(t, cls.Identifier)
	assert.Equal(t, "12345", cls.Identifier.Stripped)
}

func TestClassify_PartitionPrefix(t *testing.T) {
	c := newTestClassifier(t, func(cfg *config.Config) {
		cfg.Identifier.PartitionPrefixes = map[string]int64{"W": 7}
	})

	cls := c.Classify("W12345")
	require.NotNil(t, cls.Identifier)
	assert.Empty(t, cls.Identifier.Stripped)
}

func TestClassify_HouseNumber(t *testing.T) {
	withAddr := newTestClassifier(t, func(cfg *config.Config) {
		cfg.Search.AddressSearch = true
	})
	cls := withAddr.Classify("221B")
	require.NotNil(t, cls.Identifier)
	assert.True(t, cls.Identifier.HouseNumber)

	withoutAddr := newTestClassifier(t, nil)
	assert.Nil(t, withoutAddr.Classify("221B").Identifier)
}

func TestClassify_StructuredNameIsExclusive(t *testing.T) {
	c := newTestClassifier(t, nil)

	cls := c.Classify("Acme Corp (Smith, John)")
	require.NotNil(t, cls.StructuredName)
	assert.Equal(t, "Acme Corp", cls.StructuredName.Company)
	assert.Equal(t, "Smith", cls.StructuredName.Last)
	assert.Equal(t, "John", cls.StructuredName.First)

	// The structured shape consumes the query; no free-text fallback.
	assert.Nil(t, cls.FreeText)
}

func TestClassify_Card(t *testing.T) {
	c := newTestClassifier(t, nil)

	cls := c.Classify("4111-11xx-xxxx-1111")
	require.NotNil(t, cls.Card)
	assert.Equal(t, "411111xxxxxx1111", cls.Card.Folded)

	// A full 16-digit PAN classifies as a card too.
	assert.NotNil(t, c.Classify("4111111111111111").Card)
}

func TestClassify_EmptyInput(t *testing.T) {
	c := newTestClassifier(t, nil)

	assert.True(t, c.Classify("").Empty())
	assert.True(t, c.Classify("   \t ").Empty())
	assert.False(t, c.Classify("anything").Empty())
}

func TestClassify_CacheReturnsSameResult(t *testing.T) {
	c := newTestClassifier(t, nil)

	first := c.Classify("John Smith")
	second := c.Classify("  John Smith  ")
	assert.Equal(t, first, second)
}

func TestParseIdentifier_Overflow(t *testing.T) {
	n, ok := parseIdentifier("2147483647")
	assert.True(t, ok)
	assert.Equal(t, int64(2147483647), n)

	_, ok = parseIdentifier("2147483648")
	assert.False(t, ok)

	_, ok = parseIdentifier("99999999999999999999")
	assert.False(t, ok)

	_, ok = parseIdentifier("12a4")
	assert.False(t, ok)
}
