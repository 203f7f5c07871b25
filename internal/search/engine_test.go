package search

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/custmatch/internal/config"
	"github.com/Aman-CERP/custmatch/internal/fuzzy"
	"github.com/Aman-CERP/custmatch/internal/store"
)

// --- Test Helpers ---

type engineFixture struct {
	engine *Engine
	store  *store.SQLiteStore
	cfg    *config.Config
}

func newEngineFixture(t *testing.T, mutate func(*config.Config)) *engineFixture {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Fuzzy.Dir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	s, err := store.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	idx := fuzzy.NewIndex(cfg.Fuzzy.Dir, FuzzyFields(cfg), s, cfg.Fuzzy.Tolerance)
	return &engineFixture{
		engine: NewEngine(cfg, s, idx),
		store:  s,
		cfg:    cfg,
	}
}

func (f *engineFixture) addCustomer(t *testing.T, c store.Customer) store.RecordID {
	t.Helper()
	id, err := f.store.InsertCustomer(context.Background(), c)
	require.NoError(t, err)
	return id
}

func (f *engineFixture) search(t *testing.T, q MatchQuery) []store.RecordID {
	t.Helper()
	ids, err := f.engine.Search(context.Background(), q)
	require.NoError(t, err)
	return ids
}

// --- Phone ---

func TestEngineSearch_PhoneFormats(t *testing.T) {
	f := newEngineFixture(t, nil)
	id := f.addCustomer(t, store.Customer{First: "John", Last: "Smith", DayPhone: "555-123-4567"})
	f.addCustomer(t, store.Customer{First: "Jane", Last: "Doe", DayPhone: "555-999-0000"})

	for _, input := range []string{"555-123-4567", "(555) 123-4567", "555.123.4567", "5551234567"} {
		ids := f.search(t, MatchQuery{Raw: input})
		assert.Equal(t, []store.RecordID{id}, ids, "input %q", input)
	}
}

func TestEngineSearch_PhoneDigitsColumn(t *testing.T) {
	f := newEngineFixture(t, nil)
	id := f.addCustomer(t, store.Customer{First: "Ann", Last: "Lee", PhoneDigits: "5551234567"})

	ids := f.search(t, MatchQuery{Raw: "1-555-123-4567"})
	assert.Equal(t, []store.RecordID{id}, ids)
}

func TestEngineSearch_PhonePrefixFallback(t *testing.T) {
	f := newEngineFixture(t, nil)
	id := f.addCustomer(t, store.Customer{First: "Bob", Last: "Ray", DayPhone: "555-123-4567 x22"})

	// No exact hit for the bare number, so the prefix pass finds the
	// stored number with its extension.
	ids := f.search(t, MatchQuery{Raw: "5551234567"})
	assert.Equal(t, []store.RecordID{id}, ids)

	// An explicit extension must match exactly; a different stored
	// extension is not a hit.
	ids = f.search(t, MatchQuery{Raw: "555-123-4567 x99"})
	assert.Empty(t, ids)
}

// --- Email ---

func TestEngineSearch_Email(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	byContact := f.addCustomer(t, store.Customer{First: "John", Last: "Smith"})
	require.NoError(t, f.store.InsertContact(ctx, store.Contact{
		CustomerID: byContact, First: "John", Last: "Smith", Email: "john@example.com",
	}))

	byInvoice := f.addCustomer(t, store.Customer{Company: "Acme"})
	require.NoError(t, f.store.InsertInvoiceDest(ctx, byInvoice, "john@example.com"))

	byAccount := f.addCustomer(t, store.Customer{Company: "Globex"})
	require.NoError(t, f.store.InsertAccount(ctx, store.Account{
		CustomerID: byAccount, Username: "john", Domain: "example.com",
	}))

	ids := f.search(t, MatchQuery{Raw: "john@example.com"})
	assert.ElementsMatch(t, []store.RecordID{byContact, byInvoice, byAccount}, ids)
}

// --- Identifier ---

func TestEngineSearch_PrimaryIdentifier(t *testing.T) {
	f := newEngineFixture(t, nil)
	id := f.addCustomer(t, store.Customer{First: "John", Last: "Smith"})
	f.addCustomer(t, store.Customer{First: "Jane", Last: "Doe"})

	ids := f.search(t, MatchQuery{Raw: strconv.FormatInt(int64(id), 10)})
	assert.Equal(t, []store.RecordID{id}, ids)
}

func TestEngineSearch_IdentifierSentinelNeverMatches(t *testing.T) {
	f := newEngineFixture(t, func(cfg *config.Config) {
		cfg.Identifier.SentinelEnabled = true
		cfg.Identifier.Sentinel = 1
	})
	f.addCustomer(t, store.Customer{First: "Placeholder"})

	ids := f.search(t, MatchQuery{Raw: "1"})
	assert.Empty(t, ids)
}

func TestEngineSearch_IdentifierOverflowIgnored(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addCustomer(t, store.Customer{First: "John"})

	// Above the 32-bit maximum the digit span cannot be a primary
	// identifier; no error, just no identifier hit.
	ids := f.search(t, MatchQuery{Raw: "2147483648"})
	assert.Empty(t, ids)
}

func TestEngineSearch_ExternalIdentifier(t *testing.T) {
	f := newEngineFixture(t, func(cfg *config.Config) {
		cfg.Identifier.Format = config.FormatLetterPrefix
	})
	id := f.addCustomer(t, store.Customer{ExternalID: "AB1234"})

	ids := f.search(t, MatchQuery{Raw: "ab1234"})
	assert.Equal(t, []store.RecordID{id}, ids)
}

func TestEngineSearch_PartitionPrefix(t *testing.T) {
	f := newEngineFixture(t, func(cfg *config.Config) {
		cfg.Identifier.PartitionPrefixes = map[string]int64{"W": 7}
	})
	inPartition := f.addCustomer(t, store.Customer{AgentID: 7})
	f.addCustomer(t, store.Customer{AgentID: 8})

	ids := f.search(t, MatchQuery{Raw: "W" + strconv.FormatInt(int64(inPartition), 10)})
	assert.Equal(t, []store.RecordID{inPartition}, ids)

	// The same numeric span under the wrong partition finds nothing by
	// prefix; the record in partition 8 has a different id.
	ids = f.search(t, MatchQuery{Raw: "W99"})
	assert.Empty(t, ids)
}

// --- Structured name ---

func TestEngineSearch_StructuredNameExactOnly(t *testing.T) {
	f := newEngineFixture(t, nil)
	exact := f.addCustomer(t, store.Customer{Company: "Acme Corp", First: "John", Last: "Smith"})
	f.addCustomer(t, store.Customer{Company: "Acme Corp", First: "Johnny", Last: "Smith"})
	f.addCustomer(t, store.Customer{Company: "Acme", First: "John", Last: "Smith"})

	ids := f.search(t, MatchQuery{Raw: "Acme Corp (Smith, John)"})
	assert.Equal(t, []store.RecordID{exact}, ids)
}

// --- Card ---

func TestEngineSearch_CardByRawAndMask(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	byRaw := f.addCustomer(t, store.Customer{Company: "Acme"})
	require.NoError(t, f.store.InsertPayment(ctx, store.Payment{
		CustomerID: byRaw, Family: store.PaymentFamilyCard,
		RawInfo: "4111111111111111", Mask: "411111xxxxxx1111",
	}))

	byMask := f.addCustomer(t, store.Customer{Company: "Globex"})
	require.NoError(t, f.store.InsertPayment(ctx, store.Payment{
		CustomerID: byMask, Family: store.PaymentFamilyCard,
		RawInfo: "", Mask: "411111xxxxxx1111",
	}))

	notCard := f.addCustomer(t, store.Customer{Company: "Initech"})
	require.NoError(t, f.store.InsertPayment(ctx, store.Payment{
		CustomerID: notCard, Family: "check", RawInfo: "4111111111111111",
	}))

	// A redacted query hits the raw value through wildcards and the
	// masked value through equality; non-card payment families never
	// match.
	ids := f.search(t, MatchQuery{Raw: "4111-11xx-xxxx-1111"})
	assert.ElementsMatch(t, []store.RecordID{byRaw, byMask}, ids)
}

// --- Free text cascade ---

func TestEngineSearch_FreeTextExactName(t *testing.T) {
	f := newEngineFixture(t, nil)
	id := f.addCustomer(t, store.Customer{First: "John", Last: "Smith"})
	f.addCustomer(t, store.Customer{First: "Jane", Last: "Doe"})

	assert.Contains(t, f.search(t, MatchQuery{Raw: "John Smith"}), id)
	assert.Contains(t, f.search(t, MatchQuery{Raw: "Smith, John"}), id)
}

func TestEngineSearch_FreeTextSubstring(t *testing.T) {
	f := newEngineFixture(t, nil)
	id := f.addCustomer(t, store.Customer{Company: "Acme Plumbing Supply"})

	ids := f.search(t, MatchQuery{Raw: "plumbing"})
	assert.Equal(t, []store.RecordID{id}, ids)
}

func TestEngineSearch_SubstringMinimumLength(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addCustomer(t, store.Customer{Company: "Rao Brothers"})

	// Three characters is below the default minimum, so the substring
	// tier stays off and "rao" only matches exactly.
	ids := f.search(t, MatchQuery{Raw: "rao"})
	assert.Empty(t, ids)

	// Privileged callers get the lower minimum.
	ids = f.search(t, MatchQuery{Raw: "rao", Privileged: true})
	assert.Len(t, ids, 1)
}

func TestEngineSearch_FuzzyNamePair(t *testing.T) {
	f := newEngineFixture(t, nil)
	id := f.addCustomer(t, store.Customer{First: "John", Last: "Smith"})
	f.addCustomer(t, store.Customer{First: "Jane", Last: "Doe"})

	// Both components are misspelled within the edit-distance tolerance;
	// neither the exact nor the substring tier can hit, so this exercises
	// the AND across per-field fuzzy matches.
	ids := f.search(t, MatchQuery{Raw: "Jon Smth"})
	assert.Equal(t, []store.RecordID{id}, ids)
}

func TestEngineSearch_FuzzySingleField(t *testing.T) {
	f := newEngineFixture(t, nil)
	id := f.addCustomer(t, store.Customer{Company: "Consolidated"})

	ids := f.search(t, MatchQuery{Raw: "Consolidatd"})
	assert.Equal(t, []store.RecordID{id}, ids)
}

func TestEngineSearch_FuzzyDisabled(t *testing.T) {
	f := newEngineFixture(t, func(cfg *config.Config) {
		cfg.Fuzzy.Disabled = true
	})
	f.addCustomer(t, store.Customer{First: "John", Last: "Smith"})

	ids := f.search(t, MatchQuery{Raw: "Jon Smth"})
	assert.Empty(t, ids)
}

func TestEngineSearch_SuppressFuzzyOnExactHit(t *testing.T) {
	f := newEngineFixture(t, nil)
	exact := f.addCustomer(t, store.Customer{First: "John", Last: "Smith"})
	near := f.addCustomer(t, store.Customer{First: "Jon", Last: "Smith"})

	// Without suppression the fuzzy tier pulls in the near-miss record.
	ids := f.search(t, MatchQuery{Raw: "John Smith"})
	assert.ElementsMatch(t, []store.RecordID{exact, near}, ids)

	// With suppression an exact hit short-circuits the wider tiers.
	ids = f.search(t, MatchQuery{Raw: "John Smith", SuppressFuzzyOnExactHit: true})
	assert.Equal(t, []store.RecordID{exact}, ids)
}

func TestEngineSearch_AddressSearch(t *testing.T) {
	f := newEngineFixture(t, func(cfg *config.Config) {
		cfg.Search.AddressSearch = true
	})
	ctx := context.Background()
	id := f.addCustomer(t, store.Customer{First: "John", Last: "Smith"})
	require.NoError(t, f.store.InsertLocation(ctx, store.Location{CustomerID: id, Address1: "221B Baker Street"}))

	// House-number prefix search.
	assert.Equal(t, []store.RecordID{id}, f.search(t, MatchQuery{Raw: "221B"}))

	// Address substring through the free-text cascade.
	assert.Equal(t, []store.RecordID{id}, f.search(t, MatchQuery{Raw: "baker"}))
}

// --- Aggregation ---

func TestEngineSearch_DeduplicatesAcrossStrategies(t *testing.T) {
	f := newEngineFixture(t, nil)

	// The record's primary identifier and external identifier are the
	// same digit span, so both lookups of the identifier strategy find
	// the same record.
	id := f.addCustomer(t, store.Customer{ExternalID: "1", First: "John"})
	require.Equal(t, store.RecordID(1), id)

	ids := f.search(t, MatchQuery{Raw: "1"})
	assert.Equal(t, []store.RecordID{id}, ids)
}

func TestEngineSearch_EmptyAndUnclassifiable(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addCustomer(t, store.Customer{First: "John"})

	ids, err := f.engine.Search(context.Background(), MatchQuery{Raw: "   "})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestEngineSearch_QualifierScopesEveryStrategy(t *testing.T) {
	f := newEngineFixture(t, nil)
	mine := f.addCustomer(t, store.Customer{AgentID: 1, First: "John", Last: "Smith"})
	f.addCustomer(t, store.Customer{AgentID: 2, First: "John", Last: "Smith"})

	ids := f.search(t, MatchQuery{Raw: "John Smith", Qualifier: store.AgentQualifier{AgentID: 1}})
	assert.Equal(t, []store.RecordID{mine}, ids)
}

// failingStore wraps a working store and fails identifier lookups, proving
// one strategy's failure does not suppress its siblings.
type failingStore struct {
	store.RecordStore
}

func (f failingStore) FindIdentifier(ctx context.Context, id int64, qual store.Qualifier) ([]store.RecordID, error) {
	return nil, errors.New("identifier backend down")
}

func TestEngineSearch_StrategyFailureIsIsolated(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Fuzzy.Dir = t.TempDir()
	require.NoError(t, cfg.Validate())

	s, err := store.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	id, err := s.InsertCustomer(context.Background(), store.Customer{DayPhone: "212-555-1234"})
	require.NoError(t, err)

	wrapped := failingStore{RecordStore: s}
	idx := fuzzy.NewIndex(cfg.Fuzzy.Dir, FuzzyFields(cfg), wrapped, cfg.Fuzzy.Tolerance)
	engine := NewEngine(cfg, wrapped, idx)

	// "2125551234" selects phone, identifier, and free text; its digit
	// span stays under the identifier cap, so the identifier strategy
	// reaches the failing lookup. The phone strategy still delivers its
	// hit even though identifier fails.
	ids, searchErr := engine.Search(context.Background(), MatchQuery{Raw: "2125551234"})
	assert.Error(t, searchErr)
	assert.Contains(t, ids, id)
}
