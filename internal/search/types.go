// Package search resolves a free-text or structured query into a set of
// candidate customer records.
//
// A query is classified into one or more applicable shapes (phone, email,
// identifier, structured name, free text, payment card); each shape's
// strategy runs its exact -> substring -> approximate cascade independently,
// and the engine unions the results with first-seen deduplication.
package search

import (
	"context"

	"github.com/Aman-CERP/custmatch/internal/config"
	"github.com/Aman-CERP/custmatch/internal/store"
)

// MatchQuery is one normalized search request.
// Each query is an independent, synchronous, stateless operation; the only
// shared state strategies touch is the record store and the fuzzy corpus.
type MatchQuery struct {
	// Raw is the query as typed by the caller.
	Raw string

	// Qualifier is the opaque tenant/agent scoping predicate ANDed into
	// every store lookup. Nil means unqualified.
	Qualifier store.Qualifier

	// SuppressFuzzyOnExactHit skips the substring and fuzzy tiers of the
	// free-text cascade when the exact tier already produced a hit.
	SuppressFuzzyOnExactHit bool

	// Privileged lowers the substring tier's minimum query length from 4
	// to 3 for elevated-privilege callers.
	Privileged bool
}

// StrategyResult is one strategy's output: distinct record references in
// first-seen order.
type StrategyResult struct {
	Strategy string
	Records  []store.RecordID
}

// Strategy is one self-contained matching algorithm tied to a recognized
// query shape. Implementations only read RecordStore and FuzzyIndex, so
// strategies are safe to run concurrently.
type Strategy interface {
	Name() string
	Match(ctx context.Context, q MatchQuery) (*StrategyResult, error)
}

// NameParser splits a free-text value into (first, last) name components.
// It may fail; the free-text cascade then treats the value as unparseable
// and matches it against single fields only.
type NameParser interface {
	Parse(value string) (first, last string, err error)
}

// FuzzyFields lists the fields the approximate-match corpus indexes under
// the given configuration. Address lines are indexed only when address
// search is enabled.
func FuzzyFields(cfg *config.Config) []store.Field {
	fields := []store.Field{
		{Table: store.TableCustomer, Column: store.ColFirst},
		{Table: store.TableCustomer, Column: store.ColLast},
		{Table: store.TableCustomer, Column: store.ColCompany},
		{Table: store.TableCustomer, Column: store.ColAltCompany},
		{Table: store.TableContact, Column: store.ColFirst},
		{Table: store.TableContact, Column: store.ColLast},
	}
	if cfg.Search.AddressSearch {
		fields = append(fields, store.Field{Table: store.TableLocation, Column: store.ColAddress1})
	}
	return fields
}

// resultSet accumulates distinct record IDs in first-seen order.
type resultSet struct {
	seen map[store.RecordID]bool
	ids  []store.RecordID
}

func newResultSet() *resultSet {
	return &resultSet{seen: make(map[store.RecordID]bool)}
}

func (r *resultSet) add(ids ...store.RecordID) {
	for _, id := range ids {
		if !r.seen[id] {
			r.seen[id] = true
			r.ids = append(r.ids, id)
		}
	}
}

func (r *resultSet) empty() bool {
	return len(r.ids) == 0
}
