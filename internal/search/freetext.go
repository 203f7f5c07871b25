package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/custmatch/internal/config"
	cmerrors "github.com/Aman-CERP/custmatch/internal/errors"
	"github.com/Aman-CERP/custmatch/internal/fuzzy"
	"github.com/Aman-CERP/custmatch/internal/store"
)

// FreeTextStrategy is the fallback cascade: exact, then substring, then
// fuzzy, each tier widening the net. The substring and fuzzy tiers run
// regardless of the exact tier's outcome unless the caller requested
// suppression on an exact hit or fuzzy matching is globally disabled;
// duplicates across tiers collapse in the result set.
type FreeTextStrategy struct {
	store  store.RecordStore
	index  *fuzzy.Index
	cfg    *config.Config
	parser NameParser
	logger *slog.Logger
	query  FreeTextQuery
}

// Ensure FreeTextStrategy implements Strategy interface.
var _ Strategy = (*FreeTextStrategy)(nil)

// NewFreeTextStrategy creates the strategy for one classified free-text
// query.
func NewFreeTextStrategy(rs store.RecordStore, index *fuzzy.Index, cfg *config.Config, parser NameParser, logger *slog.Logger, fq FreeTextQuery) *FreeTextStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &FreeTextStrategy{store: rs, index: index, cfg: cfg, parser: parser, logger: logger, query: fq}
}

// Name implements Strategy.
func (s *FreeTextStrategy) Name() string { return "free_text" }

// Match implements Strategy.
func (s *FreeTextStrategy) Match(ctx context.Context, q MatchQuery) (*StrategyResult, error) {
	value := strings.ToLower(strings.TrimSpace(s.query.Value))
	first, last, hasName := splitName(value, s.parser)

	result := newResultSet()

	if err := s.exactTier(ctx, q, value, first, last, hasName, result); err != nil {
		return nil, err
	}
	if q.SuppressFuzzyOnExactHit && !result.empty() {
		return &StrategyResult{Strategy: s.Name(), Records: result.ids}, nil
	}

	if err := s.substringTier(ctx, q, value, first, last, hasName, result); err != nil {
		return nil, err
	}

	s.fuzzyTier(ctx, q, value, first, last, hasName, result)

	return &StrategyResult{Strategy: s.Name(), Records: result.ids}, nil
}

// singleFields are the fields the whole input value is matched against when
// it could not be split into a name pair. They coincide with the fuzzy
// corpus fields.
func (s *FreeTextStrategy) singleFields() []store.Field {
	return FuzzyFields(s.cfg)
}

// exactTier matches the parsed (first, last) pair on customer and contact
// rows, and independently matches the whole value against every single
// field.
func (s *FreeTextStrategy) exactTier(ctx context.Context, q MatchQuery, value, first, last string, hasName bool, result *resultSet) error {
	if hasName {
		for _, table := range []string{store.TableCustomer, store.TableContact} {
			ids, err := s.store.FindNamePair(ctx, table, first, last, false, q.Qualifier)
			if err != nil {
				return cmerrors.StoreError("exact name lookup failed on "+table, err)
			}
			result.add(ids...)
		}
	}

	for _, field := range s.singleFields() {
		ids, err := s.store.FindExact(ctx, field, value, q.Qualifier)
		if err != nil {
			return cmerrors.StoreError("exact lookup failed on "+field.String(), err)
		}
		result.add(ids...)
	}
	return nil
}

// substringTier runs case-insensitive contains matches. It only applies to
// input long enough for the caller's tier: common short strings would
// explode the result set.
func (s *FreeTextStrategy) substringTier(ctx context.Context, q MatchQuery, value, first, last string, hasName bool, result *resultSet) error {
	minLen := s.cfg.Search.SubstringMin
	if q.Privileged {
		minLen = s.cfg.Search.PrivilegedSubstringMin
	}
	if len(value) < minLen {
		return nil
	}

	for _, column := range []string{store.ColCompany, store.ColAltCompany} {
		field := store.Field{Table: store.TableCustomer, Column: column}
		ids, err := s.store.FindSubstring(ctx, field, value, q.Qualifier)
		if err != nil {
			return cmerrors.StoreError("substring lookup failed on "+field.String(), err)
		}
		result.add(ids...)
	}

	if hasName {
		for _, table := range []string{store.TableCustomer, store.TableContact} {
			ids, err := s.store.FindNamePair(ctx, table, first, last, true, q.Qualifier)
			if err != nil {
				return cmerrors.StoreError("substring name lookup failed on "+table, err)
			}
			result.add(ids...)
		}
	} else {
		for _, field := range []store.Field{
			{Table: store.TableCustomer, Column: store.ColFirst},
			{Table: store.TableCustomer, Column: store.ColLast},
			{Table: store.TableContact, Column: store.ColFirst},
			{Table: store.TableContact, Column: store.ColLast},
		} {
			ids, err := s.store.FindSubstring(ctx, field, value, q.Qualifier)
			if err != nil {
				return cmerrors.StoreError("substring lookup failed on "+field.String(), err)
			}
			result.add(ids...)
		}
	}

	if s.cfg.Search.AddressSearch {
		field := store.Field{Table: store.TableLocation, Column: store.ColAddress1}
		ids, err := s.store.FindSubstring(ctx, field, value, q.Qualifier)
		if err != nil {
			return cmerrors.StoreError("substring lookup failed on "+field.String(), err)
		}
		result.add(ids...)
	}
	return nil
}

// fuzzyTier delegates to the approximate-match corpus. An unavailable index
// degrades the query to exact+substring results instead of failing it, so
// this tier reports problems through the log rather than the error return.
func (s *FreeTextStrategy) fuzzyTier(ctx context.Context, q MatchQuery, value, first, last string, hasName bool, result *resultSet) {
	if s.cfg.Fuzzy.Disabled || s.index == nil {
		return
	}

	if err := s.index.EnsureFresh(ctx); err != nil {
		s.logger.Warn("fuzzy_tier_degraded",
			slog.String("query", value),
			slog.String("error", err.Error()))
		return
	}

	// The corpus carries no tenant scoping, so qualified queries verify
	// each candidate against the store before accepting it.
	accept := func(ids []store.RecordID) {
		if q.Qualifier == nil {
			result.add(ids...)
			return
		}
		for _, id := range ids {
			verified, err := s.store.FindIdentifier(ctx, int64(id), q.Qualifier)
			if err != nil {
				s.logger.Warn("fuzzy_qualify_failed",
					slog.Int64("record", int64(id)),
					slog.String("error", err.Error()))
				continue
			}
			result.add(verified...)
		}
	}

	lookup := func(f store.Field, needle string) {
		ids, err := s.index.Lookup(ctx, f, needle)
		if err != nil {
			s.logger.Warn("fuzzy_lookup_failed",
				slog.String("field", f.String()),
				slog.String("error", err.Error()))
			return
		}
		accept(ids)
	}

	if hasName {
		// First and last must both match within tolerance: AND semantics
		// across the pair, on customer rows and on contact rows.
		for _, table := range []string{store.TableCustomer, store.TableContact} {
			ids, err := s.index.MatchAll(ctx, []fuzzy.FieldQuery{
				{Field: store.Field{Table: table, Column: store.ColFirst}, Query: first},
				{Field: store.Field{Table: table, Column: store.ColLast}, Query: last},
			})
			if err != nil {
				s.logger.Warn("fuzzy_lookup_failed",
					slog.String("table", table),
					slog.String("error", err.Error()))
				continue
			}
			accept(ids)
		}
	} else {
		for _, field := range s.singleFields() {
			if field.Table == store.TableLocation {
				continue // handled below
			}
			lookup(field, value)
		}
	}

	if s.cfg.Search.AddressSearch {
		lookup(store.Field{Table: store.TableLocation, Column: store.ColAddress1}, value)
	}
}
