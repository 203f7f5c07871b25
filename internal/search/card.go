package search

import (
	"context"

	cmerrors "github.com/Aman-CERP/custmatch/internal/errors"
	"github.com/Aman-CERP/custmatch/internal/store"
)

// CardStrategy matches a payment-card query against stored card-family
// payment methods, either by literal pattern against the raw identifier or
// by equality against the precomputed mask column.
type CardStrategy struct {
	store store.RecordStore
	query CardQuery
}

// Ensure CardStrategy implements Strategy interface.
var _ Strategy = (*CardStrategy)(nil)

// NewCardStrategy creates the strategy for one classified card query.
func NewCardStrategy(rs store.RecordStore, cq CardQuery) *CardStrategy {
	return &CardStrategy{store: rs, query: cq}
}

// Name implements Strategy.
func (s *CardStrategy) Name() string { return "card" }

// Match implements Strategy. The folded wildcard marker becomes the SQL
// single-character wildcard for the raw match; the mask comparison applies
// the caller's standard masking to the folded string. Either match counts.
func (s *CardStrategy) Match(ctx context.Context, q MatchQuery) (*StrategyResult, error) {
	pattern := cardLikePattern(s.query.Folded)
	mask := maskCard(s.query.Folded)

	ids, err := s.store.FindCard(ctx, pattern, mask, q.Qualifier)
	if err != nil {
		return nil, cmerrors.StoreError("card lookup failed", err)
	}

	result := newResultSet()
	result.add(ids...)
	return &StrategyResult{Strategy: s.Name(), Records: result.ids}, nil
}
