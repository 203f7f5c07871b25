package search

import (
	"context"

	cmerrors "github.com/Aman-CERP/custmatch/internal/errors"
	"github.com/Aman-CERP/custmatch/internal/store"
)

// StructuredNameStrategy matches "<company> (<last>, <first>)" queries with
// case-insensitive equality on all three components simultaneously. The
// shape implies the caller is replaying an exact remembered value, so there
// is no substring or fuzzy fallback.
type StructuredNameStrategy struct {
	store store.RecordStore
	query StructuredNameQuery
}

// Ensure StructuredNameStrategy implements Strategy interface.
var _ Strategy = (*StructuredNameStrategy)(nil)

// NewStructuredNameStrategy creates the strategy for one classified
// structured-name query.
func NewStructuredNameStrategy(rs store.RecordStore, sq StructuredNameQuery) *StructuredNameStrategy {
	return &StructuredNameStrategy{store: rs, query: sq}
}

// Name implements Strategy.
func (s *StructuredNameStrategy) Name() string { return "structured_name" }

// Match implements Strategy.
func (s *StructuredNameStrategy) Match(ctx context.Context, q MatchQuery) (*StrategyResult, error) {
	ids, err := s.store.FindStructured(ctx, s.query.Company, s.query.Last, s.query.First, q.Qualifier)
	if err != nil {
		return nil, cmerrors.StoreError("structured name lookup failed", err)
	}

	result := newResultSet()
	result.add(ids...)
	return &StrategyResult{Strategy: s.Name(), Records: result.ids}, nil
}
