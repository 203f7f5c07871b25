package search

import (
	"context"

	cmerrors "github.com/Aman-CERP/custmatch/internal/errors"
	"github.com/Aman-CERP/custmatch/internal/store"
)

// EmailStrategy matches an email address against invoice destinations,
// contact emails, and service accounts (username plus mail-domain join).
type EmailStrategy struct {
	store store.RecordStore
	query EmailQuery
}

// Ensure EmailStrategy implements Strategy interface.
var _ Strategy = (*EmailStrategy)(nil)

// NewEmailStrategy creates the strategy for one classified email query.
func NewEmailStrategy(rs store.RecordStore, eq EmailQuery) *EmailStrategy {
	return &EmailStrategy{store: rs, query: eq}
}

// Name implements Strategy.
func (s *EmailStrategy) Name() string { return "email" }

// Match implements Strategy.
func (s *EmailStrategy) Match(ctx context.Context, q MatchQuery) (*StrategyResult, error) {
	result := newResultSet()

	for _, field := range []store.Field{
		{Table: store.TableInvoiceDest, Column: store.ColAddress},
		{Table: store.TableContact, Column: store.ColEmail},
	} {
		ids, err := s.store.FindExact(ctx, field, s.query.Address, q.Qualifier)
		if err != nil {
			return nil, cmerrors.StoreError("email lookup failed on "+field.String(), err)
		}
		result.add(ids...)
	}

	ids, err := s.store.FindAccountEmail(ctx, s.query.LocalPart, s.query.Domain, q.Qualifier)
	if err != nil {
		return nil, cmerrors.StoreError("account email lookup failed", err)
	}
	result.add(ids...)

	return &StrategyResult{Strategy: s.Name(), Records: result.ids}, nil
}
