package search

import (
	"context"

	cmerrors "github.com/Aman-CERP/custmatch/internal/errors"
	"github.com/Aman-CERP/custmatch/internal/store"
)

// phoneFields are the stored phone columns the exact pass matches against.
var phoneFields = []string{
	store.ColDayPhone,
	store.ColNightPhone,
	store.ColMobilePhone,
	store.ColFaxPhone,
}

// PhoneStrategy matches phone-shaped queries against the stored phone
// columns of a record.
type PhoneStrategy struct {
	store store.RecordStore
	query PhoneQuery
}

// Ensure PhoneStrategy implements Strategy interface.
var _ Strategy = (*PhoneStrategy)(nil)

// NewPhoneStrategy creates the strategy for one classified phone query.
func NewPhoneStrategy(rs store.RecordStore, pq PhoneQuery) *PhoneStrategy {
	return &PhoneStrategy{store: rs, query: pq}
}

// Name implements Strategy.
func (s *PhoneStrategy) Name() string { return "phone" }

// Match runs the exact pass against every stored phone column plus the
// digits-only column. When nothing hit and no extension was typed, a prefix
// pass against day/night numbers catches entries stored with an extension
// the caller didn't supply.
func (s *PhoneStrategy) Match(ctx context.Context, q MatchQuery) (*StrategyResult, error) {
	result := newResultSet()

	for _, column := range phoneFields {
		field := store.Field{Table: store.TableCustomer, Column: column}
		ids, err := s.store.FindExact(ctx, field, s.query.Full(), q.Qualifier)
		if err != nil {
			return nil, cmerrors.StoreError("phone lookup failed on "+field.String(), err)
		}
		result.add(ids...)
	}

	// The digits column stores the bare 10-digit number; a query carrying
	// an extension can never equal it, so the lookup is skipped.
	if s.query.Extension == "" {
		digitsField := store.Field{Table: store.TableCustomer, Column: store.ColPhoneDigits}
		ids, err := s.store.FindExact(ctx, digitsField, s.query.Digits(), q.Qualifier)
		if err != nil {
			return nil, cmerrors.StoreError("phone lookup failed on "+digitsField.String(), err)
		}
		result.add(ids...)
	}

	if result.empty() && s.query.Extension == "" {
		for _, column := range []string{store.ColDayPhone, store.ColNightPhone} {
			field := store.Field{Table: store.TableCustomer, Column: column}
			ids, err := s.store.FindPrefix(ctx, field, s.query.Canonical(), q.Qualifier)
			if err != nil {
				return nil, cmerrors.StoreError("phone prefix lookup failed on "+field.String(), err)
			}
			result.add(ids...)
		}
	}

	return &StrategyResult{Strategy: s.Name(), Records: result.ids}, nil
}
