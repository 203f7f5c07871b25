package search

import (
	"context"
	"strings"

	"github.com/Aman-CERP/custmatch/internal/config"
	cmerrors "github.com/Aman-CERP/custmatch/internal/errors"
	"github.com/Aman-CERP/custmatch/internal/store"
)

// IdentifierStrategy matches identifier-shaped queries against the primary
// identifier, per-partition prefixed identifiers, the external identifier
// text column, and (when enabled) location address prefixes.
type IdentifierStrategy struct {
	store store.RecordStore
	cfg   *config.Config
	query IdentifierQuery
}

// Ensure IdentifierStrategy implements Strategy interface.
var _ Strategy = (*IdentifierStrategy)(nil)

// NewIdentifierStrategy creates the strategy for one classified identifier
// query.
func NewIdentifierStrategy(rs store.RecordStore, cfg *config.Config, iq IdentifierQuery) *IdentifierStrategy {
	return &IdentifierStrategy{store: rs, cfg: cfg, query: iq}
}

// Name implements Strategy.
func (s *IdentifierStrategy) Name() string { return "identifier" }

// Match implements Strategy.
func (s *IdentifierStrategy) Match(ctx context.Context, q MatchQuery) (*StrategyResult, error) {
	result := newResultSet()
	value := s.query.Value

	// Primary identifier: the whole digit span, or the span left after
	// stripping the configured special prefix.
	span := value
	if s.query.Stripped != "" {
		span = s.query.Stripped
	}
	if n, ok := parseIdentifier(span); ok && !s.isSentinel(n) {
		ids, err := s.store.FindIdentifier(ctx, n, q.Qualifier)
		if err != nil {
			return nil, cmerrors.StoreError("identifier lookup failed", err)
		}
		result.add(ids...)
	}

	// Per-partition identifier prefixes: strip each matching prefix and
	// search the remainder scoped to that partition.
	for prefix, partition := range s.cfg.Identifier.PartitionPrefixes {
		if len(value) <= len(prefix) || !strings.EqualFold(value[:len(prefix)], prefix) {
			continue
		}
		n, ok := parseIdentifier(value[len(prefix):])
		if !ok || s.isSentinel(n) {
			continue
		}
		qual := store.And(q.Qualifier, store.AgentQualifier{AgentID: partition})
		ids, err := s.store.FindIdentifier(ctx, n, qual)
		if err != nil {
			return nil, cmerrors.StoreError("partition identifier lookup failed", err)
		}
		result.add(ids...)
	}

	// Secondary external identifier, matched as text.
	externalField := store.Field{Table: store.TableCustomer, Column: store.ColExternalID}
	ids, err := s.store.FindExact(ctx, externalField, value, q.Qualifier)
	if err != nil {
		return nil, cmerrors.StoreError("external identifier lookup failed", err)
	}
	result.add(ids...)

	// Address-prefix search for house-number shapes.
	if s.cfg.Search.AddressSearch && (s.query.HouseNumber || digitsPattern.MatchString(value)) {
		addrField := store.Field{Table: store.TableLocation, Column: store.ColAddress1}
		ids, err := s.store.FindPrefix(ctx, addrField, value, q.Qualifier)
		if err != nil {
			return nil, cmerrors.StoreError("address prefix lookup failed", err)
		}
		result.add(ids...)
	}

	return &StrategyResult{Strategy: s.Name(), Records: result.ids}, nil
}

// isSentinel reports whether n is the configured default-identifier
// placeholder; placeholder identifiers never match.
func (s *IdentifierStrategy) isSentinel(n int64) bool {
	return s.cfg.Identifier.SentinelEnabled && n == s.cfg.Identifier.Sentinel
}
