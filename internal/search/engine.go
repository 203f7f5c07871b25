package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/custmatch/internal/config"
	"github.com/Aman-CERP/custmatch/internal/fuzzy"
	"github.com/Aman-CERP/custmatch/internal/store"
)

// Engine classifies a query, fans the applicable strategies out, and unions
// their results. One Engine is safe for concurrent use; every Search call is
// independent.
type Engine struct {
	cfg        *config.Config
	store      store.RecordStore
	index      *fuzzy.Index
	classifier *Classifier
	parser     NameParser
	logger     *slog.Logger
}

// EngineOption configures optional Engine collaborators.
type EngineOption func(*Engine)

// WithNameParser overrides the default token-based name parser.
func WithNameParser(p NameParser) EngineOption {
	return func(e *Engine) { e.parser = p }
}

// WithLogger sets the logger used for query telemetry and tier degradation
// warnings.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine over the given record store and fuzzy
// corpus. index may be nil when fuzzy matching is disabled in cfg.
func NewEngine(cfg *config.Config, rs store.RecordStore, index *fuzzy.Index, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:        cfg,
		store:      rs,
		index:      index,
		classifier: NewClassifier(cfg),
		parser:     TokenNameParser{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs every strategy applicable to the query's classified shapes
// and returns the union of their results, distinct, in strategy order with
// first-seen deduplication.
//
// Unclassifiable input (empty, whitespace, or no recognized shape) returns
// an empty result and no error. A failing strategy does not suppress its
// siblings: partial results are returned alongside the joined errors.
func (e *Engine) Search(ctx context.Context, q MatchQuery) ([]store.RecordID, error) {
	start := time.Now()

	raw := strings.TrimSpace(q.Raw)
	if raw == "" {
		return nil, nil
	}

	cls := e.classifier.Classify(raw)
	if cls.Empty() {
		e.logger.Debug("query_rejected", slog.String("query", raw))
		return nil, nil
	}

	strategies := e.buildStrategies(cls)

	results := make([]*StrategyResult, len(strategies))
	failures := make([]error, len(strategies))

	g, gctx := errgroup.WithContext(ctx)
	for i, st := range strategies {
		i, st := i, st
		g.Go(func() error {
			res, err := st.Match(gctx, q)
			if err != nil {
				// Isolate the failure; the remaining strategies keep
				// running and their results are still returned.
				failures[i] = err
				e.logger.Warn("strategy_failed",
					slog.String("strategy", st.Name()),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	merged := newResultSet()
	for _, res := range results {
		if res != nil {
			merged.add(res.Records...)
		}
	}

	e.logger.Debug("search_completed",
		slog.Int("strategies", len(strategies)),
		slog.Int("results", len(merged.ids)),
		slog.Duration("duration", time.Since(start)))

	return merged.ids, errors.Join(failures...)
}

// buildStrategies instantiates one strategy per classified shape, in the
// fixed precedence order phone, email, identifier, structured name, free
// text, card. The order decides which strategy "owns" a record that several
// strategies find.
func (e *Engine) buildStrategies(cls Classification) []Strategy {
	var strategies []Strategy
	if cls.Phone != nil {
		strategies = append(strategies, NewPhoneStrategy(e.store, *cls.Phone))
	}
	if cls.Email != nil {
		strategies = append(strategies, NewEmailStrategy(e.store, *cls.Email))
	}
	if cls.Identifier != nil {
		strategies = append(strategies, NewIdentifierStrategy(e.store, e.cfg, *cls.Identifier))
	}
	if cls.StructuredName != nil {
		strategies = append(strategies, NewStructuredNameStrategy(e.store, *cls.StructuredName))
	}
	if cls.FreeText != nil {
		strategies = append(strategies, NewFreeTextStrategy(e.store, e.index, e.cfg, e.parser, e.logger, *cls.FreeText))
	}
	if cls.Card != nil {
		strategies = append(strategies, NewCardStrategy(e.store, *cls.Card))
	}
	return strategies
}
