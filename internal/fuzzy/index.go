// Package fuzzy maintains the per-field approximate-match corpus.
//
// Each indexed field owns one durable newline-delimited blob under the index
// directory. Rebuilds write a shadow file and atomically replace the blob,
// so concurrent readers never observe a partial corpus; rebuild and append
// of the same field are mutually exclusive across processes via an advisory
// file lock.
package fuzzy

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/renameio"

	cmerrors "github.com/Aman-CERP/custmatch/internal/errors"
	"github.com/Aman-CERP/custmatch/internal/store"
)

// ValueSource feeds corpus rebuilds. store.RecordStore satisfies it.
type ValueSource interface {
	ScanField(ctx context.Context, field store.Field, fn func(owner store.RecordID, value string) error) error
}

// FieldQuery pairs one indexed field with the value to match against it.
type FieldQuery struct {
	Field store.Field
	Query string
}

// Stats describes one field's corpus for status reporting.
type Stats struct {
	Field   store.Field
	Exists  bool
	Entries int
}

// Index is the per-field fuzzy corpus manager.
type Index struct {
	dir       string
	fields    []store.Field
	source    ValueSource
	tolerance int
	logger    *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) {
		i.logger = logger
	}
}

// NewIndex creates an index over the configured fields.
// dir holds one blob per field; tolerance is the maximum edit distance for
// approximate matches.
func NewIndex(dir string, fields []store.Field, source ValueSource, tolerance int, opts ...Option) *Index {
	idx := &Index{
		dir:       dir,
		fields:    fields,
		source:    source,
		tolerance: tolerance,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Fields returns the configured indexed fields.
func (i *Index) Fields() []store.Field {
	return i.fields
}

// BlobPath returns the durable blob path for a field.
func (i *Index) BlobPath(f store.Field) string {
	return filepath.Join(i.dir, f.Table+"."+f.Column)
}

// Stale reports whether a field's corpus needs a rebuild.
// Absence of the blob is the staleness signal.
func (i *Index) Stale(f store.Field) bool {
	_, err := os.Stat(i.BlobPath(f))
	return os.IsNotExist(err)
}

// EnsureFresh rebuilds all configured fields if any corpus is missing.
// This is a blocking operation: fuzzy queries must not proceed against an
// absent corpus.
func (i *Index) EnsureFresh(ctx context.Context) error {
	for _, f := range i.fields {
		if i.Stale(f) {
			i.logger.Info("fuzzy_corpus_stale", slog.String("field", f.String()))
			return i.RebuildAll(ctx)
		}
	}
	return nil
}

// RebuildAll rebuilds every configured field.
func (i *Index) RebuildAll(ctx context.Context) error {
	for _, f := range i.fields {
		if err := i.Rebuild(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// Rebuild reads every non-empty value of the field from the store and
// atomically replaces the field's blob. Readers of the previous blob are
// not blocked; a concurrent rebuild or append of the same field fails fast
// with a lock-contention error.
func (i *Index) Rebuild(ctx context.Context, f store.Field) error {
	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return cmerrors.Wrap(cmerrors.ErrCodeIndexRebuild, err)
	}

	lock := NewFieldLock(i.BlobPath(f))
	acquired, err := lock.TryLock()
	if err != nil {
		return cmerrors.Wrap(cmerrors.ErrCodeIndexRebuild, err)
	}
	if !acquired {
		return cmerrors.LockError("rebuild: field " + f.String() + " is locked")
	}
	defer func() { _ = lock.Unlock() }()

	pending, err := renameio.TempFile(i.dir, i.BlobPath(f))
	if err != nil {
		return cmerrors.Wrap(cmerrors.ErrCodeIndexRebuild, err)
	}
	defer func() { _ = pending.Cleanup() }()

	w := bufio.NewWriter(pending)
	count := 0
	scanErr := i.source.ScanField(ctx, f, func(owner store.RecordID, value string) error {
		if _, err := w.WriteString(encodeEntry(Entry{Owner: owner, Value: value})); err != nil {
			return err
		}
		count++
		return nil
	})
	if scanErr != nil {
		return cmerrors.Wrap(cmerrors.ErrCodeIndexRebuild, scanErr)
	}
	if err := w.Flush(); err != nil {
		return cmerrors.Wrap(cmerrors.ErrCodeIndexRebuild, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return cmerrors.Wrap(cmerrors.ErrCodeIndexRebuild, err)
	}

	i.logger.Info("fuzzy_corpus_rebuilt",
		slog.String("field", f.String()),
		slog.Int("entries", count))
	return nil
}

// Append adds a single value to a field's corpus without a full rebuild.
// The record-mutation path invokes this when the store gains a new value.
// The in-place write is not atomic, so it takes the same per-field lock as
// Rebuild. If the blob does not exist yet the append is skipped: the next
// fuzzy query rebuilds the whole corpus anyway, and appending to a missing
// blob would make an incomplete corpus look fresh.
func (i *Index) Append(ctx context.Context, f store.Field, owner store.RecordID, value string) error {
	if value == "" {
		return nil
	}
	if i.Stale(f) {
		i.logger.Debug("fuzzy_append_skipped",
			slog.String("field", f.String()),
			slog.String("reason", "corpus missing"))
		return nil
	}

	lock := NewFieldLock(i.BlobPath(f))
	acquired, err := lock.TryLock()
	if err != nil {
		return cmerrors.Wrap(cmerrors.ErrCodeIndexLockHeld, err)
	}
	if !acquired {
		return cmerrors.LockError("append: field " + f.String() + " is locked")
	}
	defer func() { _ = lock.Unlock() }()

	blob, err := os.OpenFile(i.BlobPath(f), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return cmerrors.IndexError("append failed for field "+f.String(), err)
	}
	defer blob.Close()

	if _, err := blob.WriteString(encodeEntry(Entry{Owner: owner, Value: value})); err != nil {
		return cmerrors.IndexError("append failed for field "+f.String(), err)
	}

	i.logger.Debug("fuzzy_corpus_appended", slog.String("field", f.String()))
	return nil
}

// Lookup returns the distinct owners of corpus entries within edit-distance
// tolerance of query, case-insensitive, in first-seen corpus order.
func (i *Index) Lookup(ctx context.Context, f store.Field, query string) ([]store.RecordID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := readCorpus(i.BlobPath(f))
	if err != nil {
		return nil, cmerrors.IndexError("corpus unavailable for field "+f.String(), err).
			WithDetail("field", f.String())
	}

	needle := strings.ToLower(query)
	seen := make(map[store.RecordID]bool)
	var owners []store.RecordID
	for _, e := range entries {
		if seen[e.Owner] {
			continue
		}
		if levenshtein.ComputeDistance(needle, strings.ToLower(e.Value)) <= i.tolerance {
			seen[e.Owner] = true
			owners = append(owners, e.Owner)
		}
	}
	return owners, nil
}

// MatchAll runs one lookup per field query and keeps only owners that
// matched every field (AND semantics). Implemented by counting per-owner
// hits across the lookups; order follows the first query's results.
func (i *Index) MatchAll(ctx context.Context, queries []FieldQuery) ([]store.RecordID, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	hits := make(map[store.RecordID]int)
	var order []store.RecordID
	for n, fq := range queries {
		owners, err := i.Lookup(ctx, fq.Field, fq.Query)
		if err != nil {
			return nil, err
		}
		for _, owner := range owners {
			hits[owner]++
			if n == 0 {
				order = append(order, owner)
			}
		}
	}

	var matched []store.RecordID
	for _, owner := range order {
		if hits[owner] == len(queries) {
			matched = append(matched, owner)
		}
	}
	return matched, nil
}

// FieldStats reports corpus presence and entry count for one field.
func (i *Index) FieldStats(f store.Field) (Stats, error) {
	s := Stats{Field: f}
	if i.Stale(f) {
		return s, nil
	}
	entries, err := readCorpus(i.BlobPath(f))
	if err != nil {
		return s, cmerrors.IndexError("corpus unavailable for field "+f.String(), err)
	}
	s.Exists = true
	s.Entries = len(entries)
	return s, nil
}
