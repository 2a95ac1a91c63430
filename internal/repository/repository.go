// Package repository persists catalog items as hashes in the key-value
// store and provides the shared full-scan helper used by search and listing.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/boilerplate-hub/repo-catalog/internal/apperrors"
	"github.com/boilerplate-hub/repo-catalog/internal/observability"
	"github.com/boilerplate-hub/repo-catalog/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	defaultScanCount   = 100
	defaultScanWorkers = 4
)

// Options tunes how the repository scans the store
type Options struct {
	// ScanCount is the COUNT hint passed to each SCAN page
	ScanCount int64
	// ScanWorkers bounds concurrent per-item fetches; 1 fetches sequentially
	ScanWorkers int
}

// IndexStatus reports the outcome of EnsureIndex
type IndexStatus struct {
	Exists  bool `json:"indexExists"`
	Indexed int  `json:"indexed"`
}

// Repository stores and retrieves catalog items
type Repository struct {
	opener  store.Opener
	options Options
	logger  observability.Logger
}

// New creates a repository on top of a store opener
func New(opener store.Opener, options Options, logger observability.Logger) *Repository {
	if options.ScanCount <= 0 {
		options.ScanCount = defaultScanCount
	}
	if options.ScanWorkers <= 0 {
		options.ScanWorkers = defaultScanWorkers
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Repository{
		opener:  opener,
		options: options,
		logger:  logger.WithPrefix("repository"),
	}
}

func storageError(op string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.StorageUnavailable(op, err)
}

func (r *Repository) open(ctx context.Context, op string) (store.Store, error) {
	s, err := r.opener.Open(ctx)
	if err != nil {
		return nil, storageError(op, err)
	}
	return s, nil
}

func (r *Repository) closeStore(s store.Store) {
	if err := s.Close(); err != nil {
		r.logger.Warn("Failed to close store connection", map[string]interface{}{"error": err.Error()})
	}
}

// Create writes the item hash and its index set memberships in one transaction
func (r *Repository) Create(ctx context.Context, item *Item) error {
	const op = "repository.Create"

	fields, err := item.Fields()
	if err != nil {
		return apperrors.New(apperrors.ErrorTypeInternal, op, "item is incomplete", err)
	}

	s, err := r.open(ctx, op)
	if err != nil {
		return err
	}
	defer r.closeStore(s)

	if err := s.PutHash(ctx, item.ID, fields, DescriptionIndexSet, RepositoryIndexSet); err != nil {
		return storageError(op, err)
	}

	r.logger.Info("Stored item", map[string]interface{}{
		"id":         item.ID,
		"repository": item.RepositoryName,
		"url":        item.URL,
	})
	return nil
}

// Get returns the item stored under id
func (r *Repository) Get(ctx context.Context, id string) (ItemView, error) {
	const op = "repository.Get"

	if !strings.HasPrefix(id, KeyPrefix) {
		return ItemView{}, apperrors.NotFound(op, fmt.Sprintf("Item with ID '%s' not found.", id))
	}

	s, err := r.open(ctx, op)
	if err != nil {
		return ItemView{}, err
	}
	defer r.closeStore(s)

	fields, err := s.GetHash(ctx, id)
	if err != nil {
		return ItemView{}, storageError(op, err)
	}
	if len(fields) == 0 {
		return ItemView{}, apperrors.NotFound(op, fmt.Sprintf("Item with ID '%s' not found.", id))
	}

	return Record(fields).View(id), nil
}

// Delete removes the item and returns its last state. Index set cleanup is
// best effort and only logged on failure.
func (r *Repository) Delete(ctx context.Context, id string) (ItemView, error) {
	const op = "repository.Delete"

	if !strings.HasPrefix(id, KeyPrefix) {
		return ItemView{}, apperrors.NotFound(op, fmt.Sprintf("Item with ID '%s' not found", id))
	}

	s, err := r.open(ctx, op)
	if err != nil {
		return ItemView{}, err
	}
	defer r.closeStore(s)

	fields, err := s.GetHash(ctx, id)
	if err != nil {
		return ItemView{}, storageError(op, err)
	}
	if len(fields) == 0 {
		return ItemView{}, apperrors.NotFound(op, fmt.Sprintf("Item with ID '%s' not found", id))
	}

	existed, err := s.Delete(ctx, id)
	if err != nil {
		return ItemView{}, storageError(op, err)
	}
	if !existed {
		return ItemView{}, apperrors.NotFound(op, fmt.Sprintf("Item with ID '%s' not found", id))
	}

	if err := s.RemoveFromSets(ctx, id, DescriptionIndexSet, RepositoryIndexSet); err != nil {
		r.logger.Warn("Failed to remove item from search index sets", map[string]interface{}{
			"id":    id,
			"error": err.Error(),
		})
	}

	view := Record(fields).View(id)
	r.logger.Info("Deleted item", map[string]interface{}{
		"id":         id,
		"repository": view.RepositoryName,
	})
	return view, nil
}

// ListAllKeys returns every key matching pattern, each exactly once
func (r *Repository) ListAllKeys(ctx context.Context, pattern string) ([]string, error) {
	const op = "repository.ListAllKeys"

	s, err := r.open(ctx, op)
	if err != nil {
		return nil, err
	}
	defer r.closeStore(s)

	return r.scanKeys(ctx, s, pattern)
}

func (r *Repository) scanKeys(ctx context.Context, s store.Store, pattern string) (keys []string, err error) {
	ctx, span := observability.StartSpan(ctx, "repository.scanKeys", attribute.String("pattern", pattern))
	defer func() {
		span.SetAttributes(observability.ScanKeysAttributeKey.Int(len(keys)))
		observability.EndSpan(span, err)
	}()

	seen := make(map[string]struct{})
	var cursor uint64
	for {
		page, next, scanErr := s.ScanPage(ctx, cursor, pattern, r.options.ScanCount)
		if scanErr != nil {
			return nil, storageError("repository.ListAllKeys", scanErr)
		}
		for _, key := range page {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	return keys, nil
}

// Collect scans every item, keeps the projections for which project
// reports true, sorts them stably with less and truncates to limit.
// A non-positive limit keeps everything. Items deleted mid-scan and keys
// that cannot be read as an item are skipped; only a failed connection,
// SCAN or cancelled context aborts. project may be called from several
// goroutines at once.
func Collect[T any](
	ctx context.Context,
	r *Repository,
	project func(key string, record Record) (T, bool),
	less func(a, b T) bool,
	limit int,
) ([]T, error) {
	const op = "repository.Collect"

	s, err := r.open(ctx, op)
	if err != nil {
		return nil, err
	}
	defer r.closeStore(s)

	keys, err := r.scanKeys(ctx, s, KeyPattern)
	if err != nil {
		return nil, err
	}

	values := make([]T, len(keys))
	kept := make([]bool, len(keys))

	fetch := func(ctx context.Context, i int) error {
		fields, err := s.GetHash(ctx, keys[i])
		if err != nil {
			if ctx.Err() != nil {
				return storageError(op, ctx.Err())
			}
			r.logger.Warn("Skipping unreadable item", map[string]interface{}{
				"key":   keys[i],
				"error": err.Error(),
			})
			return nil
		}
		if len(fields) == 0 {
			return nil
		}
		values[i], kept[i] = project(keys[i], Record(fields))
		return nil
	}

	if r.options.ScanWorkers <= 1 {
		for i := range keys {
			if err := fetch(ctx, i); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.options.ScanWorkers)
		for i := range keys {
			g.Go(func() error {
				return fetch(gctx, i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	results := make([]T, 0, len(keys))
	for i := range values {
		if kept[i] {
			results = append(results, values[i])
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return less(results[i], results[j])
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// EnsureIndex bootstraps the auxiliary index sets. When the marker key is
// present nothing is written; otherwise every stored item is added to both
// sets and the marker is set.
func (r *Repository) EnsureIndex(ctx context.Context) (IndexStatus, error) {
	const op = "repository.EnsureIndex"

	s, err := r.open(ctx, op)
	if err != nil {
		return IndexStatus{}, err
	}
	defer r.closeStore(s)

	exists, err := s.Exists(ctx, IndexMarkerKey)
	if err != nil {
		return IndexStatus{}, storageError(op, err)
	}
	if exists {
		return IndexStatus{Exists: true}, nil
	}

	keys, err := r.scanKeys(ctx, s, KeyPattern)
	if err != nil {
		return IndexStatus{}, err
	}
	for _, key := range keys {
		if err := s.AddToSets(ctx, key, DescriptionIndexSet, RepositoryIndexSet); err != nil {
			return IndexStatus{}, storageError(op, err)
		}
	}

	if err := s.SetString(ctx, IndexMarkerKey, FormatTimestamp(nowFunc())); err != nil {
		return IndexStatus{}, storageError(op, err)
	}

	r.logger.Info("Initialized search index sets", map[string]interface{}{"indexed": len(keys)})
	return IndexStatus{Exists: false, Indexed: len(keys)}, nil
}
