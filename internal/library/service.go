package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dshills/pinup/internal/indexer"
	"github.com/dshills/pinup/internal/storage"
	"github.com/dshills/pinup/pkg/types"
)

// SearchCache is the search result cache a Service keeps consistent with
// its writes
type SearchCache interface {
	InvalidateCache()
	CacheLen() int
}

// Service coordinates storage writes with index maintenance
type Service struct {
	storage storage.Storage
	indexer *indexer.Indexer
	cache   SearchCache
	logger  *slog.Logger
}

// New creates a Service. cache may be nil when no search cache is in use.
func New(store storage.Storage, idx *indexer.Indexer, cache SearchCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		storage: store,
		indexer: idx,
		cache:   cache,
		logger:  logger,
	}
}

// withTx runs fn in a transaction and invalidates the search cache after a
// successful commit
func (s *Service) withTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.cache != nil {
		s.cache.InvalidateCache()
	}
	return nil
}

// withReadTx runs fn in a transaction that is always rolled back
func (s *Service) withReadTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(tx)
}

// Stats summarizes the library. Indexing is sampled before the counts are
// read, since a running rebuild holds the connection until it commits.
func (s *Service) Stats(ctx context.Context) (*types.Stats, error) {
	indexing := s.indexer.IsIndexing()
	stats, err := s.storage.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	stats.Indexing = indexing
	if s.cache != nil {
		stats.CachedSearches = s.cache.CacheLen()
	}
	return stats, nil
}

// ReindexSnippet refreshes the index entry of one snippet
func (s *Service) ReindexSnippet(ctx context.Context, id string) error {
	if err := s.indexer.ReindexSnippet(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.InvalidateCache()
	}
	return nil
}

// Reindex rebuilds the whole search index
func (s *Service) Reindex(ctx context.Context) (*indexer.Statistics, error) {
	stats, err := s.indexer.ReindexAll(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.InvalidateCache()
	}
	return stats, nil
}
