package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/pinup/internal/storage"
)

// ErrIndexingInProgress is returned when a full rebuild is requested while
// another one is still running.
var ErrIndexingInProgress = errors.New("indexing already in progress")

const defaultBatchSize = 200

// Indexer keeps the full-text index in step with snippet state
type Indexer struct {
	storage   storage.Storage
	lock      IndexLock
	batchSize int
	logger    *slog.Logger
}

// Config contains configuration for the indexer
type Config struct {
	BatchSize int          // Snippets read per batch during a rebuild (default: 200)
	Logger    *slog.Logger // Defaults to slog.Default()
}

// Statistics describes a completed rebuild
type Statistics struct {
	EntriesCleared  int
	SnippetsIndexed int
	Batches         int
	Duration        time.Duration
}

// New creates a new Indexer instance
func New(store storage.Storage, config *Config) *Indexer {
	idx := &Indexer{
		storage:   store,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	if config != nil {
		if config.BatchSize > 0 {
			idx.batchSize = config.BatchSize
		}
		if config.Logger != nil {
			idx.logger = config.Logger
		}
	}
	return idx
}

// IsIndexing reports whether a full rebuild is running
func (idx *Indexer) IsIndexing() bool {
	return idx.lock.Held()
}

// ReindexSnippet rebuilds the index entry of one snippet in its own transaction
func (idx *Indexer) ReindexSnippet(ctx context.Context, snippetID string) error {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := idx.ReindexSnippetWith(ctx, tx, snippetID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReindexSnippetWith replaces the index entry of one snippet using store,
// normally the transaction that carried the snippet mutation. A snippet that
// no longer exists has its entry removed.
func (idx *Indexer) ReindexSnippetWith(ctx context.Context, store storage.Storage, snippetID string) error {
	doc, err := store.GetIndexDocument(ctx, snippetID)
	if errors.Is(err, storage.ErrNotFound) {
		return idx.RemoveSnippetWith(ctx, store, snippetID)
	}
	if err != nil {
		return err
	}
	if err := store.ReplaceIndexEntry(ctx, doc); err != nil {
		return fmt.Errorf("failed to index snippet %s: %w", snippetID, err)
	}
	return nil
}

// ReindexSnippetsWith reindexes each snippet in ids using store
func (idx *Indexer) ReindexSnippetsWith(ctx context.Context, store storage.Storage, snippetIDs []string) error {
	for _, id := range snippetIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := idx.ReindexSnippetWith(ctx, store, id); err != nil {
			return err
		}
	}
	return nil
}

// RemoveSnippetWith drops the index entry of a snippet
func (idx *Indexer) RemoveSnippetWith(ctx context.Context, store storage.Storage, snippetID string) error {
	if err := store.DeleteIndexEntry(ctx, snippetID); err != nil {
		return fmt.Errorf("failed to remove index entry %s: %w", snippetID, err)
	}
	return nil
}

// ReindexTag reindexes every snippet carrying the tag. Used after a rename,
// since tag names are denormalized into each entry.
func (idx *Indexer) ReindexTag(ctx context.Context, store storage.Storage, tagID string) error {
	ids, err := store.SnippetIDsForTag(ctx, tagID)
	if err != nil {
		return err
	}
	return idx.ReindexSnippetsWith(ctx, store, ids)
}

// ReindexCollection reindexes every snippet in the collection
func (idx *Indexer) ReindexCollection(ctx context.Context, store storage.Storage, collectionID string) error {
	ids, err := store.SnippetIDsForCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	return idx.ReindexSnippetsWith(ctx, store, ids)
}

// ReindexAll clears the index and rebuilds it from the relational tables in a
// single transaction. An interrupted rebuild rolls back and can simply be run
// again. Only one rebuild runs at a time; a concurrent call returns
// ErrIndexingInProgress.
func (idx *Indexer) ReindexAll(ctx context.Context) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	start := time.Now()
	stats := &Statistics{}

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if stats.EntriesCleared, err = tx.CountIndexEntries(ctx); err != nil {
		return nil, err
	}
	if err := tx.ClearIndex(ctx); err != nil {
		return nil, err
	}

	// Read the next batch while the current one is written
	batches := make(chan []*storage.IndexDocument, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		afterID := ""
		for {
			docs, err := tx.ListIndexDocuments(gctx, afterID, idx.batchSize)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				return nil
			}
			select {
			case batches <- docs:
			case <-gctx.Done():
				return gctx.Err()
			}
			if len(docs) < idx.batchSize {
				return nil
			}
			afterID = docs[len(docs)-1].SnippetID
		}
	})

	g.Go(func() error {
		for docs := range batches {
			for _, doc := range docs {
				// The index was cleared above; no row to replace
				if err := tx.InsertIndexEntry(gctx, doc); err != nil {
					return fmt.Errorf("failed to index snippet %s: %w", doc.SnippetID, err)
				}
			}
			stats.SnippetsIndexed += len(docs)
			stats.Batches++
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	stats.Duration = time.Since(start)
	idx.logger.Info("search index rebuilt",
		"cleared", stats.EntriesCleared,
		"indexed", stats.SnippetsIndexed,
		"batches", stats.Batches,
		"duration", stats.Duration)
	return stats, nil
}
