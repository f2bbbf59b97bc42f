package storage

import (
	"context"

	"github.com/dshills/pinup/pkg/types"
)

// Storage defines the interface for persisting snippets and querying the search index
type Storage interface {
	// Snippet operations
	CreateSnippet(ctx context.Context, snippet *types.Snippet) error
	GetSnippet(ctx context.Context, id string) (*types.Snippet, error)
	UpdateSnippet(ctx context.Context, snippet *types.Snippet) error
	DeleteSnippet(ctx context.Context, id string) error
	FindSnippetByHash(ctx context.Context, contentHash string) (*types.Snippet, error)
	SetSnippetTags(ctx context.Context, snippetID string, tagIDs []string) error
	SetSnippetCollections(ctx context.Context, snippetID string, collectionIDs []string) error

	// Tag operations
	UpsertTag(ctx context.Context, tag *types.Tag) error
	GetTag(ctx context.Context, id string) (*types.Tag, error)
	GetTagByName(ctx context.Context, name string) (*types.Tag, error)
	RenameTag(ctx context.Context, id, newName string) error
	DeleteTag(ctx context.Context, id string) error
	ListTags(ctx context.Context) ([]*types.Tag, error)
	SnippetIDsForTag(ctx context.Context, tagID string) ([]string, error)

	// Collection operations
	UpsertCollection(ctx context.Context, collection *types.Collection) error
	GetCollection(ctx context.Context, id string) (*types.Collection, error)
	GetCollectionByName(ctx context.Context, name string) (*types.Collection, error)
	RenameCollection(ctx context.Context, id, newName string) error
	DeleteCollection(ctx context.Context, id string) error
	ListCollections(ctx context.Context) ([]*types.Collection, error)
	SnippetIDsForCollection(ctx context.Context, collectionID string) ([]string, error)

	// Membership hydration, keyed by snippet ID
	TagNamesForSnippets(ctx context.Context, snippetIDs []string) (map[string][]string, error)
	CollectionNamesForSnippets(ctx context.Context, snippetIDs []string) (map[string][]string, error)

	// Search index operations
	GetIndexDocument(ctx context.Context, snippetID string) (*IndexDocument, error)
	ListIndexDocuments(ctx context.Context, afterID string, limit int) ([]*IndexDocument, error)
	ReplaceIndexEntry(ctx context.Context, doc *IndexDocument) error
	InsertIndexEntry(ctx context.Context, doc *IndexDocument) error
	DeleteIndexEntry(ctx context.Context, snippetID string) error
	ClearIndex(ctx context.Context) error
	CountIndexEntries(ctx context.Context) (int, error)

	// Search operations
	SearchSnippets(ctx context.Context, query *types.ParsedQuery, opts SearchOptions) (*SearchPage, error)

	// Status operations
	GetStats(ctx context.Context) (*types.Stats, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// IndexDocument is the denormalized full-text row for one snippet
type IndexDocument struct {
	SnippetID   string
	Title       string
	Body        string
	Tags        string // space-joined tag names
	Collections string // space-joined collection names
	Source      string
	Language    string
}

// SearchOptions controls ordering and pagination of SearchSnippets
type SearchOptions struct {
	Sort   types.SortMode
	Limit  int
	Offset int

	// IncludeArchived drops the implicit archived = false filter when the
	// query has no archived: filter of its own
	IncludeArchived bool
}

// SearchPage is one ranked page of matching snippets.
// Rows carry scalar fields only; membership is hydrated separately.
type SearchPage struct {
	Rows  []*types.Snippet
	Total int
}
