package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/pinup/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// maxInParams bounds the number of bound parameters in a single IN (...) list
const maxInParams = 500

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings. One connection also keeps a :memory:
	// database alive for the lifetime of the handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// The CLI and the MCP server may share one database file
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Snippet operations

const snippetColumns = `s.id, s.title, s.body, s.language, s.source, s.source_url,
	s.pinned, s.archived, s.content_hash, s.created_at, s.updated_at`

func scanSnippet(row rowScanner, extra ...interface{}) (*types.Snippet, error) {
	var (
		snippet                     types.Snippet
		language, source, sourceURL sql.NullString
	)
	dest := append([]interface{}{&snippet.ID, &snippet.Title, &snippet.Body, &language, &source, &sourceURL,
		&snippet.Pinned, &snippet.Archived, &snippet.ContentHash, &snippet.CreatedAt, &snippet.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	snippet.Language = nullStringPtr(language)
	snippet.Source = nullStringPtr(source)
	snippet.SourceURL = nullStringPtr(sourceURL)
	return &snippet, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// createSnippetWithQuerier inserts the snippet row. Membership is set separately.
func (s *SQLiteStorage) createSnippetWithQuerier(ctx context.Context, q querier, snippet *types.Snippet) error {
	if err := snippet.Validate(); err != nil {
		return err
	}
	if snippet.ID == "" {
		snippet.ID = uuid.NewString()
	}
	now := types.NowMillis()
	if snippet.CreatedAt == 0 {
		snippet.CreatedAt = now
	}
	snippet.UpdatedAt = snippet.CreatedAt
	snippet.ContentHash = types.ContentHash(snippet.Body)

	query := `
		INSERT INTO snippets (id, title, body, language, source, source_url,
			pinned, archived, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		snippet.ID, snippet.Title, snippet.Body, snippet.Language, snippet.Source, snippet.SourceURL,
		snippet.Pinned, snippet.Archived, snippet.ContentHash, snippet.CreatedAt, snippet.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("snippet %s: %w", snippet.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create snippet: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CreateSnippet(ctx context.Context, snippet *types.Snippet) error {
	return s.createSnippetWithQuerier(ctx, s.querier(), snippet)
}

// getSnippetWithQuerier loads a snippet together with its tag and collection names
func (s *SQLiteStorage) getSnippetWithQuerier(ctx context.Context, q querier, id string) (*types.Snippet, error) {
	query := `SELECT ` + snippetColumns + ` FROM snippets s WHERE s.id = ?`
	snippet, err := scanSnippet(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snippet: %w", err)
	}

	if err := s.hydrateMembership(ctx, q, []*types.Snippet{snippet}); err != nil {
		return nil, err
	}
	return snippet, nil
}

func (s *SQLiteStorage) GetSnippet(ctx context.Context, id string) (*types.Snippet, error) {
	return s.getSnippetWithQuerier(ctx, s.querier(), id)
}

// updateSnippetWithQuerier writes the scalar fields of snippet. The content
// hash and updated timestamp are always recomputed.
func (s *SQLiteStorage) updateSnippetWithQuerier(ctx context.Context, q querier, snippet *types.Snippet) error {
	if err := snippet.Validate(); err != nil {
		return err
	}
	snippet.ContentHash = types.ContentHash(snippet.Body)
	snippet.UpdatedAt = types.NowMillis()

	query := `
		UPDATE snippets SET
			title = ?, body = ?, language = ?, source = ?, source_url = ?,
			pinned = ?, archived = ?, content_hash = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query,
		snippet.Title, snippet.Body, snippet.Language, snippet.Source, snippet.SourceURL,
		snippet.Pinned, snippet.Archived, snippet.ContentHash, snippet.UpdatedAt, snippet.ID)
	if err != nil {
		return fmt.Errorf("failed to update snippet: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStorage) UpdateSnippet(ctx context.Context, snippet *types.Snippet) error {
	return s.updateSnippetWithQuerier(ctx, s.querier(), snippet)
}

func (s *SQLiteStorage) deleteSnippetWithQuerier(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM snippets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete snippet: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStorage) DeleteSnippet(ctx context.Context, id string) error {
	return s.deleteSnippetWithQuerier(ctx, s.querier(), id)
}

// findSnippetByHashWithQuerier returns the oldest snippet with the given content hash
func (s *SQLiteStorage) findSnippetByHashWithQuerier(ctx context.Context, q querier, contentHash string) (*types.Snippet, error) {
	query := `SELECT ` + snippetColumns + ` FROM snippets s
		WHERE s.content_hash = ? ORDER BY s.created_at ASC, s.id ASC LIMIT 1`
	snippet, err := scanSnippet(q.QueryRowContext(ctx, query, contentHash))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find snippet by hash: %w", err)
	}
	return snippet, nil
}

func (s *SQLiteStorage) FindSnippetByHash(ctx context.Context, contentHash string) (*types.Snippet, error) {
	return s.findSnippetByHashWithQuerier(ctx, s.querier(), contentHash)
}

// setMembershipWithQuerier replaces the rows of a snippet join table
func (s *SQLiteStorage) setMembershipWithQuerier(ctx context.Context, q querier, table, column, snippetID string, ids []string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE snippet_id = ?", snippetID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	insert := "INSERT OR IGNORE INTO " + table + " (snippet_id, " + column + ") VALUES (?, ?)"
	for _, id := range ids {
		if _, err := q.ExecContext(ctx, insert, snippetID, id); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) SetSnippetTags(ctx context.Context, snippetID string, tagIDs []string) error {
	return s.setMembershipWithQuerier(ctx, s.querier(), "snippet_tags", "tag_id", snippetID, tagIDs)
}

func (s *SQLiteStorage) SetSnippetCollections(ctx context.Context, snippetID string, collectionIDs []string) error {
	return s.setMembershipWithQuerier(ctx, s.querier(), "snippet_collections", "collection_id", snippetID, collectionIDs)
}

// Tag operations

const tagColumns = `t.id, t.name, t.color, t.created_at`

func scanTag(row rowScanner, extra ...interface{}) (*types.Tag, error) {
	var (
		tag   types.Tag
		color sql.NullString
	)
	dest := append([]interface{}{&tag.ID, &tag.Name, &color, &tag.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	tag.Color = nullStringPtr(color)
	return &tag, nil
}

// upsertTagWithQuerier creates the tag or returns the existing one with the
// same normalized name. A non-nil color overwrites the stored color.
func (s *SQLiteStorage) upsertTagWithQuerier(ctx context.Context, q querier, tag *types.Tag) error {
	tag.Name = types.NormalizeTagName(tag.Name)
	if err := tag.Validate(); err != nil {
		return err
	}
	if tag.ID == "" {
		tag.ID = uuid.NewString()
	}
	if tag.CreatedAt == 0 {
		tag.CreatedAt = types.NowMillis()
	}

	query := `
		INSERT INTO tags (id, name, color, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			color = COALESCE(excluded.color, tags.color)
		RETURNING id, name, color, created_at
	`
	stored, err := scanTag(q.QueryRowContext(ctx, query, tag.ID, tag.Name, tag.Color, tag.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert tag: %w", err)
	}
	*tag = *stored
	return nil
}

func (s *SQLiteStorage) UpsertTag(ctx context.Context, tag *types.Tag) error {
	return s.upsertTagWithQuerier(ctx, s.querier(), tag)
}

func (s *SQLiteStorage) getTagWithQuerier(ctx context.Context, q querier, where string, arg interface{}) (*types.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags t WHERE ` + where
	tag, err := scanTag(q.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return tag, nil
}

func (s *SQLiteStorage) GetTag(ctx context.Context, id string) (*types.Tag, error) {
	return s.getTagWithQuerier(ctx, s.querier(), "t.id = ?", id)
}

func (s *SQLiteStorage) GetTagByName(ctx context.Context, name string) (*types.Tag, error) {
	return s.getTagWithQuerier(ctx, s.querier(), "t.name = ?", types.NormalizeTagName(name))
}

// renameTagWithQuerier changes a tag name. Index entries of tagged snippets
// are stale afterwards until the caller reindexes them.
func (s *SQLiteStorage) renameTagWithQuerier(ctx context.Context, q querier, id, newName string) error {
	name := types.NormalizeTagName(newName)
	if name == "" {
		return types.ErrEmptyName
	}

	existing, err := s.getTagWithQuerier(ctx, q, "t.name = ?", name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil && existing.ID != id {
		return fmt.Errorf("tag %q: %w", name, ErrAlreadyExists)
	}

	result, err := q.ExecContext(ctx, "UPDATE tags SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("failed to rename tag: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStorage) RenameTag(ctx context.Context, id, newName string) error {
	return s.renameTagWithQuerier(ctx, s.querier(), id, newName)
}

func (s *SQLiteStorage) deleteTagWithQuerier(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStorage) DeleteTag(ctx context.Context, id string) error {
	return s.deleteTagWithQuerier(ctx, s.querier(), id)
}

// listTagsWithQuerier returns all tags by name with their snippet counts
func (s *SQLiteStorage) listTagsWithQuerier(ctx context.Context, q querier) ([]*types.Tag, error) {
	query := `
		SELECT ` + tagColumns + `, COUNT(st.snippet_id)
		FROM tags t
		LEFT JOIN snippet_tags st ON st.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.name ASC
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []*types.Tag
	for rows.Next() {
		var count int
		tag, err := scanTag(rows, &count)
		if err != nil {
			return nil, err
		}
		tag.SnippetCount = count
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *SQLiteStorage) ListTags(ctx context.Context) ([]*types.Tag, error) {
	return s.listTagsWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) SnippetIDsForTag(ctx context.Context, tagID string) ([]string, error) {
	return queryStrings(ctx, s.querier(),
		"SELECT snippet_id FROM snippet_tags WHERE tag_id = ? ORDER BY snippet_id", tagID)
}

// Collection operations

const collectionColumns = `c.id, c.name, c.description, c.icon, c.color, c.created_at, c.updated_at`

func scanCollection(row rowScanner, extra ...interface{}) (*types.Collection, error) {
	var (
		collection               types.Collection
		description, icon, color sql.NullString
	)
	dest := append([]interface{}{&collection.ID, &collection.Name, &description, &icon, &color,
		&collection.CreatedAt, &collection.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	collection.Description = nullStringPtr(description)
	collection.Icon = nullStringPtr(icon)
	collection.Color = nullStringPtr(color)
	return &collection, nil
}

// upsertCollectionWithQuerier creates the collection or returns the existing
// one with the same case-insensitive name, updating any non-nil attributes
func (s *SQLiteStorage) upsertCollectionWithQuerier(ctx context.Context, q querier, collection *types.Collection) error {
	collection.Name = strings.TrimSpace(collection.Name)
	if err := collection.Validate(); err != nil {
		return err
	}
	if collection.ID == "" {
		collection.ID = uuid.NewString()
	}
	now := types.NowMillis()
	if collection.CreatedAt == 0 {
		collection.CreatedAt = now
	}

	query := `
		INSERT INTO collections (id, name, description, icon, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = COALESCE(excluded.description, collections.description),
			icon = COALESCE(excluded.icon, collections.icon),
			color = COALESCE(excluded.color, collections.color),
			updated_at = CASE
				WHEN excluded.description IS NULL AND excluded.icon IS NULL AND excluded.color IS NULL
				THEN collections.updated_at
				ELSE excluded.updated_at
			END
		RETURNING id, name, description, icon, color, created_at, updated_at
	`
	stored, err := scanCollection(q.QueryRowContext(ctx, query,
		collection.ID, collection.Name, collection.Description, collection.Icon, collection.Color,
		collection.CreatedAt, now))
	if err != nil {
		return fmt.Errorf("failed to upsert collection: %w", err)
	}
	*collection = *stored
	return nil
}

func (s *SQLiteStorage) UpsertCollection(ctx context.Context, collection *types.Collection) error {
	return s.upsertCollectionWithQuerier(ctx, s.querier(), collection)
}

func (s *SQLiteStorage) getCollectionWithQuerier(ctx context.Context, q querier, where string, arg interface{}) (*types.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections c WHERE ` + where
	collection, err := scanCollection(q.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return collection, nil
}

func (s *SQLiteStorage) GetCollection(ctx context.Context, id string) (*types.Collection, error) {
	return s.getCollectionWithQuerier(ctx, s.querier(), "c.id = ?", id)
}

func (s *SQLiteStorage) GetCollectionByName(ctx context.Context, name string) (*types.Collection, error) {
	return s.getCollectionWithQuerier(ctx, s.querier(), "c.name = ?", strings.TrimSpace(name))
}

// renameCollectionWithQuerier changes a collection name, allowing a change of
// case on the same collection
func (s *SQLiteStorage) renameCollectionWithQuerier(ctx context.Context, q querier, id, newName string) error {
	name := strings.TrimSpace(newName)
	if name == "" {
		return types.ErrEmptyName
	}

	existing, err := s.getCollectionWithQuerier(ctx, q, "c.name = ?", name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil && existing.ID != id {
		return fmt.Errorf("collection %q: %w", name, ErrAlreadyExists)
	}

	result, err := q.ExecContext(ctx, "UPDATE collections SET name = ?, updated_at = ? WHERE id = ?",
		name, types.NowMillis(), id)
	if err != nil {
		return fmt.Errorf("failed to rename collection: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStorage) RenameCollection(ctx context.Context, id, newName string) error {
	return s.renameCollectionWithQuerier(ctx, s.querier(), id, newName)
}

func (s *SQLiteStorage) deleteCollectionWithQuerier(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStorage) DeleteCollection(ctx context.Context, id string) error {
	return s.deleteCollectionWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStorage) listCollectionsWithQuerier(ctx context.Context, q querier) ([]*types.Collection, error) {
	query := `
		SELECT ` + collectionColumns + `, COUNT(sc.snippet_id)
		FROM collections c
		LEFT JOIN snippet_collections sc ON sc.collection_id = c.id
		GROUP BY c.id
		ORDER BY c.name COLLATE NOCASE ASC
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var collections []*types.Collection
	for rows.Next() {
		var count int
		collection, err := scanCollection(rows, &count)
		if err != nil {
			return nil, err
		}
		collection.SnippetCount = count
		collections = append(collections, collection)
	}
	return collections, rows.Err()
}

func (s *SQLiteStorage) ListCollections(ctx context.Context) ([]*types.Collection, error) {
	return s.listCollectionsWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) SnippetIDsForCollection(ctx context.Context, collectionID string) ([]string, error) {
	return queryStrings(ctx, s.querier(),
		"SELECT snippet_id FROM snippet_collections WHERE collection_id = ? ORDER BY snippet_id", collectionID)
}

// Membership hydration

// namesForSnippetsWithQuerier maps snippet IDs to the names joined through
// the given membership query, which must select (snippet_id, name) and end
// with an IN placeholder list.
func namesForSnippetsWithQuerier(ctx context.Context, q querier, queryPrefix, querySuffix string, snippetIDs []string) (map[string][]string, error) {
	names := make(map[string][]string, len(snippetIDs))
	for start := 0; start < len(snippetIDs); start += maxInParams {
		end := min(start+maxInParams, len(snippetIDs))
		batch := snippetIDs[start:end]

		args := make([]interface{}, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		query := queryPrefix + placeholders(len(batch)) + querySuffix

		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to load membership names: %w", err)
		}
		for rows.Next() {
			var snippetID, name string
			if err := rows.Scan(&snippetID, &name); err != nil {
				_ = rows.Close()
				return nil, err
			}
			names[snippetID] = append(names[snippetID], name)
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return names, nil
}

func tagNamesWithQuerier(ctx context.Context, q querier, snippetIDs []string) (map[string][]string, error) {
	return namesForSnippetsWithQuerier(ctx, q, `
		SELECT st.snippet_id, t.name
		FROM snippet_tags st
		JOIN tags t ON t.id = st.tag_id
		WHERE st.snippet_id IN (`, `)
		ORDER BY t.name ASC`, snippetIDs)
}

func collectionNamesWithQuerier(ctx context.Context, q querier, snippetIDs []string) (map[string][]string, error) {
	return namesForSnippetsWithQuerier(ctx, q, `
		SELECT sc.snippet_id, c.name
		FROM snippet_collections sc
		JOIN collections c ON c.id = sc.collection_id
		WHERE sc.snippet_id IN (`, `)
		ORDER BY c.name COLLATE NOCASE ASC`, snippetIDs)
}

func (s *SQLiteStorage) TagNamesForSnippets(ctx context.Context, snippetIDs []string) (map[string][]string, error) {
	return tagNamesWithQuerier(ctx, s.querier(), snippetIDs)
}

func (s *SQLiteStorage) CollectionNamesForSnippets(ctx context.Context, snippetIDs []string) (map[string][]string, error) {
	return collectionNamesWithQuerier(ctx, s.querier(), snippetIDs)
}

// hydrateMembership fills Tags and Collections on each snippet
func (s *SQLiteStorage) hydrateMembership(ctx context.Context, q querier, snippets []*types.Snippet) error {
	ids := make([]string, len(snippets))
	for i, sn := range snippets {
		ids[i] = sn.ID
	}
	tags, err := tagNamesWithQuerier(ctx, q, ids)
	if err != nil {
		return err
	}
	collections, err := collectionNamesWithQuerier(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, sn := range snippets {
		sn.Tags = nonNil(tags[sn.ID])
		sn.Collections = nonNil(collections[sn.ID])
	}
	return nil
}

// Status operations

func (s *SQLiteStorage) getStatsWithQuerier(ctx context.Context, q querier) (*types.Stats, error) {
	stats := &types.Stats{}

	counts := []struct {
		dest  *int
		query string
		args  []interface{}
	}{
		{&stats.Snippets, "SELECT COUNT(*) FROM snippets", nil},
		{&stats.Tags, "SELECT COUNT(*) FROM tags", nil},
		{&stats.Collections, "SELECT COUNT(*) FROM collections", nil},
		{&stats.Pinned, "SELECT COUNT(*) FROM snippets WHERE pinned = 1", nil},
		{&stats.Archived, "SELECT COUNT(*) FROM snippets WHERE archived = 1", nil},
		{&stats.IndexEntries, "SELECT COUNT(*) FROM snippets_fts", nil},
		{&stats.CreatedLast7, "SELECT COUNT(*) FROM snippets WHERE created_at >= ?", []interface{}{daysAgoMillis(7)}},
		{&stats.CreatedLast30, "SELECT COUNT(*) FROM snippets WHERE created_at >= ?", []interface{}{daysAgoMillis(30)}},
	}
	for _, c := range counts {
		if err := q.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to compute stats: %w", err)
		}
	}

	var err error
	stats.TopTags, err = queryNameCounts(ctx, q, `
		SELECT t.name, COUNT(st.snippet_id) AS cnt
		FROM tags t LEFT JOIN snippet_tags st ON st.tag_id = t.id
		GROUP BY t.id ORDER BY cnt DESC, t.name ASC LIMIT 10`)
	if err != nil {
		return nil, err
	}
	stats.TopCollections, err = queryNameCounts(ctx, q, `
		SELECT c.name, COUNT(sc.snippet_id) AS cnt
		FROM collections c LEFT JOIN snippet_collections sc ON sc.collection_id = c.id
		GROUP BY c.id ORDER BY cnt DESC, c.name ASC LIMIT 10`)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, "SELECT id, title, updated_at FROM snippets ORDER BY updated_at DESC, id ASC LIMIT 10")
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var r types.RecentChange
		if err := rows.Scan(&r.ID, &r.Title, &r.UpdatedAt); err != nil {
			return nil, err
		}
		stats.Recent = append(stats.Recent, r)
	}
	return stats, rows.Err()
}

func (s *SQLiteStorage) GetStats(ctx context.Context) (*types.Stats, error) {
	return s.getStatsWithQuerier(ctx, s.querier())
}

// Helpers

func queryStrings(ctx context.Context, q querier, query string, args ...interface{}) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func queryNameCounts(ctx context.Context, q querier, query string) ([]types.NameCount, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.NameCount
	for rows.Next() {
		var nc types.NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, err
		}
		out = append(out, nc)
	}
	return out, rows.Err()
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func daysAgoMillis(days int) int64 {
	return types.NowMillis() - int64(days)*24*60*60*1000
}

// Transaction methods - delegate to storage implementation with the transaction querier

func (t *sqliteTx) CreateSnippet(ctx context.Context, snippet *types.Snippet) error {
	return t.storage.createSnippetWithQuerier(ctx, t.querier(), snippet)
}

func (t *sqliteTx) GetSnippet(ctx context.Context, id string) (*types.Snippet, error) {
	return t.storage.getSnippetWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) UpdateSnippet(ctx context.Context, snippet *types.Snippet) error {
	return t.storage.updateSnippetWithQuerier(ctx, t.querier(), snippet)
}

func (t *sqliteTx) DeleteSnippet(ctx context.Context, id string) error {
	return t.storage.deleteSnippetWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) FindSnippetByHash(ctx context.Context, contentHash string) (*types.Snippet, error) {
	return t.storage.findSnippetByHashWithQuerier(ctx, t.querier(), contentHash)
}

func (t *sqliteTx) SetSnippetTags(ctx context.Context, snippetID string, tagIDs []string) error {
	return t.storage.setMembershipWithQuerier(ctx, t.querier(), "snippet_tags", "tag_id", snippetID, tagIDs)
}

func (t *sqliteTx) SetSnippetCollections(ctx context.Context, snippetID string, collectionIDs []string) error {
	return t.storage.setMembershipWithQuerier(ctx, t.querier(), "snippet_collections", "collection_id", snippetID, collectionIDs)
}

func (t *sqliteTx) UpsertTag(ctx context.Context, tag *types.Tag) error {
	return t.storage.upsertTagWithQuerier(ctx, t.querier(), tag)
}

func (t *sqliteTx) GetTag(ctx context.Context, id string) (*types.Tag, error) {
	return t.storage.getTagWithQuerier(ctx, t.querier(), "t.id = ?", id)
}

func (t *sqliteTx) GetTagByName(ctx context.Context, name string) (*types.Tag, error) {
	return t.storage.getTagWithQuerier(ctx, t.querier(), "t.name = ?", types.NormalizeTagName(name))
}

func (t *sqliteTx) RenameTag(ctx context.Context, id, newName string) error {
	return t.storage.renameTagWithQuerier(ctx, t.querier(), id, newName)
}

func (t *sqliteTx) DeleteTag(ctx context.Context, id string) error {
	return t.storage.deleteTagWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListTags(ctx context.Context) ([]*types.Tag, error) {
	return t.storage.listTagsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) SnippetIDsForTag(ctx context.Context, tagID string) ([]string, error) {
	return queryStrings(ctx, t.querier(),
		"SELECT snippet_id FROM snippet_tags WHERE tag_id = ? ORDER BY snippet_id", tagID)
}

func (t *sqliteTx) UpsertCollection(ctx context.Context, collection *types.Collection) error {
	return t.storage.upsertCollectionWithQuerier(ctx, t.querier(), collection)
}

func (t *sqliteTx) GetCollection(ctx context.Context, id string) (*types.Collection, error) {
	return t.storage.getCollectionWithQuerier(ctx, t.querier(), "c.id = ?", id)
}

func (t *sqliteTx) GetCollectionByName(ctx context.Context, name string) (*types.Collection, error) {
	return t.storage.getCollectionWithQuerier(ctx, t.querier(), "c.name = ?", strings.TrimSpace(name))
}

func (t *sqliteTx) RenameCollection(ctx context.Context, id, newName string) error {
	return t.storage.renameCollectionWithQuerier(ctx, t.querier(), id, newName)
}

func (t *sqliteTx) DeleteCollection(ctx context.Context, id string) error {
	return t.storage.deleteCollectionWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListCollections(ctx context.Context) ([]*types.Collection, error) {
	return t.storage.listCollectionsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) SnippetIDsForCollection(ctx context.Context, collectionID string) ([]string, error) {
	return queryStrings(ctx, t.querier(),
		"SELECT snippet_id FROM snippet_collections WHERE collection_id = ? ORDER BY snippet_id", collectionID)
}

func (t *sqliteTx) TagNamesForSnippets(ctx context.Context, snippetIDs []string) (map[string][]string, error) {
	return tagNamesWithQuerier(ctx, t.querier(), snippetIDs)
}

func (t *sqliteTx) CollectionNamesForSnippets(ctx context.Context, snippetIDs []string) (map[string][]string, error) {
	return collectionNamesWithQuerier(ctx, t.querier(), snippetIDs)
}

func (t *sqliteTx) GetIndexDocument(ctx context.Context, snippetID string) (*IndexDocument, error) {
	return getIndexDocumentWithQuerier(ctx, t.querier(), snippetID)
}

func (t *sqliteTx) ListIndexDocuments(ctx context.Context, afterID string, limit int) ([]*IndexDocument, error) {
	return listIndexDocumentsWithQuerier(ctx, t.querier(), afterID, limit)
}

func (t *sqliteTx) ReplaceIndexEntry(ctx context.Context, doc *IndexDocument) error {
	return replaceIndexEntryWithQuerier(ctx, t.querier(), doc)
}

func (t *sqliteTx) InsertIndexEntry(ctx context.Context, doc *IndexDocument) error {
	return insertIndexEntryWithQuerier(ctx, t.querier(), doc)
}

func (t *sqliteTx) DeleteIndexEntry(ctx context.Context, snippetID string) error {
	return deleteIndexEntryWithQuerier(ctx, t.querier(), snippetID)
}

func (t *sqliteTx) ClearIndex(ctx context.Context) error {
	return clearIndexWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) CountIndexEntries(ctx context.Context) (int, error) {
	return countIndexEntriesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) SearchSnippets(ctx context.Context, query *types.ParsedQuery, opts SearchOptions) (*SearchPage, error) {
	return searchSnippetsWithQuerier(ctx, t.querier(), query, opts)
}

func (t *sqliteTx) GetStats(ctx context.Context) (*types.Stats, error) {
	return t.storage.getStatsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
