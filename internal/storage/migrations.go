package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.2.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
	{
		Version: "1.2.0",
		Up:      migrationV12Up,
		Down:    migrationV12Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Snippets table; timestamps are unix milliseconds
CREATE TABLE IF NOT EXISTS snippets (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    body TEXT NOT NULL CHECK (length(body) > 0),
    language TEXT,
    source TEXT,
    source_url TEXT,
    pinned INTEGER NOT NULL DEFAULT 0,
    archived INTEGER NOT NULL DEFAULT 0,
    content_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snippets_created_at ON snippets(created_at);
CREATE INDEX IF NOT EXISTS idx_snippets_updated_at ON snippets(updated_at);
CREATE INDEX IF NOT EXISTS idx_snippets_pinned ON snippets(pinned);
CREATE INDEX IF NOT EXISTS idx_snippets_archived ON snippets(archived);
CREATE INDEX IF NOT EXISTS idx_snippets_content_hash ON snippets(content_hash);

-- Tags are stored lowercase
CREATE TABLE IF NOT EXISTS tags (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE COLLATE NOCASE,
    color TEXT,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS collections (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE COLLATE NOCASE,
    description TEXT,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snippet_tags (
    snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
    tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (snippet_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_snippet_tags_tag ON snippet_tags(tag_id);

CREATE TABLE IF NOT EXISTS snippet_collections (
    snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
    collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
    PRIMARY KEY (snippet_id, collection_id)
);

CREATE INDEX IF NOT EXISTS idx_snippet_collections_collection ON snippet_collections(collection_id);

-- Full-text index, one row per live snippet, maintained by the indexer
CREATE VIRTUAL TABLE IF NOT EXISTS snippets_fts USING fts5(
    snippet_id UNINDEXED,
    title,
    body,
    tags,
    collections,
    source,
    language,
    tokenize = 'unicode61 remove_diacritics 2'
);

-- A deleted snippet never keeps its index row, even outside the indexer
CREATE TRIGGER IF NOT EXISTS snippets_fts_ad AFTER DELETE ON snippets BEGIN
    DELETE FROM snippets_fts WHERE snippet_id = old.id;
END;
`

const migrationV1Down = `
-- Drop all tables in reverse order of dependencies
DROP TRIGGER IF EXISTS snippets_fts_ad;

DROP TABLE IF EXISTS snippets_fts;
DROP TABLE IF EXISTS snippet_collections;
DROP TABLE IF EXISTS snippet_tags;
DROP TABLE IF EXISTS collections;
DROP TABLE IF EXISTS tags;
DROP TABLE IF EXISTS snippets;
DROP TABLE IF EXISTS schema_version;
`

const migrationV11Up = `
-- Collection presentation fields
ALTER TABLE collections ADD COLUMN icon TEXT;
ALTER TABLE collections ADD COLUMN color TEXT;
ALTER TABLE collections ADD COLUMN updated_at INTEGER NOT NULL DEFAULT 0;

UPDATE collections SET updated_at = created_at WHERE updated_at = 0;
`

const migrationV11Down = `
ALTER TABLE collections DROP COLUMN updated_at;
ALTER TABLE collections DROP COLUMN color;
ALTER TABLE collections DROP COLUMN icon;
`

const migrationV12Up = `
-- Integer keys for index rows. FTS5 looks rows up by rowid only, so
-- index rows are addressed through doc_id instead of snippet_id.
CREATE TABLE IF NOT EXISTS snippet_index_keys (
    doc_id INTEGER PRIMARY KEY AUTOINCREMENT,
    snippet_id TEXT NOT NULL UNIQUE REFERENCES snippets(id) ON DELETE CASCADE
);

INSERT OR IGNORE INTO snippet_index_keys (snippet_id) SELECT id FROM snippets ORDER BY id;

-- Re-key existing index rows
CREATE TEMP TABLE fts_rekey AS
    SELECT snippet_id, title, body, tags, collections, source, language FROM snippets_fts;
DELETE FROM snippets_fts;
INSERT INTO snippets_fts (rowid, snippet_id, title, body, tags, collections, source, language)
    SELECT k.doc_id, r.snippet_id, r.title, r.body, r.tags, r.collections, r.source, r.language
    FROM fts_rekey r
    JOIN snippet_index_keys k ON k.snippet_id = r.snippet_id;
DROP TABLE fts_rekey;

-- Runs before the key row cascades away
DROP TRIGGER IF EXISTS snippets_fts_ad;
CREATE TRIGGER IF NOT EXISTS snippets_fts_bd BEFORE DELETE ON snippets BEGIN
    DELETE FROM snippets_fts
    WHERE rowid = (SELECT doc_id FROM snippet_index_keys WHERE snippet_id = old.id);
END;
`

const migrationV12Down = `
DROP TRIGGER IF EXISTS snippets_fts_bd;
CREATE TRIGGER IF NOT EXISTS snippets_fts_ad AFTER DELETE ON snippets BEGIN
    DELETE FROM snippets_fts WHERE snippet_id = old.id;
END;

DROP TABLE IF EXISTS snippet_index_keys;
`

// currentSchemaVersion returns the highest applied migration version,
// or 0.0.0 when the schema_version table does not exist yet
func currentSchemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var versionStr string
		if err := rows.Scan(&versionStr); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(versionStr)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", versionStr, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// ApplyMigrations runs all pending migrations, each in its own transaction
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	currentVersion, err := currentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		if err := runMigration(ctx, db, migration.Up, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	current, err := currentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return fmt.Errorf("no migrations to rollback")
	}

	var migration *Migration
	for i := range AllMigrations {
		v, err := semver.NewVersion(AllMigrations[i].Version)
		if err == nil && v.Equal(current) {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", current)
	}

	// The first migration drops schema_version itself
	record := "DELETE FROM schema_version WHERE version = ?"
	if migration == &AllMigrations[0] {
		record = ""
	}

	if err := runMigration(ctx, db, migration.Down, record, migration.Version); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}
	return nil
}

// runMigration executes script and the version bookkeeping statement atomically
func runMigration(ctx context.Context, db *sql.DB, script, record, version string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if record != "" {
		if _, err := tx.ExecContext(ctx, record, version); err != nil {
			return fmt.Errorf("failed to record version: %w", err)
		}
	}
	return tx.Commit()
}
