package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// indexDocumentQuery builds the denormalized index row from relational state.
// Correlated subqueries keep tag and collection concatenation independent.
const indexDocumentQuery = `
	SELECT
		s.id,
		s.title,
		s.body,
		COALESCE((
			SELECT GROUP_CONCAT(t.name, ' ') FROM snippet_tags st
			JOIN tags t ON t.id = st.tag_id
			WHERE st.snippet_id = s.id
		), ''),
		COALESCE((
			SELECT GROUP_CONCAT(c.name, ' ') FROM snippet_collections sc
			JOIN collections c ON c.id = sc.collection_id
			WHERE sc.snippet_id = s.id
		), ''),
		COALESCE(s.source, ''),
		COALESCE(s.language, '')
	FROM snippets s
`

func scanIndexDocument(row rowScanner) (*IndexDocument, error) {
	var doc IndexDocument
	err := row.Scan(&doc.SnippetID, &doc.Title, &doc.Body, &doc.Tags, &doc.Collections, &doc.Source, &doc.Language)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func getIndexDocumentWithQuerier(ctx context.Context, q querier, snippetID string) (*IndexDocument, error) {
	doc, err := scanIndexDocument(q.QueryRowContext(ctx, indexDocumentQuery+" WHERE s.id = ?", snippetID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build index document: %w", err)
	}
	return doc, nil
}

// GetIndexDocument builds the current index row for a snippet
func (s *SQLiteStorage) GetIndexDocument(ctx context.Context, snippetID string) (*IndexDocument, error) {
	return getIndexDocumentWithQuerier(ctx, s.querier(), snippetID)
}

// listIndexDocumentsWithQuerier pages through all snippets by ID (keyset pagination)
func listIndexDocumentsWithQuerier(ctx context.Context, q querier, afterID string, limit int) ([]*IndexDocument, error) {
	rows, err := q.QueryContext(ctx, indexDocumentQuery+" WHERE s.id > ? ORDER BY s.id ASC LIMIT ?", afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list index documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*IndexDocument
	for rows.Next() {
		doc, err := scanIndexDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ListIndexDocuments returns up to limit documents with snippet ID greater than afterID
func (s *SQLiteStorage) ListIndexDocuments(ctx context.Context, afterID string, limit int) ([]*IndexDocument, error) {
	return listIndexDocumentsWithQuerier(ctx, s.querier(), afterID, limit)
}

// indexKeyWithQuerier returns the doc_id of a snippet's index row,
// allocating one on first use
func indexKeyWithQuerier(ctx context.Context, q querier, snippetID string) (int64, error) {
	if _, err := q.ExecContext(ctx, "INSERT OR IGNORE INTO snippet_index_keys (snippet_id) VALUES (?)", snippetID); err != nil {
		return 0, fmt.Errorf("failed to allocate index key: %w", err)
	}
	var docID int64
	err := q.QueryRowContext(ctx, "SELECT doc_id FROM snippet_index_keys WHERE snippet_id = ?", snippetID).Scan(&docID)
	if err != nil {
		return 0, fmt.Errorf("failed to read index key: %w", err)
	}
	return docID, nil
}

func insertIndexRowWithQuerier(ctx context.Context, q querier, docID int64, doc *IndexDocument) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO snippets_fts (rowid, snippet_id, title, body, tags, collections, source, language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, docID, doc.SnippetID, doc.Title, doc.Body, doc.Tags, doc.Collections, doc.Source, doc.Language)
	if err != nil {
		return fmt.Errorf("failed to insert index entry: %w", err)
	}
	return nil
}

// replaceIndexEntryWithQuerier deletes any existing row for the snippet and
// inserts doc. FTS rows are never updated in place.
func replaceIndexEntryWithQuerier(ctx context.Context, q querier, doc *IndexDocument) error {
	docID, err := indexKeyWithQuerier(ctx, q, doc.SnippetID)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM snippets_fts WHERE rowid = ?", docID); err != nil {
		return fmt.Errorf("failed to delete index entry: %w", err)
	}
	return insertIndexRowWithQuerier(ctx, q, docID, doc)
}

func (s *SQLiteStorage) ReplaceIndexEntry(ctx context.Context, doc *IndexDocument) error {
	return replaceIndexEntryWithQuerier(ctx, s.querier(), doc)
}

// insertIndexEntryWithQuerier writes doc without looking for an existing
// row. Callers must know the snippet has none, as after ClearIndex.
func insertIndexEntryWithQuerier(ctx context.Context, q querier, doc *IndexDocument) error {
	docID, err := indexKeyWithQuerier(ctx, q, doc.SnippetID)
	if err != nil {
		return err
	}
	return insertIndexRowWithQuerier(ctx, q, docID, doc)
}

// InsertIndexEntry adds the index row of a snippet that has none
func (s *SQLiteStorage) InsertIndexEntry(ctx context.Context, doc *IndexDocument) error {
	return insertIndexEntryWithQuerier(ctx, s.querier(), doc)
}

func deleteIndexEntryWithQuerier(ctx context.Context, q querier, snippetID string) error {
	_, err := q.ExecContext(ctx, `
		DELETE FROM snippets_fts
		WHERE rowid = (SELECT doc_id FROM snippet_index_keys WHERE snippet_id = ?)
	`, snippetID)
	if err != nil {
		return fmt.Errorf("failed to delete index entry: %w", err)
	}
	return nil
}

// DeleteIndexEntry removes the index row of a snippet. Missing rows are not an error.
func (s *SQLiteStorage) DeleteIndexEntry(ctx context.Context, snippetID string) error {
	return deleteIndexEntryWithQuerier(ctx, s.querier(), snippetID)
}

func clearIndexWithQuerier(ctx context.Context, q querier) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM snippets_fts"); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	return nil
}

// ClearIndex removes every index row
func (s *SQLiteStorage) ClearIndex(ctx context.Context) error {
	return clearIndexWithQuerier(ctx, s.querier())
}

func countIndexEntriesWithQuerier(ctx context.Context, q querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM snippets_fts").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count index entries: %w", err)
	}
	return n, nil
}

func (s *SQLiteStorage) CountIndexEntries(ctx context.Context) (int, error) {
	return countIndexEntriesWithQuerier(ctx, s.querier())
}
