// Package storage provides SQLite-based persistence for snippets and their search index.
//
// The storage layer manages:
//   - Snippets (title, body, language, source, flags, content hash)
//   - Tags and collections with case-insensitive unique names
//   - Snippet membership in tags and collections
//   - The snippets_fts FTS5 index, one row per live snippet
//   - Ranked, filtered, paginated search over all of the above
//
// # Database Schema
//
// Tables:
//   - snippets: snippet rows, timestamps in unix milliseconds
//   - tags: lowercase tag names
//   - collections: collection names, description, icon, color
//   - snippet_tags, snippet_collections: membership, cascading on delete
//   - snippets_fts: denormalized full-text rows (title, body, tag names,
//     collection names, source, language)
//   - schema_version: applied migrations
//
// Index rows are written by the indexer package through ReplaceIndexEntry,
// always as delete plus insert. A trigger removes the row of a deleted snippet.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.local/share/pinup/pinup.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	snippet := &types.Snippet{Title: "hello", Body: "fmt.Println(1)"}
//	if err := db.CreateSnippet(ctx, snippet); err != nil {
//	    return err
//	}
//
// # Transactions
//
// Use transactions for atomic operations. Tx embeds Storage, so every
// operation is available inside a transaction:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	if err := tx.UpdateSnippet(ctx, snippet); err != nil {
//	    return err
//	}
//	doc, err := tx.GetIndexDocument(ctx, snippet.ID)
//	if err != nil {
//	    return err
//	}
//	if err := tx.ReplaceIndexEntry(ctx, doc); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// The database is opened with a single connection. Never call the
// non-transactional Storage while holding a Tx from the same handle.
//
// # Search
//
// SearchSnippets turns a types.ParsedQuery into one parameterized statement
// pair: a COUNT(DISTINCT) over all matches and a ranked LIMIT/OFFSET page.
//
//	page, err := db.SearchSnippets(ctx, parser.Parse("retry tag:go"), storage.SearchOptions{
//	    Sort:  types.SortRelevance,
//	    Limit: 20,
//	})
//
// Free text is matched against snippets_fts and ranked with bm25 (title
// weighted highest). Tag and collection filters use one join per value.
// Archived snippets are excluded unless the query says archived:true or
// SearchOptions.IncludeArchived is set.
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// Pure Go Build (default, or purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
//
// CGO Build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler and the fts5 tag
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo,fts5"
package storage
