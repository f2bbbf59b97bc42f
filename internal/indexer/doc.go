// Package indexer keeps the full-text search index consistent with snippets.
//
// Every snippet has exactly one index entry holding its title, body, tag
// names, collection names, source and language. Entries are never patched
// in place: an update deletes the old row and inserts a fresh one built from
// the current relational state.
//
// # Per-snippet maintenance
//
// Mutations pass their open transaction so the snippet write and the index
// write commit or roll back together:
//
//	tx, _ := store.BeginTx(ctx)
//	defer tx.Rollback()
//	_ = tx.UpdateSnippet(ctx, snippet)
//	_ = idx.ReindexSnippetWith(ctx, tx, snippet.ID)
//	_ = tx.Commit()
//
// Renaming a tag or collection changes the text of every member's entry, so
// ReindexTag and ReindexCollection rebuild all affected snippets.
//
// # Full rebuild
//
// ReindexAll clears the index and repopulates it in keyset-ordered batches,
// all inside one transaction. It is the recovery path for an index that has
// drifted and is safe to re-run after an interruption. A second rebuild
// started while one is in flight fails fast with ErrIndexingInProgress.
package indexer
