// Package library implements the snippet, tag and collection operations
// shared by the CLI and the MCP tool surface.
//
// Every mutation runs in a single storage transaction together with the
// index maintenance it requires, then invalidates cached search results once
// the transaction has committed. Renaming or deleting a tag or collection
// reindexes every snippet that referenced it, because names are
// denormalized into the full-text index.
package library
