// Package types provides shared type definitions for the Pin-Up snippet server.
//
// This package defines domain types used across multiple components,
// including snippets, tags, collections, parsed search queries and search results.
//
// # Core Types
//
// Snippet is a unit of stored text or code. It is associated with any number
// of tags and collections:
//
//	snippet := &types.Snippet{
//	    Title:    "Retry with backoff",
//	    Body:     "for attempt := 0; attempt < 5; attempt++ { ... }",
//	    Language: types.StringPtr("go"),
//	}
//
// ParsedQuery is the structured form of a search query string. It is built by
// the parser package and consumed by the storage planner:
//
//	q := &types.ParsedQuery{
//	    Terms: "retry backoff",
//	    Tags:  []string{"go", "network"},
//	}
//
// ResultItem is the lightweight projection returned by search:
//
//	for _, item := range resp.Results {
//	    fmt.Printf("%s  %s  %v\n", item.ID, item.Title, item.Tags)
//	}
//
// # Timestamps
//
// All timestamps are integer milliseconds since the Unix epoch. Use NowMillis
// to obtain the current time in that representation.
//
// # Validation
//
// Types carry Validate methods that return the sentinel errors declared in
// errors.go. Callers compare with errors.Is.
package types
