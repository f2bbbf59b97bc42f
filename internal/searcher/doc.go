// Package searcher answers snippet search requests.
//
// A request carries a query string in the filter DSL, a limit, an offset and
// a sort mode. The searcher validates the bounds, parses the query, and runs
// the count and page statements plus membership hydration inside one read
// transaction, so the reported total always describes the same snapshot as
// the returned page.
//
// # Sort modes
//
//   - relevance: bm25 score when the query has free text, otherwise newest
//   - newest: creation time descending
//   - pinned: pinned first, then most recently updated
//
// Every mode ends with the snippet ID as a tie-break, so paging through a
// fixed data set never repeats or skips a result.
//
// # Caching
//
// Responses are cached in an LRU keyed by a SHA-256 of the normalized
// request. Identical concurrent requests share one execution through
// singleflight. Writers must call InvalidateCache after they commit; results
// computed before an invalidation are never stored afterwards.
//
// # Usage
//
//	s, _ := searcher.New(store, nil)
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query: `tag:go "context cancel"`,
//	    Limit: 20,
//	    Sort:  types.SortRelevance,
//	})
package searcher
