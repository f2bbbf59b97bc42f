package types

import "strings"

// SortMode selects the ordering of search results
type SortMode string

const (
	SortRelevance SortMode = "relevance" // bm25 when free text is present, otherwise newest
	SortNewest    SortMode = "newest"    // created_at DESC
	SortPinned    SortMode = "pinned"    // pinned DESC, updated_at DESC
)

// ParseSortMode converts a user supplied sort name to a SortMode.
// The empty string selects SortRelevance.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortRelevance:
		return SortRelevance, nil
	case SortNewest:
		return SortNewest, nil
	case SortPinned:
		return SortPinned, nil
	default:
		return "", ErrInvalidSort
	}
}

// ParsedQuery is the structured form of a search query string.
// Nil pointer fields mean the filter was not given.
type ParsedQuery struct {
	Terms       string   // free text, whitespace collapsed, quoted phrases kept verbatim
	Tags        []string // lowercase, all required
	Collections []string // original case, all required
	Source      *string
	Language    *string // lowercase
	Pinned      *bool
	Archived    *bool
}

// HasTerms reports whether the query carries free text
func (q *ParsedQuery) HasTerms() bool {
	return q.Terms != ""
}

// HasFilters reports whether any structured filter was given
func (q *ParsedQuery) HasFilters() bool {
	return len(q.Tags) > 0 || len(q.Collections) > 0 ||
		q.Source != nil || q.Language != nil ||
		q.Pinned != nil || q.Archived != nil
}
