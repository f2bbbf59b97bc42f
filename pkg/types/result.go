package types

import "time"

// ResultItem is the search projection of a snippet
type ResultItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Preview     string   `json:"preview"`
	Tags        []string `json:"tags"`
	Collections []string `json:"collections"`
	Source      *string  `json:"source"`
	Language    *string  `json:"language"`
	Pinned      bool     `json:"pinned"`
	Archived    bool     `json:"archived"`
	CreatedAt   int64    `json:"created_at"`
	UpdatedAt   int64    `json:"updated_at"`
}

// SearchResponse contains one page of search results and metadata
type SearchResponse struct {
	Query    string        `json:"query"`
	Sort     SortMode      `json:"sort"`
	Limit    int           `json:"limit"`
	Offset   int           `json:"offset"`
	Total    int           `json:"total"`
	Results  []ResultItem  `json:"results"`
	Duration time.Duration `json:"-"`
	CacheHit bool          `json:"-"`
}

// Stats summarizes the contents of the library
type Stats struct {
	Snippets       int            `json:"snippets"`
	Tags           int            `json:"tags"`
	Collections    int            `json:"collections"`
	Pinned         int            `json:"pinned"`
	Archived       int            `json:"archived"`
	IndexEntries   int            `json:"index_entries"`
	CreatedLast7   int            `json:"created_last_7_days"`
	CreatedLast30  int            `json:"created_last_30_days"`
	TopTags        []NameCount    `json:"top_tags"`
	TopCollections []NameCount    `json:"top_collections"`
	Recent         []RecentChange `json:"recent_activity"`
	Indexing       bool           `json:"indexing"`
	CachedSearches int            `json:"cached_searches"`
}

// NameCount pairs a tag or collection name with its snippet count
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RecentChange describes a recently updated snippet
type RecentChange struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt int64  `json:"updated_at"`
}
