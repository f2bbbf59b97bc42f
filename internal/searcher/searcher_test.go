package searcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pinup/internal/indexer"
	"github.com/dshills/pinup/internal/storage"
	"github.com/dshills/pinup/pkg/types"
)

type fixture struct {
	title     string
	body      string
	createdAt int64
	tags      []string
	archived  bool
}

func setupTestSearcher(t *testing.T) (*Searcher, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s, err := New(store, nil)
	require.NoError(t, err)
	return s, store
}

// seed inserts fixtures and rebuilds the index, returning snippet IDs in order
func seed(t testing.TB, store *storage.SQLiteStorage, fixtures ...fixture) []string {
	t.Helper()
	ctx := context.Background()

	ids := make([]string, 0, len(fixtures))
	for _, f := range fixtures {
		snippet := &types.Snippet{Title: f.title, Body: f.body, CreatedAt: f.createdAt, Archived: f.archived}
		require.NoError(t, store.CreateSnippet(ctx, snippet))

		tagIDs := make([]string, 0, len(f.tags))
		for _, name := range f.tags {
			tag := &types.Tag{Name: name}
			require.NoError(t, store.UpsertTag(ctx, tag))
			tagIDs = append(tagIDs, tag.ID)
		}
		require.NoError(t, store.SetSnippetTags(ctx, snippet.ID, tagIDs))
		ids = append(ids, snippet.ID)
	}

	_, err := indexer.New(store, nil).ReindexAll(ctx)
	require.NoError(t, err)
	return ids
}

func resultIDs(resp *types.SearchResponse) []string {
	ids := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		ids[i] = r.ID
	}
	return ids
}

func TestNew(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()

	s, err := New(store, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, s.defaultLimit)
	assert.Equal(t, MaxLimit, s.maxLimit)
	assert.NotNil(t, s.cache)

	s, err = New(store, &Config{DefaultLimit: 500, MaxLimit: 50})
	require.NoError(t, err)
	assert.Equal(t, 20, s.defaultLimit)
	assert.Equal(t, 50, s.maxLimit)
	assert.Nil(t, s.cache)
}

func TestValidateRequest(t *testing.T) {
	s := &Searcher{defaultLimit: DefaultLimit, maxLimit: MaxLimit}

	tests := []struct {
		name        string
		req         SearchRequest
		expectError error
		validate    func(t *testing.T, req *SearchRequest)
	}{
		{
			name: "ZeroLimit_UsesDefault",
			req:  SearchRequest{Query: "test"},
			validate: func(t *testing.T, req *SearchRequest) {
				if req.Limit != DefaultLimit {
					t.Errorf("expected default limit %d, got %d", DefaultLimit, req.Limit)
				}
				if req.Sort != types.SortRelevance {
					t.Errorf("expected relevance sort, got %q", req.Sort)
				}
			},
		},
		{
			name:        "NegativeLimit",
			req:         SearchRequest{Limit: -1},
			expectError: types.ErrInvalidLimit,
		},
		{
			name:        "ExcessiveLimit",
			req:         SearchRequest{Limit: MaxLimit + 1},
			expectError: types.ErrInvalidLimit,
		},
		{
			name: "MaxLimitAccepted",
			req:  SearchRequest{Limit: MaxLimit},
		},
		{
			name:        "NegativeOffset",
			req:         SearchRequest{Limit: 10, Offset: -3},
			expectError: types.ErrInvalidOffset,
		},
		{
			name:        "UnknownSort",
			req:         SearchRequest{Limit: 10, Sort: "oldest"},
			expectError: types.ErrInvalidSort,
		},
		{
			name: "SortCaseInsensitive",
			req:  SearchRequest{Limit: 10, Sort: "NEWEST"},
			validate: func(t *testing.T, req *SearchRequest) {
				if req.Sort != types.SortNewest {
					t.Errorf("expected newest, got %q", req.Sort)
				}
			},
		},
		{
			name: "QueryTrimmed",
			req:  SearchRequest{Query: "  docker  ", Limit: 5},
			validate: func(t *testing.T, req *SearchRequest) {
				if req.Query != "docker" {
					t.Errorf("expected trimmed query, got %q", req.Query)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := s.validateRequest(&req)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Fatalf("expected %v, got %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, &req)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("a", 500)
	assert.Equal(t, strings.Repeat("a", 200), Preview(long))
	assert.Len(t, Preview(long), 200)

	assert.Equal(t, "line one line two", Preview("line one\nline two"))
	assert.Equal(t, "crlf  text", Preview("crlf\r\ntext"))
	assert.Equal(t, "", Preview(""))

	exact := strings.Repeat("b", 200)
	assert.Equal(t, exact, Preview(exact))

	// counted in characters, not bytes
	multi := strings.Repeat("é", 300)
	got := Preview(multi)
	assert.Equal(t, 200, len([]rune(got)))
	assert.Equal(t, strings.Repeat("é", 200), got)

	// newline beyond the cut is irrelevant, the cut may split a word
	assert.Equal(t, strings.Repeat("x", 199)+"y", Preview(strings.Repeat("x", 199)+"yz\nrest"))
}

func TestComputeQueryHash(t *testing.T) {
	base := SearchRequest{Query: "docker", Limit: 10, Sort: types.SortRelevance}
	same := base
	assert.Equal(t, computeQueryHash(base), computeQueryHash(same))

	variants := []SearchRequest{
		{Query: "dockers", Limit: 10, Sort: types.SortRelevance},
		{Query: "docker", Limit: 11, Sort: types.SortRelevance},
		{Query: "docker", Limit: 10, Offset: 10, Sort: types.SortRelevance},
		{Query: "docker", Limit: 10, Sort: types.SortNewest},
		{Query: "docker", Limit: 10, Sort: types.SortRelevance, IncludeArchived: true},
	}
	for _, v := range variants {
		assert.NotEqual(t, computeQueryHash(base), computeQueryHash(v), "%+v", v)
	}
}

func TestSearch_TagFilterEndToEnd(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	ids := seed(t, store, fixture{
		title: "print one",
		body:  "```python\nprint(1)\n```",
		tags:  []string{"python"},
	})

	resp, err := s.Search(ctx, SearchRequest{Query: "tag:python", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Results, 1)
	item := resp.Results[0]
	assert.Equal(t, ids[0], item.ID)
	assert.Equal(t, "```python print(1) ```", item.Preview)
	assert.Equal(t, []string{"python"}, item.Tags)
	assert.Equal(t, []string{}, item.Collections)

	resp, err = s.Search(ctx, SearchRequest{Query: "tag:python tag:nonexistent", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Total)
	assert.Empty(t, resp.Results)
}

func TestSearch_ArchivedEndToEnd(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	ids := seed(t, store,
		fixture{title: "live note", body: "shared words", createdAt: 1},
		fixture{title: "old note", body: "shared words", createdAt: 2, archived: true},
	)

	resp, err := s.Search(ctx, SearchRequest{Query: "shared", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0]}, resultIDs(resp))

	resp, err = s.Search(ctx, SearchRequest{Query: "archived:true", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[1]}, resultIDs(resp))
	assert.True(t, resp.Results[0].Archived)
}

func TestSearch_RelevanceFallsBackToNewest(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	ids := seed(t, store,
		fixture{title: "first", body: "a", createdAt: 100, tags: []string{"x"}},
		fixture{title: "third", body: "c", createdAt: 300, tags: []string{"x"}},
		fixture{title: "second", body: "b", createdAt: 200, tags: []string{"x"}},
		fixture{title: "other", body: "d", createdAt: 400, tags: []string{"y"}},
	)

	resp, err := s.Search(ctx, SearchRequest{Query: "tag:x", Limit: 10, Sort: types.SortRelevance})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[1], ids[2], ids[0]}, resultIDs(resp))
}

func TestSearch_ResultsCarryAllTags(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	seed(t, store, fixture{title: "multi", body: "body", tags: []string{"a", "b", "c"}})

	resp, err := s.Search(ctx, SearchRequest{Query: "tag:a tag:b tag:c", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []string{"a", "b", "c"}, resp.Results[0].Tags)
}

func TestSearch_PaginationConcatenates(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	var fixtures []fixture
	for i := 0; i < 11; i++ {
		fixtures = append(fixtures, fixture{
			title:     fmt.Sprintf("deploy %d", i),
			body:      strings.Repeat("deploy ", i+1),
			createdAt: int64(i % 3),
		})
	}
	seed(t, store, fixtures...)

	for _, sort := range []types.SortMode{types.SortRelevance, types.SortNewest, types.SortPinned} {
		full, err := s.Search(ctx, SearchRequest{Query: "deploy", Limit: 100, Sort: sort})
		require.NoError(t, err)
		require.Equal(t, 11, full.Total)

		var paged []string
		for offset := 0; offset < full.Total; offset += 4 {
			page, err := s.Search(ctx, SearchRequest{Query: "deploy", Limit: 4, Offset: offset, Sort: sort})
			require.NoError(t, err)
			assert.Equal(t, full.Total, page.Total)
			paged = append(paged, resultIDs(page)...)
		}
		assert.Equal(t, resultIDs(full), paged, "sort=%s", sort)
	}
}

func TestSearch_EmptyQueryMatchesAllLive(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	ids := seed(t, store,
		fixture{title: "a", body: "a", createdAt: 1},
		fixture{title: "b", body: "b", createdAt: 2},
		fixture{title: "c", body: "c", createdAt: 3, archived: true},
	)

	resp, err := s.Search(ctx, SearchRequest{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, []string{ids[1], ids[0]}, resultIDs(resp))

	resp, err = s.Search(ctx, SearchRequest{Limit: 10, IncludeArchived: true})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
}

func TestSearch_ReindexIdempotent(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	seed(t, store,
		fixture{title: "retry", body: "exponential backoff", createdAt: 1, tags: []string{"go"}},
		fixture{title: "backoff", body: "linear", createdAt: 2},
	)
	idx := indexer.New(store, nil)

	_, err := idx.ReindexAll(ctx)
	require.NoError(t, err)
	s.InvalidateCache()
	once, err := s.Search(ctx, SearchRequest{Query: "backoff", Limit: 10})
	require.NoError(t, err)

	_, err = idx.ReindexAll(ctx)
	require.NoError(t, err)
	s.InvalidateCache()
	twice, err := s.Search(ctx, SearchRequest{Query: "backoff", Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, once.Total, twice.Total)
	assert.Equal(t, once.Results, twice.Results)
}

func TestSearch_InvalidRequest(t *testing.T) {
	s, _ := setupTestSearcher(t)

	_, err := s.Search(context.Background(), SearchRequest{Query: "x", Limit: 1000})
	assert.ErrorIs(t, err, types.ErrInvalidLimit)
}

func TestSearch_StoreErrorSurfaces(t *testing.T) {
	s, store := setupTestSearcher(t)
	require.NoError(t, store.Close())

	resp, err := s.Search(context.Background(), SearchRequest{Query: "anything", Limit: 10})
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestSearch_CacheHitAndInvalidation(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	seed(t, store, fixture{title: "cached", body: "value", createdAt: 1})

	first, err := s.Search(ctx, SearchRequest{Query: "cached", Limit: 10})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, 1, s.CacheLen())

	second, err := s.Search(ctx, SearchRequest{Query: "cached", Limit: 10})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, resultIDs(first), resultIDs(second))

	// mutating a returned response must not leak into the cache
	second.Results[0].Tags = append(second.Results[0].Tags, "mutated")
	third, err := s.Search(ctx, SearchRequest{Query: "cached", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, third.Results[0].Tags)

	seed(t, store, fixture{title: "cached too", body: "value", createdAt: 2})
	s.InvalidateCache()
	assert.Equal(t, 0, s.CacheLen())

	fresh, err := s.Search(ctx, SearchRequest{Query: "cached", Limit: 10})
	require.NoError(t, err)
	assert.False(t, fresh.CacheHit)
	assert.Equal(t, 2, fresh.Total)
}

func TestStoreInCache_SkipsStaleGeneration(t *testing.T) {
	s, _ := setupTestSearcher(t)

	hash := computeQueryHash(SearchRequest{Query: "q"})
	gen := s.generation()
	s.InvalidateCache()

	s.storeInCache(hash, gen, &types.SearchResponse{Total: 1})
	assert.Equal(t, 0, s.CacheLen())

	s.storeInCache(hash, s.generation(), &types.SearchResponse{Total: 1})
	assert.Equal(t, 1, s.CacheLen())
}

func TestSearch_Concurrent(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	seed(t, store,
		fixture{title: "alpha", body: "concurrent reads", createdAt: 1},
		fixture{title: "beta", body: "concurrent reads", createdAt: 2},
	)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				s.InvalidateCache()
			}
			resp, err := s.Search(ctx, SearchRequest{Query: "concurrent", Limit: 10})
			if err != nil {
				errs <- err
				return
			}
			if resp.Total != 2 {
				errs <- fmt.Errorf("expected 2 results, got %d", resp.Total)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
