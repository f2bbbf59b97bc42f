package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pinup/pkg/types"
)

func TestBuildMatchExpression(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"single word", "docker", `"docker"`},
		{"words are and-ed", "retry backoff", `"retry" "backoff"`},
		{"phrase kept", `"exact phrase" other`, `"exact phrase" "other"`},
		{"operators literal", "cats AND NOT dogs", `"cats" "AND" "NOT" "dogs"`},
		{"punctuation words dropped", "- ( ) ***", ""},
		{"prefix word", "conf*", `"conf"*`},
		{"prefix phrase", `"hello wor"*`, `"hello wor"*`},
		{"unbalanced quote", `say "hello world`, `"say" "hello" "world"`},
		{"embedded syntax", "foo:bar (baz)", `"foo:bar" "(baz)"`},
		{"unicode", "café naïve", `"café" "naïve"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildMatchExpression(tt.input))
		})
	}
}

func TestSearchPlan_NoValuesInterpolated(t *testing.T) {
	q := &types.ParsedQuery{
		Terms:       "x'; DROP TABLE snippets; --",
		Tags:        []string{"a'b"},
		Collections: []string{"c\"d"},
		Source:      types.StringPtr("s'"),
	}
	plan := newSearchPlan(q, false)
	query, args := plan.pageQuery(types.SortRelevance, 10, 0)

	assert.NotContains(t, query, "DROP TABLE")
	assert.NotContains(t, query, "a'b")
	assert.NotContains(t, query, "s'")
	assert.Len(t, args, 4+2) // match, tag, collection, source, limit, offset
}

func TestSearchPlan_RepeatedFiltersJoinOnce(t *testing.T) {
	q := &types.ParsedQuery{
		Tags:        []string{"go", "go", "cli"},
		Collections: []string{"Work", "work"},
	}
	plan := newSearchPlan(q, false)
	query, args := plan.countQuery()

	assert.Equal(t, 2, strings.Count(query, "JOIN snippet_tags"))
	assert.Equal(t, 1, strings.Count(query, "JOIN snippet_collections"))
	assert.Equal(t, []interface{}{"go", "cli", "Work"}, args)
}

// searchFixture creates a snippet with membership and an index row
type searchFixture struct {
	id          string
	title, body string
	createdAt   int64
	tags        []string
	collections []string
	source      string
	language    string
	pinned      bool
	archived    bool
}

func seed(t *testing.T, s *SQLiteStorage, fixtures ...searchFixture) {
	t.Helper()
	ctx := context.Background()
	for _, f := range fixtures {
		snippet := &types.Snippet{
			ID:        f.id,
			Title:     f.title,
			Body:      f.body,
			CreatedAt: f.createdAt,
			Pinned:    f.pinned,
			Archived:  f.archived,
		}
		if f.source != "" {
			snippet.Source = types.StringPtr(f.source)
		}
		if f.language != "" {
			snippet.Language = types.StringPtr(f.language)
		}
		require.NoError(t, s.CreateSnippet(ctx, snippet))

		var tagIDs, collIDs []string
		for _, name := range f.tags {
			tag := &types.Tag{Name: name}
			require.NoError(t, s.UpsertTag(ctx, tag))
			tagIDs = append(tagIDs, tag.ID)
		}
		for _, name := range f.collections {
			coll := &types.Collection{Name: name}
			require.NoError(t, s.UpsertCollection(ctx, coll))
			collIDs = append(collIDs, coll.ID)
		}
		require.NoError(t, s.SetSnippetTags(ctx, snippet.ID, tagIDs))
		require.NoError(t, s.SetSnippetCollections(ctx, snippet.ID, collIDs))

		doc, err := s.GetIndexDocument(ctx, snippet.ID)
		require.NoError(t, err)
		require.NoError(t, s.ReplaceIndexEntry(ctx, doc))
	}
}

func ids(page *SearchPage) []string {
	out := make([]string, len(page.Rows))
	for i, r := range page.Rows {
		out[i] = r.ID
	}
	return out
}

func search(t *testing.T, s *SQLiteStorage, q *types.ParsedQuery, opts SearchOptions) *SearchPage {
	t.Helper()
	if opts.Limit == 0 {
		opts.Limit = 50
	}
	page, err := s.SearchSnippets(context.Background(), q, opts)
	require.NoError(t, err)
	return page
}

func TestSearchSnippets_TagIntersection(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	seed(t, s,
		searchFixture{id: "ab", title: "both", body: "x", createdAt: 3, tags: []string{"a", "b"}},
		searchFixture{id: "a", title: "only a", body: "x", createdAt: 2, tags: []string{"a"}},
		searchFixture{id: "b", title: "only b", body: "x", createdAt: 1, tags: []string{"b"}},
		searchFixture{id: "abc", title: "three", body: "x", createdAt: 4, tags: []string{"a", "b", "c"}},
	)

	page := search(t, s, &types.ParsedQuery{Tags: []string{"a", "b"}}, SearchOptions{})
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, []string{"abc", "ab"}, ids(page))

	// Each snippet appears once even when it matches every listed tag
	page = search(t, s, &types.ParsedQuery{Tags: []string{"a", "b", "c"}}, SearchOptions{})
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, []string{"abc"}, ids(page))

	page = search(t, s, &types.ParsedQuery{Tags: []string{"a", "nonexistent"}}, SearchOptions{})
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Rows)
}

func TestSearchSnippets_CollectionsCaseInsensitive(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	seed(t, s,
		searchFixture{id: "w", title: "w", body: "x", createdAt: 1, collections: []string{"Work"}},
		searchFixture{id: "h", title: "h", body: "x", createdAt: 2, collections: []string{"Home"}},
	)

	page := search(t, s, &types.ParsedQuery{Collections: []string{"WORK"}}, SearchOptions{})
	assert.Equal(t, []string{"w"}, ids(page))
}

func TestSearchSnippets_ScalarFilters(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	seed(t, s,
		searchFixture{id: "1", title: "1", body: "x", createdAt: 1, source: "ChatGPT", language: "Python"},
		searchFixture{id: "2", title: "2", body: "x", createdAt: 2, source: "web", language: "go", pinned: true},
		searchFixture{id: "3", title: "3", body: "x", createdAt: 3},
	)

	page := search(t, s, &types.ParsedQuery{Source: types.StringPtr("chatgpt")}, SearchOptions{})
	assert.Equal(t, []string{"1"}, ids(page))

	page = search(t, s, &types.ParsedQuery{Language: types.StringPtr("python")}, SearchOptions{})
	assert.Equal(t, []string{"1"}, ids(page))

	page = search(t, s, &types.ParsedQuery{Pinned: types.BoolPtr(true)}, SearchOptions{})
	assert.Equal(t, []string{"2"}, ids(page))

	page = search(t, s, &types.ParsedQuery{Pinned: types.BoolPtr(false)}, SearchOptions{})
	assert.Equal(t, []string{"3", "1"}, ids(page))
}

func TestSearchSnippets_ArchivedDefaultExcluded(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	seed(t, s,
		searchFixture{id: "live", title: "kubernetes notes", body: "pods", createdAt: 1},
		searchFixture{id: "old", title: "kubernetes archive", body: "pods", createdAt: 2, archived: true},
	)

	page := search(t, s, &types.ParsedQuery{Terms: "kubernetes"}, SearchOptions{})
	assert.Equal(t, []string{"live"}, ids(page))

	page = search(t, s, &types.ParsedQuery{Archived: types.BoolPtr(true)}, SearchOptions{})
	assert.Equal(t, []string{"old"}, ids(page))

	page = search(t, s, &types.ParsedQuery{}, SearchOptions{IncludeArchived: true})
	assert.Equal(t, []string{"old", "live"}, ids(page))
}

func TestSearchSnippets_EmptyQueryMatchesAll(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	seed(t, s,
		searchFixture{id: "a", title: "a", body: "x", createdAt: 1},
		searchFixture{id: "b", title: "b", body: "x", createdAt: 2},
	)

	page := search(t, s, &types.ParsedQuery{}, SearchOptions{Sort: types.SortRelevance})
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, []string{"b", "a"}, ids(page))

	// punctuation only behaves like no text
	page = search(t, s, &types.ParsedQuery{Terms: "---"}, SearchOptions{})
	assert.Equal(t, 2, page.Total)
}

func TestSearchSnippets_SortModes(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	seed(t, s,
		searchFixture{id: "a", title: "alpha", body: "x", createdAt: 1},
		searchFixture{id: "b", title: "beta", body: "x", createdAt: 3, pinned: true},
		searchFixture{id: "c", title: "gamma", body: "x", createdAt: 2},
	)

	page := search(t, s, &types.ParsedQuery{}, SearchOptions{Sort: types.SortNewest})
	assert.Equal(t, []string{"b", "c", "a"}, ids(page))

	page = search(t, s, &types.ParsedQuery{}, SearchOptions{Sort: types.SortPinned})
	assert.Equal(t, "b", ids(page)[0])
}

func TestSearchSnippets_RelevanceRanksTitleMatchesFirst(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	seed(t, s,
		searchFixture{id: "body", title: "misc", body: "some words about docker here and there", createdAt: 5},
		searchFixture{id: "title", title: "docker", body: "compose file", createdAt: 1},
		searchFixture{id: "none", title: "nothing", body: "unrelated", createdAt: 9},
	)

	page := search(t, s, &types.ParsedQuery{Terms: "docker"}, SearchOptions{Sort: types.SortRelevance})
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, []string{"title", "body"}, ids(page))

	// newest ignores the score
	page = search(t, s, &types.ParsedQuery{Terms: "docker"}, SearchOptions{Sort: types.SortNewest})
	assert.Equal(t, []string{"body", "title"}, ids(page))
}

func TestSearchSnippets_MatchesTagAndCollectionText(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	seed(t, s,
		searchFixture{id: "t", title: "a", body: "x", createdAt: 1, tags: []string{"kubernetes"}},
		searchFixture{id: "c", title: "b", body: "x", createdAt: 2, collections: []string{"Kubernetes Notes"}},
	)

	page := search(t, s, &types.ParsedQuery{Terms: "kubernetes"}, SearchOptions{})
	assert.ElementsMatch(t, []string{"t", "c"}, ids(page))
}

func TestSearchSnippets_PhraseQuery(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	seed(t, s,
		searchFixture{id: "exact", title: "t", body: "exponential backoff with jitter", createdAt: 1},
		searchFixture{id: "split", title: "t", body: "backoff that is exponential", createdAt: 2},
	)

	page := search(t, s, &types.ParsedQuery{Terms: `"exponential backoff"`}, SearchOptions{})
	assert.Equal(t, []string{"exact"}, ids(page))

	page = search(t, s, &types.ParsedQuery{Terms: "exponential backoff"}, SearchOptions{})
	assert.Equal(t, 2, page.Total)
}

func TestSearchSnippets_PaginationStable(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	// identical timestamps force the id tie-break
	var fixtures []searchFixture
	for _, id := range []string{"e", "b", "g", "a", "f", "c", "d"} {
		fixtures = append(fixtures, searchFixture{id: id, title: "same", body: "same words", createdAt: 100})
	}
	seed(t, s, fixtures...)

	for _, sort := range []types.SortMode{types.SortRelevance, types.SortNewest, types.SortPinned} {
		for _, q := range []*types.ParsedQuery{{}, {Terms: "same"}} {
			full := search(t, s, q, SearchOptions{Sort: sort, Limit: 100})
			require.Equal(t, 7, full.Total)

			var paged []string
			for offset := 0; offset < full.Total; offset += 3 {
				page := search(t, s, q, SearchOptions{Sort: sort, Limit: 3, Offset: offset})
				assert.Equal(t, 7, page.Total)
				paged = append(paged, ids(page)...)
			}
			assert.Equal(t, ids(full), paged, "sort=%s terms=%q", sort, q.Terms)

			again := search(t, s, q, SearchOptions{Sort: sort, Limit: 100})
			assert.Equal(t, ids(full), ids(again))
		}
	}
}

func TestSearchSnippets_OffsetPastEnd(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	seed(t, s, searchFixture{id: "a", title: "a", body: "x", createdAt: 1})

	page := search(t, s, &types.ParsedQuery{}, SearchOptions{Limit: 10, Offset: 5})
	assert.Equal(t, 1, page.Total)
	assert.Empty(t, page.Rows)
}

func TestSearchSnippets_CanceledContext(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SearchSnippets(ctx, &types.ParsedQuery{}, SearchOptions{Limit: 10})
	assert.Error(t, err)
}
