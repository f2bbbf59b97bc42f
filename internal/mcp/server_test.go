package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pinup/internal/indexer"
	"github.com/dshills/pinup/internal/library"
	"github.com/dshills/pinup/internal/searcher"
	"github.com/dshills/pinup/internal/storage"
	"github.com/dshills/pinup/pkg/types"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srch, err := searcher.New(store, nil)
	require.NoError(t, err)
	lib := library.New(store, indexer.New(store, nil), srch, nil)

	return NewServer(lib, srch, Options{DefaultLimit: 10, MaxLimit: 50})
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %T", err)
	assert.Equal(t, code, mcpErr.Code)
}

func createSnippet(t *testing.T, s *Server, args map[string]interface{}) string {
	t.Helper()
	result, err := s.handleCreateSnippet(context.Background(), callRequest("create_snippet", args))
	require.NoError(t, err)
	out := decodeResult(t, result)
	id, ok := out["id"].(string)
	require.True(t, ok)
	return id
}

func TestNewServer(t *testing.T) {
	s := setupTestServer(t)

	assert.NotNil(t, s.mcp)
	assert.Equal(t, 10, s.defaultLimit)
	assert.Equal(t, 50, s.maxLimit)
}

func TestNewServer_Defaults(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()
	srch, err := searcher.New(store, nil)
	require.NoError(t, err)

	s := NewServer(library.New(store, indexer.New(store, nil), srch, nil), srch, Options{})
	assert.Equal(t, searcher.DefaultLimit, s.defaultLimit)
	assert.Equal(t, searcher.MaxLimit, s.maxLimit)
}

func TestHandleCreateAndSearch(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	id := createSnippet(t, s, map[string]interface{}{
		"body":        "func pool(n int) {}\n// bounded worker pool",
		"title":       "Worker pool",
		"tags":        []interface{}{"Go", "concurrency"},
		"collections": []interface{}{"Snippets"},
	})

	result, err := s.handleSearchSnippets(ctx, callRequest("search_snippets", map[string]interface{}{
		"query": "tag:go worker",
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)

	assert.Equal(t, float64(1), out["total"])
	assert.Equal(t, float64(10), out["limit"])
	results := out["results"].([]interface{})
	require.Len(t, results, 1)
	item := results[0].(map[string]interface{})
	assert.Equal(t, id, item["id"])
	assert.Equal(t, "Worker pool", item["title"])
	assert.ElementsMatch(t, []interface{}{"go", "concurrency"}, item["tags"])
	assert.Equal(t, defaultSource, item["source"])
}

func TestHandleSearchSnippets_Validation(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing query", map[string]interface{}{}},
		{"query not string", map[string]interface{}{"query": 42}},
		{"limit zero", map[string]interface{}{"query": "x", "limit": float64(0)}},
		{"limit above max", map[string]interface{}{"query": "x", "limit": float64(51)}},
		{"negative offset", map[string]interface{}{"query": "x", "offset": float64(-1)}},
		{"unknown sort", map[string]interface{}{"query": "x", "sort": "oldest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleSearchSnippets(ctx, callRequest("search_snippets", tt.args))
			requireMCPError(t, err, ErrorCodeInvalidParams)
		})
	}
}

func TestHandleSearchSnippets_Pagination(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		createSnippet(t, s, map[string]interface{}{"body": fmt.Sprintf("note %d", i)})
	}

	seen := map[string]bool{}
	for offset := 0; offset < 5; offset += 2 {
		result, err := s.handleSearchSnippets(ctx, callRequest("search_snippets", map[string]interface{}{
			"query":  "",
			"sort":   "newest",
			"limit":  float64(2),
			"offset": float64(offset),
		}))
		require.NoError(t, err)
		out := decodeResult(t, result)
		assert.Equal(t, float64(5), out["total"])
		for _, r := range out["results"].([]interface{}) {
			id := r.(map[string]interface{})["id"].(string)
			assert.False(t, seen[id], "duplicate id %s across pages", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, 5)
}

func TestHandleGetSnippet(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	id := createSnippet(t, s, map[string]interface{}{
		"body":     "SELECT 1;",
		"language": "SQL",
	})

	result, err := s.handleGetSnippet(ctx, callRequest("get_snippet", map[string]interface{}{"id": id}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, "SELECT 1;", out["body"])
	assert.Equal(t, "sql", out["language"])
	assert.Equal(t, "SELECT 1;", out["title"])
	assert.Equal(t, types.ContentHash("SELECT 1;"), out["content_hash"])

	_, err = s.handleGetSnippet(ctx, callRequest("get_snippet", map[string]interface{}{"id": "missing"}))
	requireMCPError(t, err, ErrorCodeNotFound)

	_, err = s.handleGetSnippet(ctx, callRequest("get_snippet", map[string]interface{}{}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleCreateSnippet_EmptyBody(t *testing.T) {
	s := setupTestServer(t)

	_, err := s.handleCreateSnippet(context.Background(), callRequest("create_snippet", map[string]interface{}{
		"body": "   ",
	}))
	requireMCPError(t, err, ErrorCodeEmptyBody)
}

func TestHandleCreateSnippet_BadTags(t *testing.T) {
	s := setupTestServer(t)

	_, err := s.handleCreateSnippet(context.Background(), callRequest("create_snippet", map[string]interface{}{
		"body": "x",
		"tags": []interface{}{"ok", 7},
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleListSnippets(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	createSnippet(t, s, map[string]interface{}{"body": "alpha", "tags": []interface{}{"keep"}})
	createSnippet(t, s, map[string]interface{}{"body": "beta"})

	result, err := s.handleListSnippets(ctx, callRequest("list_snippets", map[string]interface{}{"tag": "keep"}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, float64(1), out["total"])
	items := out["snippets"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "alpha", item["preview"])
	assert.NotContains(t, item, "body")
}

func TestHandleListTagsAndCollections(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	createSnippet(t, s, map[string]interface{}{
		"body":        "a",
		"tags":        []interface{}{"go"},
		"collections": []interface{}{"Work"},
	})
	createSnippet(t, s, map[string]interface{}{"body": "b", "tags": []interface{}{"go"}})

	result, err := s.handleListTags(ctx, callRequest("list_tags", nil))
	require.NoError(t, err)
	tags := decodeResult(t, result)["tags"].([]interface{})
	require.Len(t, tags, 1)
	assert.Equal(t, "go", tags[0].(map[string]interface{})["name"])
	assert.Equal(t, float64(2), tags[0].(map[string]interface{})["snippet_count"])

	result, err = s.handleListCollections(ctx, callRequest("list_collections", nil))
	require.NoError(t, err)
	collections := decodeResult(t, result)["collections"].([]interface{})
	require.Len(t, collections, 1)
	assert.Equal(t, "Work", collections[0].(map[string]interface{})["name"])
}

func TestHandleReindexAndStats(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	createSnippet(t, s, map[string]interface{}{"body": "one"})
	createSnippet(t, s, map[string]interface{}{"body": "two"})

	result, err := s.handleReindex(ctx, callRequest("reindex", nil))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, true, out["reindexed"])
	assert.Equal(t, float64(2), out["entries_cleared"])
	assert.Equal(t, float64(2), out["snippets_indexed"])

	result, err = s.handleGetStats(ctx, callRequest("get_stats", nil))
	require.NoError(t, err)
	stats := decodeResult(t, result)
	assert.Equal(t, float64(2), stats["snippets"])
	assert.Equal(t, float64(2), stats["index_entries"])
	assert.Equal(t, false, stats["indexing"])
	assert.Contains(t, stats, "cached_searches")
}

func TestToMCPError(t *testing.T) {
	s := setupTestServer(t)

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", fmt.Errorf("get: %w", storage.ErrNotFound), ErrorCodeNotFound},
		{"indexing", indexer.ErrIndexingInProgress, ErrorCodeIndexingInProgress},
		{"empty body", types.ErrEmptyBody, ErrorCodeEmptyBody},
		{"invalid limit", fmt.Errorf("invalid search request: %w", types.ErrInvalidLimit), ErrorCodeInvalidParams},
		{"already exists", storage.ErrAlreadyExists, ErrorCodeInvalidParams},
		{"other", errors.New("disk on fire"), ErrorCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireMCPError(t, s.toMCPError("op failed", tt.err), tt.code)
		})
	}
}

func TestArguments(t *testing.T) {
	args, err := arguments(callRequest("x", nil))
	require.NoError(t, err)
	assert.Empty(t, args)

	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: "not a map"}}
	_, err = arguments(req)
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestGetStringSlice(t *testing.T) {
	got, err := getStringSlice(map[string]interface{}{"k": []interface{}{"a", "b"}}, "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = getStringSlice(map[string]interface{}{}, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = getStringSlice(map[string]interface{}{"k": "a"}, "k")
	requireMCPError(t, err, ErrorCodeInvalidParams)
}
