package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/pinup/internal/indexer"
	"github.com/dshills/pinup/internal/library"
	"github.com/dshills/pinup/internal/searcher"
	"github.com/dshills/pinup/internal/storage"
	"github.com/dshills/pinup/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound           = -32001 // Snippet, tag or collection does not exist
	ErrorCodeIndexingInProgress = -32002 // Another reindex is already running
	ErrorCodeEmptyBody          = -32004 // Snippet body is empty
)

// defaultSource labels snippets created through the tool surface
const defaultSource = "mcp"

// handleSearchSnippets handles the search_snippets tool invocation
func (s *Server) handleSearchSnippets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or not a string",
		})
	}

	limit, offset, err := s.pagination(args)
	if err != nil {
		return nil, err
	}

	sort, err := types.ParseSortMode(getStringDefault(args, "sort", ""))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid sort", map[string]interface{}{
			"param":   "sort",
			"value":   args["sort"],
			"allowed": []string{"relevance", "newest", "pinned"},
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:  query,
		Limit:  limit,
		Offset: offset,
		Sort:   sort,
	})
	if err != nil {
		return nil, s.toMCPError("search failed", err)
	}

	return mcp.NewToolResultText(formatJSON(resp)), nil
}

// handleGetSnippet handles the get_snippet tool invocation
func (s *Server) handleGetSnippet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	id, ok := args["id"].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or empty",
		})
	}

	snippet, err := s.library.GetSnippet(ctx, id)
	if err != nil {
		return nil, s.toMCPError("failed to get snippet", err)
	}
	return mcp.NewToolResultText(formatJSON(snippetJSON(snippet))), nil
}

// handleListSnippets handles the list_snippets tool invocation
func (s *Server) handleListSnippets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	limit, offset, err := s.pagination(args)
	if err != nil {
		return nil, err
	}

	page, err := s.library.ListSnippets(ctx, library.ListOptions{
		Tag:             getStringDefault(args, "tag", ""),
		Collection:      getStringDefault(args, "collection", ""),
		IncludeArchived: getBoolDefault(args, "include_archived", false),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		return nil, s.toMCPError("failed to list snippets", err)
	}

	items := make([]map[string]interface{}, 0, len(page.Snippets))
	for _, sn := range page.Snippets {
		item := snippetJSON(sn)
		delete(item, "body")
		item["preview"] = searcher.Preview(sn.Body)
		items = append(items, item)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"total":    page.Total,
		"limit":    limit,
		"offset":   offset,
		"snippets": items,
	})), nil
}

// handleCreateSnippet handles the create_snippet tool invocation
func (s *Server) handleCreateSnippet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	body, _ := args["body"].(string)
	if strings.TrimSpace(body) == "" {
		return nil, newMCPError(ErrorCodeEmptyBody, "body parameter is required and cannot be empty", map[string]interface{}{
			"param":  "body",
			"reason": "missing or empty",
		})
	}

	tags, err := getStringSlice(args, "tags")
	if err != nil {
		return nil, err
	}
	collections, err := getStringSlice(args, "collections")
	if err != nil {
		return nil, err
	}

	snippet, err := s.library.CreateSnippet(ctx, library.CreateSnippetInput{
		Title:       getStringDefault(args, "title", ""),
		Body:        body,
		Language:    optionalString(args, "language"),
		Source:      types.StringPtr(getStringDefault(args, "source", defaultSource)),
		SourceURL:   optionalString(args, "source_url"),
		Tags:        tags,
		Collections: collections,
	})
	if err != nil {
		return nil, s.toMCPError("failed to create snippet", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"id":          snippet.ID,
		"title":       snippet.Title,
		"tags":        snippet.Tags,
		"collections": snippet.Collections,
		"created_at":  snippet.CreatedAt,
	})), nil
}

// handleListTags handles the list_tags tool invocation
func (s *Server) handleListTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.library.ListTags(ctx)
	if err != nil {
		return nil, s.toMCPError("failed to list tags", err)
	}

	items := make([]map[string]interface{}, 0, len(tags))
	for _, t := range tags {
		items = append(items, map[string]interface{}{
			"id":            t.ID,
			"name":          t.Name,
			"color":         t.Color,
			"snippet_count": t.SnippetCount,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"tags": items})), nil
}

// handleListCollections handles the list_collections tool invocation
func (s *Server) handleListCollections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collections, err := s.library.ListCollections(ctx)
	if err != nil {
		return nil, s.toMCPError("failed to list collections", err)
	}

	items := make([]map[string]interface{}, 0, len(collections))
	for _, c := range collections {
		items = append(items, map[string]interface{}{
			"id":            c.ID,
			"name":          c.Name,
			"description":   c.Description,
			"icon":          c.Icon,
			"color":         c.Color,
			"snippet_count": c.SnippetCount,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"collections": items})), nil
}

// handleReindex handles the reindex tool invocation
func (s *Server) handleReindex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.library.Reindex(ctx)
	if err != nil {
		return nil, s.toMCPError("reindex failed", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"reindexed":        true,
		"entries_cleared":  stats.EntriesCleared,
		"snippets_indexed": stats.SnippetsIndexed,
		"duration_ms":      stats.Duration.Milliseconds(),
	})), nil
}

// handleGetStats handles the get_stats tool invocation
func (s *Server) handleGetStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.library.Stats(ctx)
	if err != nil {
		return nil, s.toMCPError("failed to get stats", err)
	}
	return mcp.NewToolResultText(formatJSON(stats)), nil
}

// Helper functions

// pagination reads and bounds the limit and offset parameters
func (s *Server) pagination(args map[string]interface{}) (int, int, error) {
	limit := getIntDefault(args, "limit", s.defaultLimit)
	if limit < 1 || limit > s.maxLimit {
		return 0, 0, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", s.maxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	offset := getIntDefault(args, "offset", 0)
	if offset < 0 {
		return 0, 0, newMCPError(ErrorCodeInvalidParams, "offset must be >= 0", map[string]interface{}{
			"param": "offset",
			"value": offset,
		})
	}
	return limit, offset, nil
}

// toMCPError maps domain errors to MCP error codes. Unexpected errors are
// logged before being returned as internal errors.
func (s *Server) toMCPError(message string, err error) error {
	data := map[string]interface{}{"error": err.Error()}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, "not found", data)
	case errors.Is(err, indexer.ErrIndexingInProgress):
		return newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", data)
	case errors.Is(err, types.ErrEmptyBody):
		return newMCPError(ErrorCodeEmptyBody, "body cannot be empty", data)
	case errors.Is(err, types.ErrInvalidLimit),
		errors.Is(err, types.ErrInvalidOffset),
		errors.Is(err, types.ErrInvalidSort),
		errors.Is(err, types.ErrEmptyName),
		errors.Is(err, types.ErrEmptyTitle),
		errors.Is(err, storage.ErrAlreadyExists):
		return newMCPError(ErrorCodeInvalidParams, message, data)
	}

	s.logger.Error(message, "error", err)
	return newMCPError(ErrorCodeInternalError, message, data)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// arguments returns the tool arguments, treating absent arguments as empty
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

func snippetJSON(sn *types.Snippet) map[string]interface{} {
	return map[string]interface{}{
		"id":           sn.ID,
		"title":        sn.Title,
		"body":         sn.Body,
		"language":     sn.Language,
		"source":       sn.Source,
		"source_url":   sn.SourceURL,
		"pinned":       sn.Pinned,
		"archived":     sn.Archived,
		"content_hash": sn.ContentHash,
		"tags":         sn.Tags,
		"collections":  sn.Collections,
		"created_at":   sn.CreatedAt,
		"updated_at":   sn.UpdatedAt,
	}
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

func optionalString(args map[string]interface{}, key string) *string {
	if val, ok := args[key].(string); ok && strings.TrimSpace(val) != "" {
		return &val
	}
	return nil
}

// getStringSlice extracts an optional array of strings
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, newMCPError(ErrorCodeInvalidParams, key+" must be an array of strings", map[string]interface{}{
					"param": key,
				})
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, key+" must be an array of strings", map[string]interface{}{
			"param": key,
		})
	}
}
