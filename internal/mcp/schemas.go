package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func limitProperty(defaultLimit, maxLimit int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Maximum number of results to return",
		"default":     defaultLimit,
		"minimum":     1,
		"maximum":     maxLimit,
	}
}

var offsetProperty = map[string]interface{}{
	"type":        "integer",
	"description": "Number of results to skip",
	"default":     0,
	"minimum":     0,
}

// searchSnippetsTool returns the tool definition for search_snippets
func searchSnippetsTool(defaultLimit, maxLimit int) mcp.Tool {
	return mcp.Tool{
		Name: "search_snippets",
		Description: "Full-text search over the snippet library. Supports filters inside the query: " +
			"tag:<name> (repeatable, all must match), collection:<name>, source:<name>, language:<name>, " +
			"pinned:true|false, archived:true|false. Quote words to search for an exact phrase.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": `Search query, e.g. "retry backoff tag:go language:go"`,
				},
				"limit":  limitProperty(defaultLimit, maxLimit),
				"offset": offsetProperty,
				"sort": map[string]interface{}{
					"type":        "string",
					"description": "Result ordering",
					"enum":        []string{"relevance", "newest", "pinned"},
					"default":     "relevance",
				},
			},
			Required: []string{"query"},
		},
	}
}

// getSnippetTool returns the tool definition for get_snippet
func getSnippetTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_snippet",
		Description: "Get the full content of a snippet by ID",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Snippet ID",
				},
			},
			Required: []string{"id"},
		},
	}
}

// listSnippetsTool returns the tool definition for list_snippets
func listSnippetsTool(defaultLimit, maxLimit int) mcp.Tool {
	return mcp.Tool{
		Name:        "list_snippets",
		Description: "List snippets newest first, optionally restricted to one tag or collection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit":  limitProperty(defaultLimit, maxLimit),
				"offset": offsetProperty,
				"tag": map[string]interface{}{
					"type":        "string",
					"description": "Only snippets with this tag",
				},
				"collection": map[string]interface{}{
					"type":        "string",
					"description": "Only snippets in this collection",
				},
				"include_archived": map[string]interface{}{
					"type":        "boolean",
					"description": "Include archived snippets",
					"default":     false,
				},
			},
		},
	}
}

// createSnippetTool returns the tool definition for create_snippet
func createSnippetTool() mcp.Tool {
	stringArray := func(description string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "array",
			"description": description,
			"items":       map[string]interface{}{"type": "string"},
		}
	}

	return mcp.Tool{
		Name:        "create_snippet",
		Description: "Save a new snippet to the library",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"body": map[string]interface{}{
					"type":        "string",
					"description": "Snippet content",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Title; inferred from the first line of the body when omitted",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Language of the snippet, e.g. python",
				},
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Where the snippet came from",
					"default":     defaultSource,
				},
				"source_url": map[string]interface{}{
					"type":        "string",
					"description": "URL the snippet came from",
				},
				"tags":        stringArray("Tag names, created when missing"),
				"collections": stringArray("Collection names, created when missing"),
			},
			Required: []string{"body"},
		},
	}
}

// listTagsTool returns the tool definition for list_tags
func listTagsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_tags",
		Description: "List all tags with the number of snippets carrying each",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// listCollectionsTool returns the tool definition for list_collections
func listCollectionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_collections",
		Description: "List all collections with their snippet counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// reindexTool returns the tool definition for reindex
func reindexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reindex",
		Description: "Rebuild the full-text search index from stored snippets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatsTool returns the tool definition for get_stats
func getStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_stats",
		Description: "Summary counts for the snippet library and its search index",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
