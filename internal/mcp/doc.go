// Package mcp exposes the snippet library to AI assistants over the Model
// Context Protocol (MCP).
//
// The server speaks JSON-RPC 2.0 over stdio and registers these tools:
//   - search_snippets: run a query DSL search with sort and pagination
//   - get_snippet: fetch one snippet with its full body
//   - list_snippets: page through snippets, optionally by tag or collection
//   - create_snippet: store a new snippet and index it
//   - list_tags, list_collections: taxonomy with snippet counts
//   - reindex: rebuild the full-text index from relational state
//   - get_stats: library counts and recent activity
//
// # Basic Usage
//
// The server is started via the serve command:
//
//	pinup serve
//
// stdout is reserved for protocol messages; logs go to stderr.
//
// # Tool: search_snippets
//
//	Request:
//	{
//	  "name": "search_snippets",
//	  "arguments": {
//	    "query": "tag:go collection:Snippets \"worker pool\" pinned:true",
//	    "sort": "relevance",
//	    "limit": 20,
//	    "offset": 0
//	  }
//	}
//
//	Response:
//	{
//	  "query": "tag:go collection:Snippets \"worker pool\" pinned:true",
//	  "sort": "relevance",
//	  "limit": 20,
//	  "offset": 0,
//	  "total": 1,
//	  "results": [
//	    {
//	      "id": "6f1c...",
//	      "title": "Bounded worker pool",
//	      "preview": "func pool(n int) { ...",
//	      "tags": ["concurrency", "go"],
//	      "collections": ["Snippets"],
//	      "pinned": true,
//	      "archived": false
//	    }
//	  ]
//	}
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "pinup": {
//	      "command": "/usr/local/bin/pinup",
//	      "args": ["serve"]
//	    }
//	  }
//	}
//
// # Error Handling
//
// Handlers return *MCPError values which the framework encodes as JSON-RPC
// errors:
//   - -32602: Invalid params (missing arguments, bad limit or sort)
//   - -32603: Internal error (database failures)
//   - -32001: Snippet, tag or collection not found
//   - -32002: Indexing in progress
//   - -32004: Empty snippet body
package mcp
