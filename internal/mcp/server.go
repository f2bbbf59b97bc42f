package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/pinup/internal/library"
	"github.com/dshills/pinup/internal/searcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "pinup"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Options configures the tool surface
type Options struct {
	Version      string
	DefaultLimit int
	MaxLimit     int
	Logger       *slog.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	library  *library.Service
	searcher *searcher.Searcher

	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

// NewServer creates a new MCP server instance and registers its tools
func NewServer(lib *library.Service, srch *searcher.Searcher, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = ServerVersion
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = searcher.MaxLimit
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = min(searcher.DefaultLimit, opts.MaxLimit)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			opts.Version,
			server.WithToolCapabilities(false),
		),
		library:      lib,
		searcher:     srch,
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
		logger:       opts.Logger,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP protocol on stdio until ctx is canceled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchSnippetsTool(s.defaultLimit, s.maxLimit), s.handleSearchSnippets)
	s.mcp.AddTool(getSnippetTool(), s.handleGetSnippet)
	s.mcp.AddTool(listSnippetsTool(s.defaultLimit, s.maxLimit), s.handleListSnippets)
	s.mcp.AddTool(createSnippetTool(), s.handleCreateSnippet)
	s.mcp.AddTool(listTagsTool(), s.handleListTags)
	s.mcp.AddTool(listCollectionsTool(), s.handleListCollections)
	s.mcp.AddTool(reindexTool(), s.handleReindex)
	s.mcp.AddTool(getStatsTool(), s.handleGetStats)
}
