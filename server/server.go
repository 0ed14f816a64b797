// Package server exposes the search engine as an MCP stdio tool server.
package server

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/pkeller/memsearch/search"
)

const (
	// ServerName is the MCP server name
	ServerName = "memsearchd"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// SearchEngine is the slice of the engine the server needs. Declared here so
// handlers can be tested against a fake.
type SearchEngine interface {
	Search(ctx context.Context, req search.Request) (*search.Page, error)
}

// Server wraps the MCP server with the search engine dependency.
type Server struct {
	mcp    *server.MCPServer
	engine SearchEngine
	logger zerolog.Logger
}

// NewServer creates an MCP server serving the memory_search tool.
func NewServer(engine SearchEngine, logger zerolog.Logger) *Server {
	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		engine: engine,
		logger: logger.With().Str("component", "mcpServer").Logger(),
	}
	s.mcp.AddTool(memorySearchTool(), s.handleMemorySearch)
	return s
}

// Serve starts the MCP server on stdio and blocks until ctx is cancelled or
// stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info().Str("server", ServerName).Str("version", ServerVersion).Msg("Serving MCP over stdio")
	return s.serve(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	err := server.NewStdioServer(s.mcp).Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
