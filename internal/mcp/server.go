package mcp

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"semidx/internal/embedder"
	"semidx/internal/index"
	"semidx/internal/parser"
	"semidx/internal/tokenizer"
)

const (
	// ServerName is the MCP server name
	ServerName = "semidx"
	// ServerVersion is the current server version
	ServerVersion = "0.1.0"
)

// Server wraps the MCP server with application dependencies. Loaded
// indexes are cached per project so repeated searches skip
// deserialization.
type Server struct {
	mcp    *server.MCPServer
	client embedder.Client
	tok    tokenizer.Tokenizer
	parser *parser.Parser

	mu      sync.Mutex
	indexes map[string]*index.Index
}

// NewServer creates a new MCP server instance sharing one embedding
// client between indexing and search, so query-time embeddings hit the
// same cache chain.
func NewServer(client embedder.Client, tok tokenizer.Tokenizer) *Server {
	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion),
		client:  client,
		tok:     tok,
		parser:  parser.New(),
		indexes: make(map[string]*index.Index),
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until stdin closes or
// ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.client.Close() }()
	return s.serveIO(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serveIO(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexProjectTool(), s.handleIndexProject)
	s.mcp.AddTool(searchSymbolsTool(), s.handleSearchSymbols)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)
}

// cachedIndex returns the loaded index for a project root, loading it
// from disk on first use.
func (s *Server) cachedIndex(root string) (*index.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ix, ok := s.indexes[root]; ok {
		return ix, nil
	}
	ix, err := index.LoadFile(index.DefaultPath(root))
	if err != nil {
		return nil, err
	}
	s.indexes[root] = ix
	return ix, nil
}

// storeIndex replaces the cached index for a project root.
func (s *Server) storeIndex(root string, ix *index.Index) {
	s.mu.Lock()
	s.indexes[root] = ix
	s.mu.Unlock()
}
