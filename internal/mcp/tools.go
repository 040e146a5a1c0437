package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"semidx/internal/index"
	"semidx/internal/ir"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeNotIndexed      = -32001 // Project has no persisted index
	ErrorCodeVersionMismatch = -32002 // Persisted index format version differs
	ErrorCodeEmptyQuery      = -32003 // Query parameter is empty
)

// handleIndexProject handles the index_project tool invocation
func (s *Server) handleIndexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	root, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	kinds, err := kindsArg(args)
	if err != nil {
		return nil, err
	}
	maxTokens := getIntDefault(args, "max_tokens", 0)

	start := time.Now()
	project, err := s.parser.ParseProject(root)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "parsing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ix, err := index.Build(ctx, s.client, s.tok, project, index.Options{
		Kinds:     kinds,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	indexPath := index.DefaultPath(root)
	if err := ix.SaveFile(indexPath); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "saving index failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.storeIndex(root, ix)

	symbols := 0
	for _, f := range project.Files() {
		symbols += len(f.Symbols())
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"indexed":     true,
		"index_path":  indexPath,
		"files":       len(project.Files()),
		"symbols":     symbols,
		"entries":     ix.Len(),
		"duration_ms": time.Since(start).Milliseconds(),
	})), nil
}

// handleSearchSymbols handles the search_symbols tool invocation
func (s *Server) handleSearchSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	root, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	limit := getIntDefault(args, "limit", 0)
	if limit < 0 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	kinds, err := kindsArg(args)
	if err != nil {
		return nil, err
	}

	ix, err := s.loadIndex(root)
	if err != nil {
		return nil, err
	}

	node, err := index.NewText(ctx, s.client, query)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "embedding query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := ix.Search(index.Query{Node: node, Kinds: kinds, Limit: limit})
	items := make([]map[string]interface{}, len(results))
	for i, r := range results {
		items[i] = map[string]interface{}{
			"score":        r.Score,
			"file":         r.ID.Path,
			"qualified_id": r.ID.QualifiedID,
			"kind":         string(r.Symbol.Kind.Name()),
			"range":        r.Symbol.Range.String(),
			"snippet":      snippet(r.Symbol),
		}
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":   query,
		"results": items,
	})), nil
}

// handleIndexStatus handles the index_status tool invocation
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	root, err := pathArg(args)
	if err != nil {
		return nil, err
	}

	indexPath := index.DefaultPath(root)
	if _, statErr := os.Stat(indexPath); os.IsNotExist(statErr) {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"indexed": false,
			"path":    root,
			"message": "Project not indexed. Use the index_project tool first.",
		})), nil
	}

	ix, err := s.loadIndex(root)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"indexed":    true,
		"path":       root,
		"index_path": indexPath,
		"version":    ix.Version,
		"files":      len(ix.Project.Files()),
		"entries":    ix.Len(),
	})), nil
}

// loadIndex fetches the cached or persisted index, mapping load
// failures to MCP errors. A version mismatch is reported as such, never
// silently rebuilt.
func (s *Server) loadIndex(root string) (*index.Index, error) {
	ix, err := s.cachedIndex(root)
	if err == nil {
		return ix, nil
	}

	var ve *index.VersionError
	if errors.As(err, &ve) {
		return nil, newMCPError(ErrorCodeVersionMismatch, "persisted index version mismatch", map[string]interface{}{
			"have": ve.Got,
			"want": ve.Want,
		})
	}
	if os.IsNotExist(errors.Unwrap(err)) || os.IsNotExist(err) {
		return nil, newMCPError(ErrorCodeNotIndexed, "project not indexed", map[string]interface{}{
			"path": root,
		})
	}
	return nil, newMCPError(ErrorCodeInternalError, "loading index failed", map[string]interface{}{
		"error": err.Error(),
	})
}

// snippet returns the first line of a symbol's text, truncated.
func snippet(sym *ir.Symbol) string {
	text := string(sym.TextWithoutBody())
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	const maxLen = 120
	if len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	return text
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
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

// pathArg extracts and validates the required path argument.
func pathArg(args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return path, nil
}

// kindsArg extracts the optional kinds argument.
func kindsArg(args map[string]interface{}) ([]ir.KindName, error) {
	raw, ok := args["kinds"].([]interface{})
	if !ok {
		return nil, nil
	}
	kinds := make([]ir.KindName, 0, len(raw))
	for _, v := range raw {
		name, ok := v.(string)
		if !ok || !ir.ValidKindName(ir.KindName(name)) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid symbol kind", map[string]interface{}{
				"param": "kinds",
				"value": v,
			})
		}
		kinds = append(kinds, ir.KindName(name))
	}
	return kinds, nil
}

// validatePath checks that a path is an absolute, readable directory.
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
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

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
