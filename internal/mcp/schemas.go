package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"semidx/internal/ir"
)

func kindNameStrings() []string {
	names := ir.KindNames()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

// indexProjectTool returns the tool definition for index_project
func indexProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_project",
		Description: "Build and persist a semantic search index for a source tree",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
				"kinds": map[string]interface{}{
					"type":        "array",
					"description": "Symbol kinds to index (defaults to Function, Class, Def, Section, Structure, Theorem)",
					"items": map[string]interface{}{
						"type": "string",
						"enum": kindNameStrings(),
					},
				},
				"max_tokens": map[string]interface{}{
					"type":        "integer",
					"description": "Token budget per embedded document; larger symbols are decomposed",
					"minimum":     1,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchSymbolsTool returns the tool definition for search_symbols
func searchSymbolsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_symbols",
		Description: "Search an indexed project for symbols semantically similar to a query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to an indexed project root",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language or code query text",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     5,
					"minimum":     1,
					"maximum":     100,
				},
				"kinds": map[string]interface{}{
					"type":        "array",
					"description": "Symbol kinds eligible as results (defaults to Function)",
					"items": map[string]interface{}{
						"type": "string",
						"enum": kindNameStrings(),
					},
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// indexStatusTool returns the tool definition for index_status
func indexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_status",
		Description: "Report whether a project has a persisted index and its statistics",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
			},
			Required: []string{"path"},
		},
	}
}
