// Package mcp exposes indexing and semantic search over the Model
// Context Protocol. Three tools are served on stdio: index_project
// (parse a source tree, build and persist its index), search_symbols
// (ranked similarity search against a persisted index), and
// index_status (persisted index statistics). Loaded indexes are cached
// per project root.
package mcp
