// Package parser produces IR symbol trees from source files. Go
// sources are parsed with go/ast into function, method, type, and
// value symbols carrying exact byte ranges; other recognized languages
// fall back to a file-root-only tree so projects still index at file
// granularity.
package parser
