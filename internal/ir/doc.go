// Package ir models parsed source code as a tree of symbols.
//
// A Project owns Files; each File owns its source bytes, a synthetic
// root symbol spanning the whole file, and an insertion-ordered symbol
// table keyed by qualified id (scope + name). Symbols reference their
// source by byte range, so extracting a symbol's text or its signature
// (text without body) is a pure slice over immutable bytes.
//
// The tree is produced once by an external parser and never structurally
// mutated afterwards. The only later write is the one-time Embedding
// assignment performed during index construction.
package ir
