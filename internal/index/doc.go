// Package index builds and queries a semantic search index over a
// parsed symbol tree. A build plans, per symbol, what text to embed
// (recursively decomposing symbols over the token budget into a
// signature summary plus nested symbols), fans the embedding requests
// out with bounded concurrency, and assembles a map from symbol
// identity to embedding. Searches evaluate a boolean tree of
// similarity nodes against the stored vectors and return ranked
// results. Indexes persist as zstd-compressed versioned blobs.
package index
