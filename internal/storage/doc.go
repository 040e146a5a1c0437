// Package storage persists embedding vectors in SQLite so repeated
// index builds skip provider calls for unchanged documents. Vectors
// are stored as little-endian float32 blobs keyed by model and content
// hash.
package storage
