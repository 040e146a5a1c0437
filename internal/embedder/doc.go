// Package embedder turns text into dense vectors via pluggable
// providers. The remote OpenAI-compatible client truncates oversized
// inputs to the token budget and retries transient failures with
// bounded exponential backoff; an LRU plus an optional persistent
// store sit in front of any provider via CachedClient.
package embedder
