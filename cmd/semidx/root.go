package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"semidx/internal/embedder"
	"semidx/internal/ir"
	"semidx/internal/storage"
	"semidx/internal/tokenizer"
)

const version = "0.1.0"

// EnvCacheDB overrides the embedding cache database location.
const EnvCacheDB = "SEMIDX_CACHE_DB"

// logger writes to stderr; stdout is reserved for command output and,
// under serve, the MCP protocol.
var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

var rootCmd = &cobra.Command{
	Use:   "semidx",
	Short: "Semantic search over parsed source symbols",
	Long: `semidx builds a semantic search index over the symbols of a source
tree and answers ranked similarity queries against it. Oversized
symbols are decomposed under a token budget so their parts stay
searchable.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("semidx version {{.Version}}\n")
}

// newEmbeddingClient builds the configured embedding provider wrapped
// with the in-memory LRU and the persistent SQLite vector cache. The
// returned cleanup closes both.
func newEmbeddingClient(tok tokenizer.Tokenizer) (embedder.Client, func(), error) {
	client, err := embedder.FromEnv(tok)
	if err != nil {
		return nil, nil, err
	}

	cachePath := os.Getenv(EnvCacheDB)
	if cachePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cachePath = filepath.Join(home, ".semidx", "cache.db")
	}
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("create cache directory: %w", err)
	}

	store, err := storage.Open(cachePath)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("open embedding cache: %w", err)
	}

	cached := embedder.WithCache(client, embedder.NewCache(0), store)
	cleanup := func() {
		_ = store.Close()
		_ = client.Close()
	}
	return cached, cleanup, nil
}

// newTokenizer loads the shared token encoder.
func newTokenizer() (tokenizer.Tokenizer, error) {
	return tokenizer.NewTiktoken()
}

// parseKinds validates --kinds flag values.
func parseKinds(names []string) ([]ir.KindName, error) {
	kinds := make([]ir.KindName, 0, len(names))
	for _, name := range names {
		kind := ir.KindName(name)
		if !ir.ValidKindName(kind) {
			return nil, fmt.Errorf("unknown symbol kind %q", name)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
