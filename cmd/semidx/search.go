package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"semidx/internal/index"
)

var (
	searchRoot  string
	searchLimit int
	searchKinds []string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search a persisted index for similar symbols",
	Long: `Load the persisted index of a project and print the symbols most
similar to the query text, ranked by score.

Examples:
  semidx search "parse configuration file"
  semidx search --path ~/src/project --limit 10 "retry with backoff"
  semidx search --kinds Function,Structure "connection pool"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchRoot, "path", ".", "Project root holding the index")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum results to print (default 5)")
	searchCmd.Flags().StringSliceVar(&searchKinds, "kinds", nil, "Symbol kinds eligible as results (default Function)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	root, err := filepath.Abs(searchRoot)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	kinds, err := parseKinds(searchKinds)
	if err != nil {
		return err
	}

	ix, err := index.LoadFile(index.DefaultPath(root))
	if err != nil {
		var ve *index.VersionError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w; run 'semidx index %s' to rebuild", ve, root)
		}
		return err
	}

	tok, err := newTokenizer()
	if err != nil {
		return err
	}
	client, cleanup, err := newEmbeddingClient(tok)
	if err != nil {
		return err
	}
	defer cleanup()

	node, err := index.NewText(cmd.Context(), client, query)
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}

	results := ix.Search(index.Query{Node: node, Kinds: kinds, Limit: searchLimit})
	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}
	printResults(results)
	return nil
}

// printResults writes one aligned line per hit: score, file, qualified
// id, source range, and the symbol's signature line.
func printResults(results []index.Result) {
	fileWidth, idWidth := 0, 0
	for _, r := range results {
		if len(r.ID.Path) > fileWidth {
			fileWidth = len(r.ID.Path)
		}
		if len(r.ID.QualifiedID) > idWidth {
			idWidth = len(r.ID.QualifiedID)
		}
	}

	for _, r := range results {
		sig := string(r.Symbol.TextWithoutBody())
		if i := strings.IndexByte(sig, '\n'); i >= 0 {
			sig = sig[:i]
		}
		fmt.Printf("%.3f %-*s %-*s %s  %s\n",
			r.Score,
			fileWidth+1, r.ID.Path,
			idWidth+1, r.ID.QualifiedID,
			r.Symbol.Range,
			strings.TrimSpace(sig),
		)
	}
}
