package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"semidx/internal/index"
	"semidx/internal/parser"
)

var (
	indexKinds     []string
	indexMaxTokens int
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Build and persist a semantic index for a source tree",
	Long: `Parse every recognized source file under the given root (default
current directory), embed its symbols, and persist the index to
<root>/.semidx/index.bin.

Examples:
  semidx index                   # index the current directory
  semidx index ~/src/project
  semidx index --kinds Function,Class --max-tokens 2048 .`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringSliceVar(&indexKinds, "kinds", nil,
		"Symbol kinds to index (default Function,Class,Def,Section,Structure,Theorem)")
	indexCmd.Flags().IntVar(&indexMaxTokens, "max-tokens", 0,
		"Token budget per embedded document (default 8192)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	kinds, err := parseKinds(indexKinds)
	if err != nil {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	logger.Info("parsing project", "root", root)
	project, err := parser.New().ParseProject(root)
	if err != nil {
		return fmt.Errorf("parse project: %w", err)
	}

	symbols := 0
	for _, f := range project.Files() {
		symbols += len(f.Symbols())
	}
	logger.Info("building index",
		"files", len(project.Files()),
		"symbols", symbols,
		"model", client.Model(),
	)

	ix, err := index.Build(ctx, client, tok, project, index.Options{
		Kinds:     kinds,
		MaxTokens: indexMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	indexPath := index.DefaultPath(root)
	if err := ix.SaveFile(indexPath); err != nil {
		return err
	}

	logger.Info("index written",
		"path", indexPath,
		"entries", ix.Len(),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
