package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"semidx/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve indexing and search tools over MCP on stdio",
	Long: `Start a Model Context Protocol server exposing the index_project,
search_symbols, and index_status tools on stdio. Logs go to stderr;
stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	server := mcp.NewServer(client, tok)
	logger.Info("MCP server ready, listening on stdio", "name", mcp.ServerName, "version", mcp.ServerVersion)

	if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}
