package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/mnshdw/squirrel-lsp/internal/lspserver"
)

func newLSPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Run the language server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := lspserver.NewServer(os.Stdin, os.Stdout, os.Stderr)
			return server.Serve(context.Background())
		},
	}
}
