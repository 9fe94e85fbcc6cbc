package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mnshdw/squirrel-lsp/internal/sqlang"
)

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a script and report whether it produced any ERROR/MISSING nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("sq parse: %w", err)
			}
			tree := sqlang.Parse(string(data))
			if tree.Root.HasError() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: parsed with recoverable errors\n", path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: parsed cleanly\n", path)
			return nil
		},
	}
	return cmd
}
