package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnshdw/squirrel-lsp/internal/cst"
	"github.com/mnshdw/squirrel-lsp/internal/sqlang"
)

func newASTCmd() *cobra.Command {
	var withText bool
	cmd := &cobra.Command{
		Use:   "ast <file>",
		Short: "Print a script's concrete syntax tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("sq ast: %w", err)
			}
			tree := sqlang.Parse(string(data))
			printNode(cmd.OutOrStdout(), tree.Root, tree.Source, 0, withText)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withText, "text", false, "include each leaf node's source text")
	return cmd
}

func printNode(w io.Writer, n *cst.Node, source string, depth int, withText bool) {
	indent := strings.Repeat("  ", depth)
	label := n.Kind
	if !n.IsNamed {
		label = fmt.Sprintf("%q", n.Kind)
	}
	line := fmt.Sprintf("%s%s [%d..%d]", indent, label, n.StartByte, n.EndByte)
	if withText && len(n.Children) == 0 {
		line += fmt.Sprintf(" %q", n.Text(source))
	}
	fmt.Fprintln(w, line)
	for _, c := range n.Children {
		printNode(w, c, source, depth+1, withText)
	}
}
