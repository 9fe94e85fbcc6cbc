package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mnshdw/squirrel-lsp/internal/format"
)

func newFormatCmd() *cobra.Command {
	var useTabs bool
	var spaceWidth int
	var maxWidth int
	var inPlace bool
	var output string

	cmd := &cobra.Command{
		Use:   "format <file>",
		Short: "Pretty-print a script in the project's house style",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("sq format: %w", err)
			}

			opts := format.DefaultOptions()
			if cmd.Flags().Changed("spaces") {
				opts.IndentStyle = format.IndentSpaces
				opts.SpaceWidth = spaceWidth
			} else if useTabs {
				opts.IndentStyle = format.IndentTabs
			}
			if maxWidth > 0 {
				opts.MaxLineWidth = maxWidth
			}

			formatted := format.Format(string(data), opts)

			switch {
			case inPlace:
				return os.WriteFile(path, []byte(formatted), 0o644)
			case output != "":
				return os.WriteFile(output, []byte(formatted), 0o644)
			default:
				_, err := fmt.Fprint(cmd.OutOrStdout(), formatted)
				return err
			}
		},
	}

	cmd.Flags().BoolVar(&useTabs, "tabs", true, "indent with tabs (default)")
	cmd.Flags().IntVar(&spaceWidth, "spaces", 4, "indent with this many spaces instead of tabs")
	cmd.Flags().IntVar(&maxWidth, "max-width", 0, "line width before arrays/conditions break (0 = default 100)")
	cmd.Flags().BoolVar(&inPlace, "in-place", false, "rewrite the file instead of printing to stdout")
	cmd.Flags().StringVar(&output, "output", "", "write formatted output to this path instead of stdout")
	return cmd
}
