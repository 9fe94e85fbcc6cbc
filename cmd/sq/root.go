// Command sq is the CLI front end for the language tooling in
// internal/sqlang, internal/format, internal/resolver, internal/modanalyzer
// and internal/lspserver.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sq",
		Short:         "Tooling for the modding scripting language",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCheckCmd())
	root.AddCommand(newFormatCmd())
	root.AddCommand(newParseCmd())
	root.AddCommand(newASTCmd())
	root.AddCommand(newLSPCmd())
	return root
}
