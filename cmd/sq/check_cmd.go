package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mnshdw/squirrel-lsp/internal/modanalyzer"
	"github.com/mnshdw/squirrel-lsp/internal/posmap"
	"github.com/mnshdw/squirrel-lsp/internal/resolver"
	"github.com/mnshdw/squirrel-lsp/internal/sqlang"
	"github.com/mnshdw/squirrel-lsp/internal/workspace"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Run the resolver and mod analyzer against a single script and print diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("sq check: %w", err)
			}
			source := string(data)

			ws := workspace.New()
			if err := ws.IndexFile(path, source); err != nil {
				return fmt.Errorf("sq check: indexing %s: %w", path, err)
			}
			ws.RebuildInheritanceGraph()

			tree := sqlang.Parse(source)
			mapper := posmap.New(source)
			scriptPath := workspace.ScriptPathFromFilePath(path)

			globals := make(map[string]bool)
			for _, g := range ws.Globals() {
				globals[g] = true
			}

			count := 0
			for _, d := range resolver.Analyze(tree, globals) {
				count++
				printDiagnostic(cmd, path, d.Range, severityLabel(int(d.Severity)), d.Message)
			}

			analyzer := modanalyzer.New(ws, nil)
			for _, d := range analyzer.AnalyzeInheritance(scriptPath, mapper) {
				count++
				printDiagnostic(cmd, path, d.Range, severityLabel(int(d.Severity)), d.Message)
			}
			for _, d := range analyzer.AnalyzeHooks(tree, mapper) {
				count++
				printDiagnostic(cmd, path, d.Range, severityLabel(int(d.Severity)), d.Message)
			}

			if count > 0 {
				return fmt.Errorf("%d diagnostic(s) found", count)
			}
			return nil
		},
	}
	return cmd
}

func severityLabel(sev int) string {
	switch sev {
	case 1:
		return "error"
	case 2:
		return "warning"
	case 4:
		return "hint"
	default:
		return "info"
	}
}

func printDiagnostic(cmd *cobra.Command, path string, r posmap.Range, severity, message string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d: %s: %s\n",
		path, r.Start.Line+1, r.Start.Character+1, severity, message)
}
