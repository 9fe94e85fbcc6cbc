package modanalyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnshdw/squirrel-lsp/internal/posmap"
	"github.com/mnshdw/squirrel-lsp/internal/sqlang"
	"github.com/mnshdw/squirrel-lsp/internal/workspace"
)

func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	w := workspace.New()
	require.NoError(t, w.IndexFile("/scripts/entity/tactical/actor.nut", `
actor <- inherit("scripts/entity/tactical/base", {
    function onDeath() {}
    function setFatigue(_f) {}
});
`))
	require.NoError(t, w.IndexFile("/scripts/entity/tactical/human.nut", `
human <- inherit("scripts/entity/tactical/actor", {
    function onTurnStart() {}
});
`))
	w.RebuildInheritanceGraph()
	return w
}

func analyzeSource(a *Analyzer, source string) []Diagnostic {
	tree := sqlang.Parse(source)
	mapper := posmap.New(source)
	return a.AnalyzeHooks(tree, mapper)
}

func TestValidHookNoErrors(t *testing.T) {
	w := newTestWorkspace(t)
	a := New(w, nil)
	code := `
::mods_hookExactClass("entity/tactical/actor", function(o) {
    local onDeath = o.onDeath;
});
`
	diags := analyzeSource(a, code)
	for _, d := range diags {
		assert.NotEqual(t, SeverityError, d.Severity)
	}
}

func TestInvalidHookPath(t *testing.T) {
	w := newTestWorkspace(t)
	a := New(w, nil)
	code := `
::mods_hookExactClass("entity/tactical/aktor", function(o) {
});
`
	diags := analyzeSource(a, code)
	require.NotEmpty(t, diags)
	assert.Contains(t, diags[0].Message, "not found")
	assert.Equal(t, SeverityError, diags[0].Severity)
}

func TestInvalidMethodName(t *testing.T) {
	w := newTestWorkspace(t)
	a := New(w, nil)
	code := `
::mods_hookExactClass("entity/tactical/actor", function(o) {
    local onDeth = o.onDeth;
});
`
	diags := analyzeSource(a, code)
	found := false
	for _, d := range diags {
		if d.Severity == SeverityError && strings.Contains(d.Message, "onDeth") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestHookTypeSuggestion(t *testing.T) {
	w := newTestWorkspace(t)
	a := New(w, nil)
	code := `
::mods_hookExactClass("entity/tactical/actor", function(o) {
});
`
	diags := analyzeSource(a, code)
	found := false
	for _, d := range diags {
		if d.Severity == SeverityWarning {
			assert.Contains(t, d.Message, "hookBaseClass")
			found = true
		}
	}
	assert.True(t, found)
}
