package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnshdw/squirrel-lsp/internal/posmap"
	"github.com/mnshdw/squirrel-lsp/internal/workspace"
)

func TestFindDefinitionThroughInherit(t *testing.T) {
	ws := workspace.New()
	require.NoError(t, ws.IndexFile("/scripts/entity/tactical/base.nut", `base <- {};`))

	text := `this.actor <- this.inherit("scripts/entity/tactical/base", {});`
	idx := 29 // inside the string literal
	mapper := posmap.New(text)
	pos := mapper.PositionAt(idx)

	def, ok := FindDefinition(text, pos, "entity/tactical/actor", ws)
	require.True(t, ok)
	assert.Equal(t, "/scripts/entity/tactical/base.nut", def.FilePath)
}

func TestFindDefinitionMethodCall(t *testing.T) {
	ws := workspace.New()
	require.NoError(t, ws.IndexFile("/scripts/entity/tactical/actor.nut", `
actor <- inherit("scripts/entity/tactical/base", {
    function onDeath() {}
});
`))
	ws.RebuildInheritanceGraph()

	text := `this.onDeath();`
	mapper := posmap.New(text)
	pos := mapper.PositionAt(6) // inside "onDeath"

	def, ok := FindDefinition(text, pos, "entity/tactical/actor", ws)
	require.True(t, ok)
	assert.Equal(t, "/scripts/entity/tactical/actor.nut", def.FilePath)
}

func TestDocumentSymbolsListsFunctionAndClass(t *testing.T) {
	text := `
actor <- inherit("scripts/entity/tactical/base", {
    function onDeath() {}
    function setFatigue(_f) {}
});

function standaloneHelper() {}
`
	symbols := DocumentSymbols(text)
	var names []string
	for _, s := range symbols {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "actor")
	assert.Contains(t, names, "standaloneHelper")

	for _, s := range symbols {
		if s.Name == "actor" {
			assert.Equal(t, KindClass, s.Kind)
			var childNames []string
			for _, c := range s.Children {
				childNames = append(childNames, c.Name)
			}
			assert.Contains(t, childNames, "onDeath")
			assert.Contains(t, childNames, "setFatigue")
		}
	}
}

func TestWorkspaceSymbolsRanksByNameMatch(t *testing.T) {
	ws := workspace.New()
	require.NoError(t, ws.IndexFile("/scripts/entity/tactical/actor.nut", `
actor <- inherit("scripts/entity/tactical/base", {
    function onDeath() {}
});
`))

	results := WorkspaceSymbols("ondeath", ws)
	require.NotEmpty(t, results)
	assert.Equal(t, "onDeath", results[0].Name)
}
