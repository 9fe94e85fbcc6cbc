package workspace

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractScriptPath(t *testing.T) {
	assert.Equal(t, "statistics/statistics_manager", extractScriptPath("/path/to/scripts/statistics/statistics_manager.nut"))
	assert.Equal(t, "entity/tactical/actor", extractScriptPath("scripts/entity/tactical/actor.nut"))
	assert.Equal(t, "", extractScriptPath("/some/other/path.nut"))
}

func TestNormalizeScriptPath(t *testing.T) {
	assert.Equal(t, "entity/tactical/actor", normalize("scripts/entity/tactical/actor"))
	assert.Equal(t, "entity/tactical/actor", normalize("entity/tactical/actor.nut"))
	assert.Equal(t, "entity/tactical/actor", normalize("scripts/entity/tactical/actor.nut"))
}

func TestIndexGlobalTable(t *testing.T) {
	w := New()
	content := `
statistics_manager <-
{
    m = { Flags = null }

    function getFlags() { return m.Flags; }
    function onSerialize(_out) { m.Flags.onSerialize(_out); }
}
`
	require.NoError(t, w.IndexFile("/path/to/scripts/statistics/statistics_manager.nut", content))

	entry, ok := w.Get("statistics/statistics_manager")
	require.True(t, ok)
	assert.Equal(t, "statistics_manager", entry.Name)

	var names []string
	for _, m := range entry.Members {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, "getFlags")
	assert.Contains(t, names, "onSerialize")
}

func TestIndexClassWithInherit(t *testing.T) {
	w := New()
	actorContent := `
this.actor <- this.inherit("scripts/entity/tactical/base", {
    function onDeath() {}
    function setFatigue(_f) {}
});
`
	require.NoError(t, w.IndexFile("/path/to/scripts/entity/tactical/actor.nut", actorContent))

	humanContent := `
this.human <- this.inherit("scripts/entity/tactical/actor", {
    function onTurnStart() {}
});
`
	require.NoError(t, w.IndexFile("/path/to/scripts/entity/tactical/human.nut", humanContent))

	w.RebuildInheritanceGraph()

	human, ok := w.Get("entity/tactical/human")
	require.True(t, ok)
	assert.Equal(t, "entity/tactical/actor", human.Parent)

	actor, ok := w.Get("entity/tactical/actor")
	require.True(t, ok)
	assert.Contains(t, actor.Children, "entity/tactical/human")
}

func TestHasMethodWithInheritance(t *testing.T) {
	w := New()
	actorContent := `
this.actor <- this.inherit("scripts/entity/tactical/base", {
    function onDeath() {}
});
`
	require.NoError(t, w.IndexFile("/path/to/scripts/entity/tactical/actor.nut", actorContent))

	humanContent := `
this.human <- this.inherit("scripts/entity/tactical/actor", {
    function onTurnStart() {}
});
`
	require.NoError(t, w.IndexFile("/path/to/scripts/entity/tactical/human.nut", humanContent))

	w.RebuildInheritanceGraph()

	assert.True(t, w.HasMethod("entity/tactical/human", "onTurnStart"))
	assert.True(t, w.HasMethod("entity/tactical/human", "onDeath"))
	assert.True(t, w.HasMethod("entity/tactical/actor", "onDeath"))
	assert.False(t, w.HasMethod("entity/tactical/actor", "onTurnStart"))
}

func TestIndexMultilineGlobalTable(t *testing.T) {
	w := New()
	content := `/*
 * Comment header
 */

skill <-
{
    m =
    {
        ID = ""
    },

    function getContainer() {
        return m.Container;
    }
}
`
	require.NoError(t, w.IndexFile("/path/to/scripts/skills/skill.nut", content))

	entry, ok := w.Get("skills/skill")
	require.True(t, ok, "should index multiline global table 'skill'")
	assert.Equal(t, "skill", entry.Name)
}

func TestCircularInheritanceTerminates(t *testing.T) {
	w := New()
	require.NoError(t, w.IndexFile("/scripts/a.nut", `a <- inherit("scripts/b", { function onA() {} });`))
	require.NoError(t, w.IndexFile("/scripts/b.nut", `b <- inherit("scripts/a", { function onB() {} });`))
	w.RebuildInheritanceGraph()

	ancestors := w.GetAncestors("a")
	assert.LessOrEqual(t, len(ancestors), 2, "circular inheritance must not loop forever")
}

func TestFindSimilarPaths(t *testing.T) {
	w := New()
	require.NoError(t, w.IndexFile("/scripts/entity/tactical/actor.nut", `actor <- inherit("scripts/entity/tactical/base", { function onDeath() {} });`))
	require.NoError(t, w.IndexFile("/scripts/entity/tactical/human.nut", `human <- inherit("scripts/entity/tactical/actor", { function onTurnStart() {} });`))

	suggestions := w.FindSimilarPaths("entity/tactical/actr")
	assert.Contains(t, suggestions, "entity/tactical/actor")
}

func TestFileCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cachePath := dir + "/parse-cache.json.gz"
	content := `actor <- inherit("scripts/entity/tactical/base", { function onDeath() {} });`

	cache := LoadFileCache(cachePath)
	w := New()
	require.NoError(t, w.IndexFileCached("/scripts/entity/tactical/actor.nut", content, cache))
	require.NoError(t, cache.Save())

	entry, ok := w.Get("entity/tactical/actor")
	require.True(t, ok)

	reloaded := LoadFileCache(cachePath)
	require.NotEmpty(t, reloaded.Files, "saved cache should round-trip at least one entry")

	w2 := New()
	require.NoError(t, w2.IndexFileCached("/scripts/entity/tactical/actor.nut", content, reloaded))
	replayed, ok := w2.Get("entity/tactical/actor")
	require.True(t, ok)
	assert.Equal(t, entry.Name, replayed.Name)
	assert.Equal(t, entry.ParentPath, replayed.ParentPath)
	assert.Len(t, replayed.Members, len(entry.Members))
}

func TestFileCacheInvalidatesOnContentChange(t *testing.T) {
	dir := t.TempDir()
	cachePath := dir + "/parse-cache.json.gz"
	original := `actor <- inherit("scripts/entity/tactical/base", { function onDeath() {} });`
	changed := `actor <- inherit("scripts/entity/tactical/base", { function onDeath() {} function onSpawn() {} });`

	cache := LoadFileCache(cachePath)
	w := New()
	require.NoError(t, w.IndexFileCached("/scripts/entity/tactical/actor.nut", original, cache))
	require.NoError(t, cache.Save())

	reloaded := LoadFileCache(cachePath)
	w2 := New()
	require.NoError(t, w2.IndexFileCached("/scripts/entity/tactical/actor.nut", changed, reloaded))
	entry, ok := w2.Get("entity/tactical/actor")
	require.True(t, ok)
	assert.Len(t, entry.Members, 2, "changed content must be reparsed rather than served stale")
}

func TestFileCacheDiscardedWhenWrittenByDifferentBinary(t *testing.T) {
	dir := t.TempDir()
	cachePath := dir + "/parse-cache.json.gz"

	data, err := json.Marshal(&FileCache{
		ToolChecksum: "not-the-real-checksum",
		Files: map[string]cachedEntry{
			"/scripts/entity/tactical/actor.nut": {ContentHash: "deadbeef"},
		},
	})
	require.NoError(t, err)
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(cachePath, buf.Bytes(), 0o644))

	cache := LoadFileCache(cachePath)
	assert.Empty(t, cache.Files, "a cache stamped by a different binary must be discarded")
}
