package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCmdPrintsToStdout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.nut")
	require.NoError(t, os.WriteFile(path, []byte("local x=1;"), 0o644))

	cmd := newFormatCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "local x = 1;")
}

func TestCheckCmdReportsUndeclared(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.nut")
	require.NoError(t, os.WriteFile(path, []byte("local x = undeclaredThing;"), 0o644))

	cmd := newCheckCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})
	err := cmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, out.String(), "Undeclared")
}
