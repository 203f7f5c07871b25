package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitCmd(t *testing.T) {
	prev := configPath
	configPath = filepath.Join(t.TempDir(), "custmatch.yaml")
	t.Cleanup(func() { configPath = prev })

	cmd := newConfigInitCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Wrote default configuration")
	_, err := os.Stat(configPath)
	assert.NoError(t, err)

	// A second init without --force refuses to overwrite.
	again := newConfigInitCmd()
	again.SetOut(&bytes.Buffer{})
	again.SetArgs([]string{})
	assert.Error(t, again.Execute())
}

func TestConfigInitCmd_RequiresPath(t *testing.T) {
	prev := configPath
	configPath = ""
	t.Cleanup(func() { configPath = prev })

	cmd := newConfigInitCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}

func TestConfigShowCmd(t *testing.T) {
	setupTestWorkspace(t)

	cmd := newConfigShowCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "identifier:")
	assert.Contains(t, buf.String(), "fuzzy:")
	assert.Contains(t, buf.String(), "tolerance: 2")
}
