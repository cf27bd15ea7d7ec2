package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/confexport/internal/config"
)

func TestInitCmdWritesConfig(t *testing.T) {
	dir := t.TempDir()
	root := &CLI{Config: filepath.Join(dir, "confexport.yaml")}

	cmd := &InitCmd{}
	require.NoError(t, cmd.Run(&Global{}, root))

	data, err := os.ReadFile(root.Config)
	require.NoError(t, err)
	assert.Contains(t, string(data), "confluence:")

	// Second run without --force refuses to clobber.
	require.Error(t, cmd.Run(&Global{}, root))
	require.NoError(t, (&InitCmd{Force: true}).Run(&Global{}, root))
}

func TestInitCmdHonorsOutputDir(t *testing.T) {
	dir := t.TempDir()
	root := &CLI{Config: "ignored.yaml"}

	require.NoError(t, (&InitCmd{Output: dir}).Run(&Global{}, root))
	_, err := os.Stat(filepath.Join(dir, "confexport.yaml"))
	require.NoError(t, err)
}

func TestResolveOutputDir(t *testing.T) {
	cfg := &config.Config{Output: config.OutputConfig{Directory: "docs", BaseDirectory: "/srv"}}

	assert.Equal(t, "/tmp/override", ResolveOutputDir("/tmp/override", cfg))
	assert.Equal(t, filepath.Join("/srv", "docs"), ResolveOutputDir("", cfg))

	cfg.Output.BaseDirectory = ""
	assert.Equal(t, "docs", ResolveOutputDir("", cfg))
}

func TestExportCmdOverrides(t *testing.T) {
	cfg := &config.Config{
		Confluence: config.ConfluenceConfig{PageURL: "https://wiki.example.com/pages/1"},
		Output:     config.OutputConfig{Directory: "docs", BaseDirectory: "/srv"},
	}

	(&ExportCmd{Output: "/tmp/out", Clean: true, Page: "42"}).applyOverrides(cfg)

	assert.Equal(t, "/tmp/out", cfg.Output.Dir())
	assert.True(t, cfg.Output.Clean)
	assert.Equal(t, "42", cfg.Confluence.PageID)
	assert.Empty(t, cfg.Confluence.PageURL)
}
