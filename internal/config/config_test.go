package config

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/pocket-problem/internal/errors"
)

func TestNewManagerWithoutFileUsesDefaults(t *testing.T) {
	m := NewManager(memfs.New())
	assert.Equal(t, Default(), m.Config())
}

func TestLoadMergesOverDefaults(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, ConfigFile, []byte(`{
  "fonts": {"base_font_size": "14pt"},
  "margins": {"left": "1in"},
  "custom_commands": {"#question": "\\textbf{#TEXT#}"}
}`), 0644))

	cfg := NewManager(fs).Config()

	assert.Equal(t, "14pt", cfg.Fonts.BaseFontSize)
	assert.Equal(t, 0.8, cfg.Fonts.GlobalScale)
	assert.Equal(t, "1in", cfg.Margins.Left)
	assert.Equal(t, "0.75in", cfg.Margins.Top)
	assert.Equal(t, "Solution", cfg.Styling.SolutionHeading)

	cmd, ok := cfg.CustomCommand("question")
	require.True(t, ok)
	assert.Equal(t, `\textbf{#TEXT#}`, cmd)
}

func TestLoadCorruptedFile(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, ConfigFile, []byte(`{"fonts": `), 0644))

	m := NewManager(fs)
	assert.Equal(t, Default(), m.Config())

	err := m.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeFileCorrupted))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, ConfigFile, []byte(`{"fonts": {"global_scale": 0}}`), 0644))

	err := NewManager(fs).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeFileCorrupted))
}

func TestSaveAndReset(t *testing.T) {
	fs := memfs.New()
	m := NewManager(fs)

	cfg := m.Config()
	cfg.Spacing.LineSpacing = "2"
	cfg.CustomCommands["bullet"] = `\item[--] #TEXT#`
	require.NoError(t, m.Save(cfg))

	reloaded := NewManager(fs).Config()
	assert.Equal(t, "2", reloaded.Spacing.LineSpacing)
	assert.Equal(t, `\item[--] #TEXT#`, reloaded.CustomCommands["bullet"])

	require.NoError(t, m.Reset())
	assert.Equal(t, Default(), NewManager(fs).Config())
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	m := NewManager(memfs.New())
	cfg := m.Config()
	cfg.Fonts.BaseFontSize = "large"

	err := m.Save(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))
	assert.Equal(t, "12pt", m.Config().Fonts.BaseFontSize)
}

func TestConfigReturnsCopy(t *testing.T) {
	m := NewManager(memfs.New())
	cfg := m.Config()
	cfg.CustomCommands["title"] = "changed"

	_, ok := m.Config().CustomCommand("title")
	assert.False(t, ok)
}

func TestBaseFontPoints(t *testing.T) {
	tests := map[string]float64{"12pt": 12, "10": 10, " 17pt ": 17, "huge": 12, "": 12}
	for in, want := range tests {
		cfg := Default()
		cfg.Fonts.BaseFontSize = in
		assert.Equal(t, want, cfg.BaseFontPoints(), in)
	}
}

func TestLibraryDirFromEnv(t *testing.T) {
	t.Setenv(EnvLibraryDir, "/tmp/problems")
	dir, err := LibraryDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/problems", dir)
}
