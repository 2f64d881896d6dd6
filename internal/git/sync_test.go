package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "Test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
}

func commitCount(t *testing.T, gitDir string) int {
	t.Helper()
	out, err := exec.Command("git", "--git-dir", gitDir, "rev-list", "--count", "--all").Output()
	require.NoError(t, err)
	count, err := strconv.Atoi(strings.TrimSpace(string(out)))
	require.NoError(t, err)
	return count
}

func TestSyncDisabledWithoutRepository(t *testing.T) {
	requireGit(t)
	g := NewGitSync(t.TempDir())

	require.NoError(t, g.Initialize())
	assert.False(t, g.IsEnabled())
	assert.NoError(t, g.SyncChanges("ignored"))

	status, err := g.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "Git not initialized", status)
}

func TestSetupRepositoryAndSync(t *testing.T) {
	requireGit(t)

	remote := filepath.Join(t.TempDir(), "remote.git")
	require.NoError(t, exec.Command("git", "init", "--bare", remote).Run())

	library := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(library, "problems"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(library, "problems", "a.md"), []byte("---\nid: a\n---\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(library, ".pocket-problem", "cache"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(library, ".pocket-problem", "cache", "metadata.json"), []byte("{}"), 0644))

	g := NewGitSync(library)
	require.NoError(t, g.SetupRepository(remote))
	assert.True(t, g.IsEnabled())
	assert.Equal(t, 1, commitCount(t, remote))

	require.NoError(t, os.WriteFile(filepath.Join(library, "problems", "b.md"), []byte("---\nid: b\n---\n"), 0644))
	require.NoError(t, g.SyncChanges("Create problem: b"))
	assert.Equal(t, 2, commitCount(t, remote))

	// nothing changed, nothing committed
	require.NoError(t, g.SyncChanges("noop"))
	assert.Equal(t, 2, commitCount(t, remote))

	tracked, err := exec.Command("git", "-C", library, "ls-files").Output()
	require.NoError(t, err)
	assert.Contains(t, string(tracked), "problems/b.md")
	assert.NotContains(t, string(tracked), "metadata.json")

	status, err := g.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "In sync", status)

	// a second library instance picks up sync from the existing repository
	other := NewGitSync(library)
	require.NoError(t, other.Initialize())
	assert.True(t, other.IsEnabled())
}

func TestSetupRepositoryRequiresURL(t *testing.T) {
	assert.Error(t, NewGitSync(t.TempDir()).SetupRepository(""))
}
