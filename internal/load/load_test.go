package load

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gogitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/confexport/internal/config"
)

// newOriginRepo creates a bare repository seeded with one commit so it can
// be cloned.
func newOriginRepo(t *testing.T) string {
	t.Helper()
	origin := t.TempDir()
	_, err := git.PlainInit(origin, true)
	require.NoError(t, err)

	seed := t.TempDir()
	repo, err := git.PlainInit(seed, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(seed, "README.md"), []byte("# seed\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("seed", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gogitcfg.RemoteConfig{Name: "origin", URLs: []string{origin}})
	require.NoError(t, err)
	require.NoError(t, repo.Push(&git.PushOptions{RemoteName: "origin"}))
	return origin
}

func writeSrcTree(t *testing.T, files map[string]string) string {
	t.Helper()
	src := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(src, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return src
}

func verifyClone(t *testing.T, origin string) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainClone(dir, false, &git.CloneOptions{URL: origin})
	require.NoError(t, err)
	return dir
}

func TestRunPushesExportedTree(t *testing.T) {
	origin := newOriginRepo(t)
	src := writeSrcTree(t, map[string]string{
		"index.md":      "# Handbook\n",
		"FAQ.md":        "# FAQ\n",
		"Ops/index.md":  "# Ops\n",
		"Ops/images/_k": "bin",
	})

	loader := New(config.LoadConfig{URL: origin, Subdir: "docs", Workspace: t.TempDir()})
	res, err := loader.Run(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.Pushed)
	assert.NotEmpty(t, res.CommitHash)

	checkout := verifyClone(t, origin)
	data, err := os.ReadFile(filepath.Join(checkout, "docs", "index.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Handbook\n", string(data))
	_, err = os.Stat(filepath.Join(checkout, "docs", "Ops", "index.md"))
	require.NoError(t, err)
	// The seed file outside the subdir survives.
	_, err = os.Stat(filepath.Join(checkout, "README.md"))
	require.NoError(t, err)
}

func TestRunNoChangesIsNoop(t *testing.T) {
	origin := newOriginRepo(t)
	src := writeSrcTree(t, map[string]string{"index.md": "# Same\n"})
	ws := t.TempDir()

	loader := New(config.LoadConfig{URL: origin, Subdir: "docs", Workspace: ws})
	first, err := loader.Run(context.Background(), src)
	require.NoError(t, err)
	require.True(t, first.Pushed)

	second, err := New(config.LoadConfig{URL: origin, Subdir: "docs", Workspace: ws}).
		Run(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, second.Pushed)
	assert.Empty(t, second.CommitHash)
}

func TestRunRemovesDeletedFiles(t *testing.T) {
	origin := newOriginRepo(t)
	ws := t.TempDir()

	src1 := writeSrcTree(t, map[string]string{"index.md": "# v1\n", "Old.md": "# old\n"})
	_, err := New(config.LoadConfig{URL: origin, Subdir: "docs", Workspace: ws}).
		Run(context.Background(), src1)
	require.NoError(t, err)

	src2 := writeSrcTree(t, map[string]string{"index.md": "# v2\n"})
	res, err := New(config.LoadConfig{URL: origin, Subdir: "docs", Workspace: ws}).
		Run(context.Background(), src2)
	require.NoError(t, err)
	require.True(t, res.Pushed)

	checkout := verifyClone(t, origin)
	_, err = os.Stat(filepath.Join(checkout, "docs", "Old.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunCustomCommitMessage(t *testing.T) {
	origin := newOriginRepo(t)
	src := writeSrcTree(t, map[string]string{"index.md": "# msg\n"})

	loader := New(config.LoadConfig{
		URL:           origin,
		Subdir:        "docs",
		Workspace:     t.TempDir(),
		CommitMessage: "sync docs {date}",
	})
	res, err := loader.Run(context.Background(), src)
	require.NoError(t, err)

	repo, err := git.PlainOpen(res.RepoPath)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Contains(t, commit.Message, "sync docs ")
	assert.Contains(t, commit.Message, time.Now().Format("2006-01-02"))
}

func TestAuthMapping(t *testing.T) {
	l := New(config.LoadConfig{Auth: &config.AuthConfig{Type: "token", Token: "tok123"}})
	method, err := l.auth()
	require.NoError(t, err)
	basic, ok := method.(*githttp.BasicAuth)
	require.True(t, ok)
	assert.Equal(t, "token", basic.Username)
	assert.Equal(t, "tok123", basic.Password)

	l = New(config.LoadConfig{Auth: &config.AuthConfig{Type: "basic", Username: "u", Password: "p"}})
	method, err = l.auth()
	require.NoError(t, err)
	basic, ok = method.(*githttp.BasicAuth)
	require.True(t, ok)
	assert.Equal(t, "u", basic.Username)

	l = New(config.LoadConfig{Auth: &config.AuthConfig{Type: "token"}})
	_, err = l.auth()
	require.Error(t, err)

	l = New(config.LoadConfig{Auth: &config.AuthConfig{Type: "ssh"}})
	_, err = l.auth()
	require.Error(t, err)

	l = New(config.LoadConfig{})
	method, err = l.auth()
	require.NoError(t, err)
	assert.Nil(t, method)
}
