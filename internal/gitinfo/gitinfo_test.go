package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func commit(t *testing.T, dir string, repo *git.Repository) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("shop\n"), 0644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Unix(0, 0)},
	})
	require.NoError(t, err)
}

func TestDetect_RemoteAndBranch(t *testing.T) {
	dir, repo := initRepo(t)
	commit(t, dir, repo)
	_, err := repo.CreateRemote(&config.RemoteConfig{
		Name: DefaultRemote,
		URLs: []string{"https://github.com/acme/shop.git"},
	})
	require.NoError(t, err)

	nested := filepath.Join(dir, "deploy", "ci")
	require.NoError(t, os.MkdirAll(nested, 0755))

	info, err := Detect(nested)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/shop.git", info.RemoteURL)
	assert.Equal(t, "master", info.Branch)
}

func TestDetect_UnbornBranchWithoutRemote(t *testing.T) {
	dir, _ := initRepo(t)

	info, err := Detect(dir)
	require.NoError(t, err)
	assert.Empty(t, info.RemoteURL)
	assert.Equal(t, "master", info.Branch)
}

func TestDetect_NotARepository(t *testing.T) {
	_, err := Detect(t.TempDir())
	assert.Error(t, err)
}

func TestDetect_ScpStyleRemote(t *testing.T) {
	dir, repo := initRepo(t)
	commit(t, dir, repo)
	_, err := repo.CreateRemote(&config.RemoteConfig{
		Name: DefaultRemote,
		URLs: []string{"git@github.com:acme/shop.git"},
	})
	require.NoError(t, err)

	info, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, "ssh://git@github.com/acme/shop.git", info.RemoteURL)
}

func TestNormalizeRemoteURL(t *testing.T) {
	tests := []struct {
		remote   string
		expected string
	}{
		{"git@github.com:acme/shop.git", "ssh://git@github.com/acme/shop.git"},
		{"github.com:acme/shop", "ssh://github.com/acme/shop"},
		{"https://github.com/acme/shop.git", "https://github.com/acme/shop.git"},
		{"ssh://git@github.com/acme/shop.git", "ssh://git@github.com/acme/shop.git"},
		{"/srv/git/shop.git", "/srv/git/shop.git"},
		{`C:\\repos\\shop`, `C:\\repos\\shop`},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeRemoteURL(tt.remote); got != tt.expected {
			t.Errorf("NormalizeRemoteURL(%q) = %q, want %q", tt.remote, got, tt.expected)
		}
	}
}
