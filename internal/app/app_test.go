package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitdocs/gitdocs/internal/log"
	"github.com/gitdocs/gitdocs/internal/mapping"
	"github.com/gitdocs/gitdocs/internal/secrets"
)

func testApp(t *testing.T, repoConfig string) *App {
	t.Helper()

	root := t.TempDir()
	if repoConfig != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, ".gitdocs.toml"), []byte(repoConfig), 0o644))
	}
	// Keep user config out of the picture.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	a, err := New(root, log.Discard(), Options{
		Secrets: secrets.NewFileProvider(filepath.Join(t.TempDir(), "credentials.json")),
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNew_NoRepoConfig(t *testing.T) {
	a := testApp(t, "")

	assert.True(t, a.Cache.Enabled())
	assert.Nil(t, a.Config.Repo.Jira)

	_, err := a.Jira()
	assert.ErrorIs(t, err, ErrJiraNotConfigured)
	_, err = a.Confluence()
	assert.ErrorIs(t, err, ErrConfluenceNotConfigured)
}

func TestNew_DisableCache(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	a, err := New(root, log.Discard(), Options{DisableCache: true})
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Cache.Enabled())
}

func TestJira_MissingToken(t *testing.T) {
	a := testApp(t, `
[jira]
base_url = "https://company.atlassian.net"
email = "dev@company.com"
project_key = "PROJ"
`)

	_, err := a.Jira()
	require.Error(t, err)
	assert.ErrorIs(t, err, secrets.ErrNotFound)
	assert.Contains(t, err.Error(), "gitdocs auth set jira")
}

func TestJira_BuiltOnceWithToken(t *testing.T) {
	a := testApp(t, `
[jira]
base_url = "https://company.atlassian.net"
email = "dev@company.com"
project_key = "PROJ"
`)
	require.NoError(t, a.Secrets.Set(secrets.ServiceJira, "token"))

	api1, err := a.Jira()
	require.NoError(t, err)
	api2, err := a.Jira()
	require.NoError(t, err)
	assert.Same(t, api1, api2)
	assert.Equal(t, "https://company.atlassian.net/browse/PROJ-1", api1.BrowseURL("proj-1"))
}

func TestConfluence_WithToken(t *testing.T) {
	a := testApp(t, `
[confluence]
base_url = "https://company.atlassian.net/wiki"
email = "dev@company.com"
space_key = "DOCS"
`)
	require.NoError(t, a.Secrets.Set(secrets.ServiceConfluence, "token"))

	api, err := a.Confluence()
	require.NoError(t, err)
	assert.NotNil(t, api)
}

func TestMappingsRoundTripUnderLock(t *testing.T) {
	a := testApp(t, "")

	store := a.LoadMappings()
	assert.Equal(t, 0, store.Len())

	store.Add(mapping.NewMapping("PROJ-1", "abc123", "fix"))
	require.NoError(t, a.SaveMappings(store))

	again := a.LoadMappings()
	assert.Equal(t, 1, again.Len())
	assert.Len(t, again.ForTicket("PROJ-1"), 1)
}

func TestCommitPatterns_Fallback(t *testing.T) {
	a := testApp(t, "")
	assert.Equal(t, []string{`\b([A-Z][A-Z0-9]+-\d+)\b`}, a.CommitPatterns())

	b := testApp(t, "commit_patterns = ['\\b(GH-\\d+)\\b']\n")
	assert.Equal(t, []string{`\b(GH-\d+)\b`}, b.CommitPatterns())
}
