package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitdocs/gitdocs/internal/app"
	"github.com/gitdocs/gitdocs/internal/log"
	"github.com/gitdocs/gitdocs/internal/mapping"
	"github.com/gitdocs/gitdocs/internal/secrets"
)

func testServer(t *testing.T) (*Server, *app.App) {
	t.Helper()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	a, err := app.New(t.TempDir(), log.Discard(), app.Options{
		Secrets: secrets.NewFileProvider(filepath.Join(t.TempDir(), "credentials.json")),
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	return NewServer(a, DefaultAddr), a
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	s, a := testServer(t)

	store := a.LoadMappings()
	store.Add(mapping.NewMapping("PROJ-1", "abc123", "fix"))
	store.Add(mapping.NewMapping("PROJ-1", "def456", "more fix"))
	require.NoError(t, a.SaveMappings(store))

	rec := doRequest(t, s, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, false, status["jira"])
	assert.Equal(t, true, status["cache_enabled"])
	assert.Equal(t, float64(1), status["mapped_tickets"])
	assert.Equal(t, float64(2), status["mappings"])
}

func TestTickets_JiraNotConfigured(t *testing.T) {
	s, _ := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/tickets")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "jira is not configured")
}

func TestMappings(t *testing.T) {
	s, a := testServer(t)

	store := a.LoadMappings()
	store.Add(mapping.NewMapping("PROJ-3", "cafe01", "feat: thing"))
	require.NoError(t, a.SaveMappings(store))

	rec := doRequest(t, s, http.MethodGet, "/api/mappings")
	require.Equal(t, http.StatusOK, rec.Code)

	var got mapping.Store
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.ByTicket["PROJ-3"], 1)
	assert.Equal(t, "cafe01", got.ByTicket["PROJ-3"][0].CommitSHA)
}

func TestCacheStatsAndClear(t *testing.T) {
	s, a := testServer(t)

	a.Cache.Set("jira", "PROJ-1", []byte("{}"), time.Minute)
	a.Cache.Set("confluence", "123", []byte("{}"), time.Minute)

	rec := doRequest(t, s, http.MethodGet, "/api/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(2), stats["entries"])

	rec = doRequest(t, s, http.MethodPost, "/api/cache/clear?namespace=jira")
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	assert.Equal(t, "jira", cleared["cleared"])
	assert.Equal(t, float64(1), cleared["entries"])

	rec = doRequest(t, s, http.MethodPost, "/api/cache/clear")
	require.Equal(t, http.StatusOK, rec.Code)

	if _, ok := a.Cache.Get("confluence", "123"); ok {
		t.Error("expected cache to be empty after full clear")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := testServer(t)

	rec := doRequest(t, s, http.MethodDelete, "/api/mappings")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
