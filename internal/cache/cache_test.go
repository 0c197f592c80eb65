package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func testCache(t *testing.T) *Cache {
	t.Helper()

	c, err := Open(t.TempDir(), DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_SetGet(t *testing.T) {
	t.Parallel()
	c := testCache(t)

	c.Set("jira", "PROJ-1", []byte(`{"summary":"fix login"}`), 0)

	got, ok := c.Get("jira", "PROJ-1")
	if !ok {
		t.Fatal("Get() miss, want hit")
	}
	if string(got) != `{"summary":"fix login"}` {
		t.Errorf("Get() = %q", got)
	}
}

func TestCache_GetMiss(t *testing.T) {
	t.Parallel()
	c := testCache(t)

	if _, ok := c.Get("jira", "absent"); ok {
		t.Error("Get(absent) hit, want miss")
	}
}

func TestCache_SetOverwrites(t *testing.T) {
	t.Parallel()
	c := testCache(t)

	c.Set("jira", "k", []byte("v1"), 0)
	c.Set("jira", "k", []byte("v2"), 0)

	got, ok := c.Get("jira", "k")
	if !ok || string(got) != "v2" {
		t.Errorf("Get() = %q, %v, want v2", got, ok)
	}
	if s := c.Stats(); s.Entries != 1 {
		t.Errorf("Stats().Entries = %d, want 1", s.Entries)
	}
}

func TestCache_ExpiredEntryIsMiss(t *testing.T) {
	t.Parallel()
	c := testCache(t)

	c.Set("jira", "k", []byte("v"), time.Hour)

	// Age the row on disk without evicting it: a Get must still miss.
	if _, err := c.db.Exec(
		"UPDATE entries SET expires_at = ? WHERE key = ?",
		time.Now().Add(-time.Minute).Unix(), Compose("jira", "k"),
	); err != nil {
		t.Fatalf("age entry: %v", err)
	}

	if _, ok := c.Get("jira", "k"); ok {
		t.Error("Get(expired) hit, want miss")
	}

	// The expired row is evicted lazily.
	if s := c.Stats(); s.Entries != 0 {
		t.Errorf("Stats().Entries = %d after expired get, want 0", s.Entries)
	}
}

func TestCache_Delete(t *testing.T) {
	t.Parallel()
	c := testCache(t)

	c.Set("jira", "k", []byte("v"), 0)
	c.Delete("jira", "k")

	if _, ok := c.Get("jira", "k"); ok {
		t.Error("Get() hit after Delete, want miss")
	}

	// Deleting an absent key is a no-op.
	c.Delete("jira", "k")
}

func TestCache_ClearNamespaceIsolation(t *testing.T) {
	t.Parallel()
	c := testCache(t)

	// "jira" is a prefix of "jirax"; "a" is a suffix of "jira".
	c.Set("jira", "k1", []byte("v"), 0)
	c.Set("jira", "k2", []byte("v"), 0)
	c.Set("jirax", "k1", []byte("v"), 0)
	c.Set("a", "k1", []byte("v"), 0)

	if n := c.ClearNamespace("jira"); n != 2 {
		t.Errorf("ClearNamespace(jira) = %d, want 2", n)
	}

	if _, ok := c.Get("jira", "k1"); ok {
		t.Error("jira entry survived ClearNamespace")
	}
	if _, ok := c.Get("jirax", "k1"); !ok {
		t.Error("jirax entry removed by ClearNamespace(jira)")
	}
	if _, ok := c.Get("a", "k1"); !ok {
		t.Error("a entry removed by ClearNamespace(jira)")
	}
}

func TestCache_ClearAll(t *testing.T) {
	t.Parallel()
	c := testCache(t)

	c.Set("jira", "k", []byte("v"), 0)
	c.Set("confluence", "k", []byte("v"), 0)

	c.ClearAll()

	if s := c.Stats(); s.Entries != 0 {
		t.Errorf("Stats().Entries = %d after ClearAll, want 0", s.Entries)
	}
}

func TestCache_Disabled(t *testing.T) {
	t.Parallel()
	c := Disabled()

	c.Set("jira", "k", []byte("v"), 0)
	if _, ok := c.Get("jira", "k"); ok {
		t.Error("disabled cache returned a value")
	}
	if n := c.ClearNamespace("jira"); n != 0 {
		t.Errorf("disabled ClearNamespace = %d, want 0", n)
	}

	s := c.Stats()
	if s.Enabled {
		t.Error("disabled Stats().Enabled = true")
	}
	if s.Entries != 0 || s.SizeBytes != 0 {
		t.Error("disabled cache reports storage growth")
	}
	if err := c.Close(); err != nil {
		t.Errorf("disabled Close() = %v", err)
	}
}

func TestCache_OpenDisabledOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.Enabled = false
	c, err := Open(t.TempDir(), opts, nil)
	if err != nil {
		t.Fatalf("Open(disabled) = %v", err)
	}
	if c.Enabled() {
		t.Error("Enabled() = true for disabled options")
	}
}

func TestCache_CloseIdempotent(t *testing.T) {
	t.Parallel()
	c := testCache(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestCache_Stats(t *testing.T) {
	t.Parallel()
	c := testCache(t)

	c.Set("jira", "k1", []byte("value-one"), 0)
	c.Set("confluence", "k2", []byte("value-two"), 0)

	s := c.Stats()
	if !s.Enabled {
		t.Error("Stats().Enabled = false")
	}
	if s.Entries != 2 {
		t.Errorf("Stats().Entries = %d, want 2", s.Entries)
	}
	if s.SizeBytes <= 0 {
		t.Errorf("Stats().SizeBytes = %d, want > 0", s.SizeBytes)
	}
	if s.Directory == "" {
		t.Error("Stats().Directory empty")
	}
}

func TestCache_PruneEnforcesSizeCeiling(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.MaxSizeBytes = 512
	c, err := Open(t.TempDir(), opts, nil)
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	defer c.Close()

	big := make([]byte, 200)
	for i := range 10 {
		c.Set("jira", string(rune('a'+i)), big, 0)
	}

	if s := c.Stats(); s.SizeBytes > opts.MaxSizeBytes {
		t.Errorf("Stats().SizeBytes = %d, want <= %d", s.SizeBytes, opts.MaxSizeBytes)
	}
}

func TestCache_GetOrFetch(t *testing.T) {
	t.Parallel()
	c := testCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte("fetched"), nil
	}

	got, err := c.GetOrFetch(ctx, "jira", "k", 0, fetch)
	if err != nil {
		t.Fatalf("GetOrFetch() = %v", err)
	}
	if string(got) != "fetched" {
		t.Errorf("GetOrFetch() = %q", got)
	}

	// Second call is served from cache.
	if _, err := c.GetOrFetch(ctx, "jira", "k", 0, fetch); err != nil {
		t.Fatalf("GetOrFetch() = %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestCache_GetOrFetchError(t *testing.T) {
	t.Parallel()
	c := testCache(t)

	wantErr := errors.New("upstream down")
	_, err := c.GetOrFetch(context.Background(), "jira", "err-key", 0, func(ctx context.Context) ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("GetOrFetch() error = %v, want %v", err, wantErr)
	}

	// Nothing is cached on failure.
	if _, ok := c.Get("jira", "err-key"); ok {
		t.Error("failed fetch left a cache entry")
	}
}

func TestFetchJSON(t *testing.T) {
	t.Parallel()
	c := testCache(t)

	type issue struct {
		Key     string `json:"key"`
		Summary string `json:"summary"`
	}

	calls := 0
	fetch := func(ctx context.Context) (issue, error) {
		calls++
		return issue{Key: "PROJ-1", Summary: "fix login"}, nil
	}

	got, err := FetchJSON(context.Background(), c, "jira", "PROJ-1", 0, fetch)
	if err != nil {
		t.Fatalf("FetchJSON() = %v", err)
	}
	if got.Key != "PROJ-1" || got.Summary != "fix login" {
		t.Errorf("FetchJSON() = %+v", got)
	}

	got, err = FetchJSON(context.Background(), c, "jira", "PROJ-1", 0, fetch)
	if err != nil {
		t.Fatalf("FetchJSON() second call = %v", err)
	}
	if got.Key != "PROJ-1" {
		t.Errorf("FetchJSON() cached = %+v", got)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestCache_ConcurrentSets(t *testing.T) {
	t.Parallel()
	c := testCache(t)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			for range 20 {
				c.Set("jira", key, []byte("v"), 0)
				c.Get("jira", key)
			}
		}(i)
	}
	wg.Wait()

	if s := c.Stats(); s.Entries != 8 {
		t.Errorf("Stats().Entries = %d, want 8", s.Entries)
	}
}
