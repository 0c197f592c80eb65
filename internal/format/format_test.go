package format

import (
	"strings"
	"testing"
	"time"

	"github.com/gitdocs/gitdocs/internal/cache"
	"github.com/gitdocs/gitdocs/internal/confluence"
	"github.com/gitdocs/gitdocs/internal/jira"
	"github.com/gitdocs/gitdocs/internal/log"
	"github.com/gitdocs/gitdocs/internal/mapping"
)

func TestIssueRow(t *testing.T) {
	t.Parallel()

	issue := jira.Issue{
		Key:       "PROJ-42",
		IssueType: "Bug",
		Status:    "In Progress",
		Assignee:  "Dana Dev",
		Summary:   "Fix login redirect",
	}

	row := IssueRow(issue)
	if len(row) != len(IssueHeaders) {
		t.Fatalf("expected %d columns, got %d", len(IssueHeaders), len(row))
	}
	if !strings.Contains(row[0], "PROJ-42") {
		t.Errorf("column 0 (KEY) = %q, want it to contain PROJ-42", row[0])
	}
	if row[2] != "In Progress" {
		t.Errorf("column 2 (STATUS) = %q", row[2])
	}
	if row[4] != "Fix login redirect" {
		t.Errorf("column 4 (SUMMARY) = %q", row[4])
	}
}

func TestIssuesTable(t *testing.T) {
	t.Parallel()

	out := IssuesTable([]jira.Issue{
		{Key: "PROJ-1", IssueType: "Bug", Status: "Done", Summary: "one"},
		{Key: "PROJ-2", IssueType: "Task", Status: "Open", Summary: "two"},
	})

	for _, want := range []string{"KEY", "STATUS", "PROJ-1", "PROJ-2"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestIssuesTableEmpty(t *testing.T) {
	t.Parallel()

	if out := IssuesTable(nil); out != "" {
		t.Errorf("expected empty output for no issues, got %q", out)
	}
}

func TestIssueDetail(t *testing.T) {
	t.Parallel()

	out := IssueDetail(jira.Issue{
		Key:         "PROJ-7",
		Summary:     "Improve indexing",
		IssueType:   "Story",
		Status:      "To Do",
		Description: "Detailed body text.",
	}, "https://company.atlassian.net/browse/PROJ-7")

	for _, want := range []string{"PROJ-7", "Improve indexing", "To Do", "browse/PROJ-7", "Detailed body text."} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q:\n%s", want, out)
		}
	}
}

func TestPagesTable(t *testing.T) {
	t.Parallel()

	out := PagesTable([]confluence.Page{
		{ID: "12345", Title: "Release runbook", Space: "DOCS", Version: 4},
	})

	for _, want := range []string{"12345", "Release runbook", "DOCS", "v4"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestMappingsTable(t *testing.T) {
	t.Parallel()

	store := mapping.NewStore()
	m1 := mapping.NewMapping("PROJ-1", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "first commit\n\nbody")
	store.Add(m1)
	m2 := mapping.NewMapping("PROJ-2", "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "second commit")
	store.Add(m2)
	store.MarkSynced("PROJ-2", m2.CommitSHA)

	out := MappingsTable(store)

	if !strings.Contains(out, "aaaaaaa") {
		t.Errorf("expected short SHA in output:\n%s", out)
	}
	if strings.Contains(out, "aaaaaaaa") {
		t.Errorf("SHA should be truncated to 7 chars:\n%s", out)
	}
	if !strings.Contains(out, "first commit") || strings.Contains(out, "body") {
		t.Errorf("message column should show the subject only:\n%s", out)
	}
	if !strings.Contains(out, "pending") || !strings.Contains(out, "synced") {
		t.Errorf("expected both sync states:\n%s", out)
	}
}

func TestCacheStats(t *testing.T) {
	t.Parallel()

	logger := log.Discard()
	c, err := cache.Open(t.TempDir(), cache.DefaultOptions(), logger)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	c.Set("jira", "PROJ-1", []byte(`{"key":"PROJ-1"}`), time.Minute)

	out := CacheStats(c.Stats())
	for _, want := range []string{"enabled", "Entries:  1"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats missing %q:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten chars!", 18, "exactly ten chars!"},
		{"this one is definitely too long", 10, "this on..."},
		{"no limit", 0, "no limit"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestHumanSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := HumanSize(tt.in); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
