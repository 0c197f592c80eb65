// Package format renders tickets, pages, mappings and cache stats for the
// terminal. Tables are built with lipgloss/table; color is only applied
// when stdout is a TTY.
package format

import (
	"fmt"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/mattn/go-isatty"

	"github.com/gitdocs/gitdocs/internal/cache"
	"github.com/gitdocs/gitdocs/internal/confluence"
	"github.com/gitdocs/gitdocs/internal/jira"
	"github.com/gitdocs/gitdocs/internal/mapping"
)

var (
	keyStyle     = lipgloss.NewStyle().Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// colorEnabled reports whether styled output should be emitted.
// NO_COLOR and non-TTY stdout both disable it.
var colorEnabled = func() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}()

func styled(s lipgloss.Style, text string) string {
	if !colorEnabled {
		return text
	}
	return s.Render(text)
}

// RenderTable creates a formatted table with proper column alignment.
// lipgloss/table calculates column widths from content; no borders.
func RenderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	var output strings.Builder

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})

	output.WriteString(t.String())
	output.WriteString("\n")

	return output.String()
}

// Truncate shortens s to max runes, ending with an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// IssueRow builds one table row for an issue. Columns match IssueHeaders.
func IssueRow(issue jira.Issue) []string {
	return []string{
		styled(keyStyle, issue.Key),
		issue.IssueType,
		issue.Status,
		issue.Assignee,
		Truncate(issue.Summary, 60),
	}
}

// IssueHeaders are the columns for ticket listings.
var IssueHeaders = []string{"KEY", "TYPE", "STATUS", "ASSIGNEE", "SUMMARY"}

// IssuesTable renders a ticket listing.
func IssuesTable(issues []jira.Issue) string {
	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, IssueRow(issue))
	}
	return RenderTable(IssueHeaders, rows)
}

// IssueDetail renders a single issue with its description.
func IssueDetail(issue jira.Issue, browseURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", styled(keyStyle, issue.Key), issue.Summary)
	fmt.Fprintf(&b, "Type:      %s\n", issue.IssueType)
	fmt.Fprintf(&b, "Status:    %s\n", issue.Status)
	if issue.Priority != "" {
		fmt.Fprintf(&b, "Priority:  %s\n", issue.Priority)
	}
	if issue.Assignee != "" {
		fmt.Fprintf(&b, "Assignee:  %s\n", issue.Assignee)
	}
	if issue.Updated != "" {
		fmt.Fprintf(&b, "Updated:   %s\n", issue.Updated)
	}
	fmt.Fprintf(&b, "URL:       %s\n", browseURL)
	if issue.Description != "" {
		b.WriteString("\n")
		b.WriteString(issue.Description)
		b.WriteString("\n")
	}
	return b.String()
}

// PageHeaders are the columns for page listings.
var PageHeaders = []string{"ID", "TITLE", "SPACE", "VERSION"}

// PagesTable renders a Confluence page listing.
func PagesTable(pages []confluence.Page) string {
	rows := make([][]string, 0, len(pages))
	for _, p := range pages {
		rows = append(rows, []string{
			p.ID,
			Truncate(p.Title, 60),
			p.Space,
			fmt.Sprintf("v%d", p.Version),
		})
	}
	return RenderTable(PageHeaders, rows)
}

// MappingHeaders are the columns for mapping listings.
var MappingHeaders = []string{"TICKET", "COMMIT", "SYNCED", "MESSAGE"}

// MappingsTable renders the ticket to commit associations, grouped the way
// the store keeps them: tickets sorted, commits in insertion order.
func MappingsTable(store *mapping.Store) string {
	var rows [][]string
	for _, ticket := range store.Tickets() {
		for _, m := range store.ForTicket(ticket) {
			state := styled(pendingStyle, "pending")
			if m.Synced {
				state = styled(doneStyle, "synced")
			}
			rows = append(rows, []string{
				styled(keyStyle, m.TicketKey),
				shortSHA(m.CommitSHA),
				state,
				Truncate(firstLine(m.CommitMessage), 60),
			})
		}
	}
	return RenderTable(MappingHeaders, rows)
}

// CacheStats renders cache statistics as key/value lines.
func CacheStats(stats cache.Stats) string {
	var b strings.Builder
	state := "enabled"
	if !stats.Enabled {
		state = styled(mutedStyle, "disabled")
	}
	fmt.Fprintf(&b, "Cache:    %s\n", state)
	if stats.Directory != "" {
		fmt.Fprintf(&b, "Location: %s\n", stats.Directory)
	}
	fmt.Fprintf(&b, "Entries:  %d\n", stats.Entries)
	fmt.Fprintf(&b, "Size:     %s\n", HumanSize(stats.SizeBytes))
	return b.String()
}

// HumanSize formats a byte count like "1.2 MB".
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
