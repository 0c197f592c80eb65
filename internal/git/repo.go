// Package git shells out to the git CLI for the repository operations
// gitdocs needs: locating the repo root, reading the current branch, and
// walking recent history. Shelling out keeps compatibility with user
// configuration (hooks, mailmap, credential helpers).
package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Commit represents one commit read from git log.
type Commit struct {
	SHA         string
	Message     string
	AuthorName  string
	AuthorEmail string
	Date        time.Time
}

// ShortSHA returns the abbreviated commit hash.
func (c Commit) ShortSHA() string {
	if len(c.SHA) < 7 {
		return c.SHA
	}
	return c.SHA[:7]
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return subject
}

// RepoRoot returns the root of the repository containing dir.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	output, err := outputGit(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not in a git repository: %v", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// CurrentBranch returns the checked-out branch name, or "" for detached HEAD.
func CurrentBranch(ctx context.Context, dir string) (string, error) {
	output, err := outputGit(ctx, dir, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// HeadSHA returns the full SHA of HEAD.
func HeadSHA(ctx context.Context, dir string) (string, error) {
	output, err := outputGit(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// logFormat separates fields with NUL and terminates records with a second
// NUL so multi-line commit bodies parse unambiguously.
const logFormat = "--format=%H%x00%B%x00%an%x00%ae%x00%aI%x00"

// RecentCommits returns up to count commits from branch (current branch if
// empty), newest first. Merge commits are skipped: they carry no useful
// ticket context of their own.
func RecentCommits(ctx context.Context, dir string, count int, branch string) ([]Commit, error) {
	args := []string{"log", "-" + strconv.Itoa(count), logFormat, "--no-merges"}
	if branch != "" {
		args = append(args, branch)
	}

	output, err := outputGit(ctx, dir, args...)
	if err != nil {
		return nil, fmt.Errorf("git log failed: %w", err)
	}

	return parseLog(string(output)), nil
}

func parseLog(raw string) []Commit {
	fields := strings.Split(raw, "\x00")

	var commits []Commit
	// Records are 5 fields each; the trailing element after the last
	// record terminator is inter-record whitespace.
	for i := 0; i+4 < len(fields); i += 5 {
		date, _ := time.Parse(time.RFC3339, strings.TrimSpace(fields[i+4]))
		commits = append(commits, Commit{
			SHA:         strings.TrimSpace(fields[i]),
			Message:     strings.TrimRight(fields[i+1], "\n"),
			AuthorName:  fields[i+2],
			AuthorEmail: fields[i+3],
			Date:        date,
		})
	}
	return commits
}
