package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	cmdexec "github.com/gitdocs/gitdocs/internal/cmd"
	"github.com/gitdocs/gitdocs/internal/format"
	"github.com/gitdocs/gitdocs/internal/git"
	"github.com/gitdocs/gitdocs/internal/jira"
	"github.com/gitdocs/gitdocs/internal/log"
	"github.com/gitdocs/gitdocs/internal/mapping"
	"github.com/gitdocs/gitdocs/internal/output"
)

func newTicketsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tickets",
		Short:   "Browse and update Jira tickets",
		Aliases: []string{"t", "ticket"},
		GroupID: GroupTickets,
		Long: `Browse the configured Jira project and update tickets without leaving
the terminal. Responses are cached locally; pass --no-cache to force
fresh data.`,
		Example: `  gitdocs tickets ls                       # open tickets in the project
  gitdocs tickets ls --mine                # only tickets assigned to you
  gitdocs tickets ls --filter login        # fuzzy-filter by summary
  gitdocs tickets show PROJ-42             # details plus linked commits
  gitdocs tickets comment PROJ-42 "done"   # add a comment
  gitdocs tickets search "text ~ 'index'"  # raw JQL`,
	}

	cmd.AddCommand(newTicketsLsCmd())
	cmd.AddCommand(newTicketsShowCmd())
	cmd.AddCommand(newTicketsCommentCmd())
	cmd.AddCommand(newTicketsSearchCmd())
	cmd.AddCommand(newTicketsMoveCmd())

	return cmd
}

// issueSource adapts issues for fuzzy matching on key plus summary.
type issueSource []jira.Issue

func (s issueSource) String(i int) string { return s[i].Key + " " + s[i].Summary }
func (s issueSource) Len() int            { return len(s) }

// filterIssues narrows issues with fuzzy matching, preserving rank order.
func filterIssues(issues []jira.Issue, filter string) []jira.Issue {
	if filter == "" {
		return issues
	}
	matches := fuzzy.FindFrom(filter, issueSource(issues))
	filtered := make([]jira.Issue, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, issues[m.Index])
	}
	return filtered
}

func newTicketsLsCmd() *cobra.Command {
	var (
		mine   bool
		status string
		filter string
		limit  int
	)

	cmd := &cobra.Command{
		Use:     "ls",
		Short:   "List tickets in the configured project",
		Aliases: []string{"list"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			api, err := a.Jira()
			if err != nil {
				return err
			}

			clauses := []string{fmt.Sprintf("project = %s", a.Config.Repo.Jira.ProjectKey)}
			if mine {
				clauses = append(clauses, "assignee = currentUser()")
			}
			if status != "" {
				clauses = append(clauses, fmt.Sprintf("status = %q", status))
			} else {
				clauses = append(clauses, "statusCategory != Done")
			}
			jql := strings.Join(clauses, " AND ") + " ORDER BY updated DESC"

			issues, err := api.SearchIssues(ctx, jql, limit)
			if err != nil {
				return err
			}
			issues = filterIssues(issues, filter)
			if len(issues) == 0 {
				log.FromContext(ctx).Println("No tickets found")
				return nil
			}

			out.Print(format.IssuesTable(issues))
			return nil
		},
	}

	cmd.Flags().BoolVar(&mine, "mine", false, "Only tickets assigned to you")
	cmd.Flags().StringVar(&status, "status", "", "Filter by exact status name")
	cmd.Flags().StringVar(&filter, "filter", "", "Fuzzy-filter by key and summary")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of tickets")

	return cmd
}

func newTicketsShowCmd() *cobra.Command {
	var (
		copyURL      bool
		withComments bool
	)

	cmd := &cobra.Command{
		Use:   "show [key]",
		Short: "Show one ticket with its linked commits",
		Long: `Show a ticket's details, comments and linked commits.

Without a key the current branch name is searched for one, so on a
branch like feature/PROJ-42-login the key argument can be omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)
			l := log.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			api, err := a.Jira()
			if err != nil {
				return err
			}

			var key string
			if len(args) > 0 {
				key = args[0]
			} else {
				branch, err := git.CurrentBranch(ctx, a.RepoRoot)
				if err != nil {
					return err
				}
				key = mapping.TicketFromBranch(l, branch, a.CommitPatterns())
				if key == "" {
					return fmt.Errorf("no ticket key in branch %q, pass one explicitly", branch)
				}
			}

			issue, err := api.GetIssue(ctx, key)
			if err != nil {
				return err
			}

			url := api.BrowseURL(issue.Key)
			out.Print(format.IssueDetail(issue, url))

			if linked := a.LoadMappings().ForTicket(issue.Key); len(linked) > 0 {
				out.Println()
				out.Println("Linked commits:")
				for _, m := range linked {
					state := " "
					if m.Synced {
						state = "*"
					}
					out.Printf("  %s %.7s  %s\n", state, m.CommitSHA, firstLine(m.CommitMessage))
				}
			}

			if withComments {
				comments, err := api.GetComments(ctx, issue.Key)
				if err != nil {
					return err
				}
				out.Println()
				out.Printf("Comments (%d):\n", len(comments))
				for _, c := range comments {
					out.Printf("  %s: %s\n", c.Author, firstLine(c.Body))
				}
			}

			if copyURL {
				if err := clipboard.WriteAll(url); err != nil {
					l.Warnf("failed to copy to clipboard: %v", err)
				} else {
					l.Printf("Copied %s", url)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyURL, "copy-url", false, "Copy the browse URL to the clipboard")
	cmd.Flags().BoolVar(&withComments, "comments", false, "Include ticket comments")

	return cmd
}

func newTicketsCommentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment <key> [text]",
		Short: "Add a comment to a ticket",
		Long: `Add a comment to a ticket. With no text argument the configured
editor opens to compose one.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			api, err := a.Jira()
			if err != nil {
				return err
			}

			key := strings.ToUpper(args[0])

			var text string
			if len(args) == 2 {
				text = args[1]
			} else {
				text, err = composeInEditor(ctx, a.Config.User.Editor)
				if err != nil {
					return err
				}
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("empty comment")
			}

			if err := api.AddComment(ctx, key, text); err != nil {
				return err
			}
			out.Printf("Comment added to %s\n", key)
			return nil
		},
	}

	return cmd
}

// composeInEditor opens the configured editor on a temp file and returns
// its content.
func composeInEditor(ctx context.Context, editor string) (string, error) {
	if e := os.Getenv("EDITOR"); e != "" {
		editor = e
	}
	if editor == "" {
		return "", fmt.Errorf("no editor configured, set editor in the user config or $EDITOR")
	}

	f, err := os.CreateTemp("", "gitdocs-comment-*.txt")
	if err != nil {
		return "", err
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := cmdexec.InteractiveContext(ctx, "", editor, path); err != nil {
		return "", fmt.Errorf("editor: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func newTicketsSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <jql>",
		Short: "Search tickets with raw JQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			api, err := a.Jira()
			if err != nil {
				return err
			}

			issues, err := api.SearchIssues(ctx, args[0], limit)
			if err != nil {
				return err
			}
			if len(issues) == 0 {
				log.FromContext(ctx).Println("No tickets found")
				return nil
			}

			out.Print(format.IssuesTable(issues))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of tickets")

	return cmd
}

func newTicketsMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <key> <transition>",
		Short: "Transition a ticket to another status",
		Args:  cobra.ExactArgs(2),
		Example: `  gitdocs tickets move PROJ-42 "In Progress"
  gitdocs tickets move PROJ-42 Done`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			api, err := a.Jira()
			if err != nil {
				return err
			}

			key := strings.ToUpper(args[0])
			if err := api.TransitionIssue(ctx, key, args[1]); err != nil {
				return err
			}
			out.Printf("%s moved via %q\n", key, args[1])
			return nil
		},
	}

	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
