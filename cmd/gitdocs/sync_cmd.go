package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitdocs/gitdocs/internal/format"
	"github.com/gitdocs/gitdocs/internal/git"
	"github.com/gitdocs/gitdocs/internal/log"
	"github.com/gitdocs/gitdocs/internal/mapping"
	"github.com/gitdocs/gitdocs/internal/output"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync",
		Short:   "Link commits to tickets and push the links to Jira",
		GroupID: GroupSync,
		Long: `Scan recent commits for ticket keys, record which commits belong to
which tickets, and push unsynced links to Jira as comments.

The record lives in the repository's local cache directory and survives
between runs; scanning is idempotent, the same commit is never linked to
the same ticket twice.`,
		Example: `  gitdocs sync scan              # link recent commits to tickets
  gitdocs sync scan --count 200  # look further back
  gitdocs sync status            # what is linked, what is pending
  gitdocs sync push              # comment unsynced commits onto tickets
  gitdocs sync push --dry-run    # show what would be pushed`,
	}

	cmd.AddCommand(newSyncScanCmd())
	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncPushCmd())

	return cmd
}

func newSyncScanCmd() *cobra.Command {
	var (
		count  int
		branch string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan commit messages for ticket keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)
			l := log.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			commits, err := git.RecentCommits(ctx, a.RepoRoot, count, branch)
			if err != nil {
				return err
			}

			store := a.LoadMappings()

			messages := make([]string, len(commits))
			for i, c := range commits {
				messages[i] = c.Message
			}
			related := mapping.FindRelatedTickets(l, messages, a.CommitPatterns())

			added := 0
			for key, indices := range related {
				for _, i := range indices {
					c := commits[i]
					if store.Add(mapping.NewMapping(key, c.SHA, c.Message)) {
						added++
						l.Printf("linked %s to %s (%s)", c.ShortSHA(), key, c.Subject())
					}
				}
			}

			if added == 0 {
				out.Printf("Scanned %d commits, nothing new to link\n", len(commits))
				return nil
			}

			if err := a.SaveMappings(store); err != nil {
				return err
			}
			out.Printf("Scanned %d commits, linked %d new commit(s) across %d ticket(s)\n",
				len(commits), added, len(store.Tickets()))
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 50, "Number of recent commits to scan")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to scan (defaults to HEAD)")

	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show linked commits and their sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			store := a.LoadMappings()
			if store.Len() == 0 {
				log.FromContext(ctx).Println("Nothing linked yet, run 'gitdocs sync scan'")
				return nil
			}

			out.Print(format.MappingsTable(store))
			out.Printf("\n%d linked, %d pending\n", store.Len(), len(store.Unsynced()))
			return nil
		},
	}

	return cmd
}

func newSyncPushCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push unsynced commit links to Jira as comments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)
			l := log.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			store := a.LoadMappings()
			pending := store.Unsynced()
			if len(pending) == 0 {
				l.Println("Nothing to push")
				return nil
			}

			if dryRun {
				for _, m := range pending {
					out.Printf("would comment on %s: %.7s %s\n", m.TicketKey, m.CommitSHA, firstLine(m.CommitMessage))
				}
				out.Printf("%d comment(s) would be pushed\n", len(pending))
				return nil
			}

			api, err := a.Jira()
			if err != nil {
				return err
			}

			pushed := 0
			for _, m := range pending {
				if err := ctx.Err(); err != nil {
					return err
				}
				text := fmt.Sprintf("Commit %.7s (%s): %s",
					m.CommitSHA, m.MappedAt.Format(time.DateOnly), firstLine(m.CommitMessage))
				if err := api.AddComment(ctx, m.TicketKey, text); err != nil {
					// Persist what succeeded so far before bailing.
					if saveErr := a.SaveMappings(store); saveErr != nil {
						l.Warnf("save mappings: %v", saveErr)
					}
					return fmt.Errorf("push to %s: %w", m.TicketKey, err)
				}
				store.MarkSynced(m.TicketKey, m.CommitSHA)
				pushed++
				l.Printf("pushed %.7s to %s", m.CommitSHA, m.TicketKey)
			}

			if err := a.SaveMappings(store); err != nil {
				return err
			}
			out.Printf("Pushed %d comment(s)\n", pushed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be pushed without pushing")

	return cmd
}
