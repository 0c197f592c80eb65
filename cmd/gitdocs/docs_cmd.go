package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/gitdocs/gitdocs/internal/confluence"
	"github.com/gitdocs/gitdocs/internal/format"
	"github.com/gitdocs/gitdocs/internal/log"
	"github.com/gitdocs/gitdocs/internal/output"
)

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Short:   "Browse Confluence documentation",
		Aliases: []string{"d", "doc"},
		GroupID: GroupDocs,
		Long: `Browse pages in the configured Confluence space. Page content is
cached locally like ticket data.`,
		Example: `  gitdocs docs ls                    # pages in the configured space
  gitdocs docs spaces                # list available spaces
  gitdocs docs show 12345            # page content by ID
  gitdocs docs show "Release notes"  # page content by title`,
	}

	cmd.AddCommand(newDocsLsCmd())
	cmd.AddCommand(newDocsSpacesCmd())
	cmd.AddCommand(newDocsShowCmd())

	return cmd
}

func newDocsLsCmd() *cobra.Command {
	var (
		space string
		limit int
	)

	cmd := &cobra.Command{
		Use:     "ls",
		Short:   "List pages in a space",
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

			api, err := a.Confluence()
			if err != nil {
				return err
			}

			key := space
			if key == "" {
				key = a.Config.Repo.Confluence.SpaceKey
			}
			if key == "" {
				return fmt.Errorf("no space: set space_key in .gitdocs.toml or pass --space")
			}

			pages, err := api.GetPagesInSpace(ctx, key, limit)
			if err != nil {
				return err
			}
			if len(pages) == 0 {
				log.FromContext(ctx).Println("No pages found")
				return nil
			}

			out.Print(format.PagesTable(pages))
			return nil
		},
	}

	cmd.Flags().StringVar(&space, "space", "", "Space key (defaults to the configured one)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of pages")

	return cmd
}

func newDocsSpacesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "spaces",
		Short: "List available Confluence spaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			api, err := a.Confluence()
			if err != nil {
				return err
			}

			spaces, err := api.GetSpaces(ctx, limit)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(spaces))
			for _, s := range spaces {
				rows = append(rows, []string{s.Key, s.Name})
			}
			out.Print(format.RenderTable([]string{"KEY", "NAME"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 25, "Maximum number of spaces")

	return cmd
}

func newDocsShowCmd() *cobra.Command {
	var copyURL bool

	cmd := &cobra.Command{
		Use:   "show <id|title>",
		Short: "Show a page by ID or title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)
			l := log.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			api, err := a.Confluence()
			if err != nil {
				return err
			}

			var p confluence.Page
			if isPageID(args[0]) {
				p, err = api.GetPage(ctx, args[0])
			} else {
				space := a.Config.Repo.Confluence.SpaceKey
				if space == "" {
					return fmt.Errorf("title lookup needs space_key in .gitdocs.toml")
				}
				p, err = api.GetPageByTitle(ctx, space, args[0])
			}
			if err != nil {
				return err
			}

			out.Printf("%s (v%d, %s)\n", p.Title, p.Version, p.Space)
			if p.Link != "" {
				out.Printf("URL: %s\n", p.Link)
			}
			if p.Body != "" {
				out.Println()
				out.Println(stripStorageMarkup(p.Body))
			}

			if copyURL && p.Link != "" {
				if err := clipboard.WriteAll(p.Link); err != nil {
					l.Warnf("failed to copy to clipboard: %v", err)
				} else {
					l.Printf("Copied %s", p.Link)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyURL, "copy-url", false, "Copy the page URL to the clipboard")

	return cmd
}

// isPageID reports whether the argument looks like a numeric page ID.
func isPageID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// stripStorageMarkup renders Confluence storage format as rough plain
// text: tags go, paragraph-ish closers become newlines. Good enough for a
// terminal skim, not a faithful renderer.
func stripStorageMarkup(body string) string {
	replacer := strings.NewReplacer(
		"</p>", "\n",
		"</h1>", "\n",
		"</h2>", "\n",
		"</h3>", "\n",
		"</li>", "\n",
		"<br/>", "\n",
		"<br />", "\n",
	)
	body = replacer.Replace(body)

	var b strings.Builder
	inTag := false
	for _, r := range body {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
