package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitdocs/gitdocs/internal/cache"
	"github.com/gitdocs/gitdocs/internal/format"
	"github.com/gitdocs/gitdocs/internal/output"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cache",
		Short:   "Inspect and clear the local response cache",
		GroupID: GroupUtility,
		Example: `  gitdocs cache stats
  gitdocs cache stats --json
  gitdocs cache clear
  gitdocs cache clear --namespace jira`,
	}

	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCacheClearCmd())

	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and entry count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			stats := a.Cache.Stats()
			if asJSON {
				return out.JSON(stats)
			}
			out.Print(format.CacheStats(stats))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func newCacheClearCmd() *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Cache.Enabled() {
				out.Println("Cache is disabled, nothing to clear")
				return nil
			}

			if namespace != "" {
				if !cache.ValidNamespace(namespace) {
					return fmt.Errorf("invalid namespace %q", namespace)
				}
				removed := a.Cache.ClearNamespace(namespace)
				out.Printf("Cleared %d entries from %q\n", removed, namespace)
				return nil
			}

			a.Cache.ClearAll()
			out.Println("Cache cleared")
			return nil
		},
	}

	cmd.Flags().StringVar(&namespace, "namespace", "", "Only clear one namespace (e.g. jira)")

	return cmd
}
