package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitdocs/gitdocs/internal/config"
	"github.com/gitdocs/gitdocs/internal/git"
	"github.com/gitdocs/gitdocs/internal/output"
	"github.com/gitdocs/gitdocs/internal/storage"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Create a starter .gitdocs.toml in the repository root",
		GroupID: GroupUtility,
		Args:    cobra.NoArgs,
		Long: `Write a commented starter configuration to the repository root and add
the local cache directory to .gitignore.

Edit the generated .gitdocs.toml to point at your Jira and Confluence
instances, then store API tokens with 'gitdocs auth set'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			root, err := git.RepoRoot(ctx, cwd)
			if err != nil {
				return fmt.Errorf("gitdocs init must run inside a git repository: %w", err)
			}

			path, err := config.WriteStarter(root)
			if err != nil {
				return err
			}
			out.Printf("Created %s\n", path)

			if err := ensureGitignore(root); err != nil {
				return err
			}
			out.Println("Next: edit the [jira] section, then run 'gitdocs auth set jira'")
			return nil
		},
	}

	return cmd
}

// ensureGitignore adds the cache directory to .gitignore if missing.
func ensureGitignore(root string) error {
	entry := storage.CacheDirName + "/"
	path := filepath.Join(root, ".gitignore")

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == entry || strings.TrimSpace(line) == storage.CacheDirName {
			return nil
		}
	}

	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += entry + "\n"
	return os.WriteFile(path, []byte(content), 0o644)
}
