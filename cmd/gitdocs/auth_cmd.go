package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/gitdocs/gitdocs/internal/output"
	"github.com/gitdocs/gitdocs/internal/secrets"
)

func serviceArg(arg string) (string, error) {
	switch strings.ToLower(arg) {
	case "jira":
		return secrets.ServiceJira, nil
	case "confluence":
		return secrets.ServiceConfluence, nil
	default:
		return "", fmt.Errorf("unknown service %q (want jira or confluence)", arg)
	}
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auth",
		Short:   "Manage tracker API tokens",
		GroupID: GroupUtility,
		Long: `Store and verify the API tokens gitdocs uses to talk to Jira and
Confluence.

Tokens are kept in a mode-0600 credentials file under the gitdocs config
directory. The environment variables GITDOCS_JIRA_TOKEN and
GITDOCS_CONFLUENCE_TOKEN take precedence when set, which suits CI and
.env files.`,
		Example: `  gitdocs auth set jira          # prompt for a token and store it
  gitdocs auth test              # verify both configured services
  gitdocs auth clear confluence  # forget a stored token`,
	}

	cmd.AddCommand(newAuthSetCmd())
	cmd.AddCommand(newAuthTestCmd())
	cmd.AddCommand(newAuthClearCmd())

	return cmd
}

func newAuthSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <jira|confluence>",
		Short: "Store an API token for a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			service, err := serviceArg(args[0])
			if err != nil {
				return err
			}

			token, err := readToken(cmd)
			if err != nil {
				return err
			}
			if token == "" {
				return fmt.Errorf("empty token")
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Secrets.Set(service, token); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			out.Printf("Token stored for %s\n", args[0])
			return nil
		},
	}

	return cmd
}

// readToken reads the token from stdin. When stdin is a TTY a prompt is
// shown; when piped the first line is used, so
// 'echo $TOKEN | gitdocs auth set jira' works.
func readToken(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		fmt.Fprint(cmd.ErrOrStderr(), "API token: ")
	}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func newAuthTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Verify stored credentials against the configured services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			tested := 0
			if a.Config.Repo.Jira != nil {
				tested++
				api, err := a.Jira()
				if err != nil {
					return err
				}
				name, err := api.Myself(ctx)
				if err != nil {
					return fmt.Errorf("jira: %w", err)
				}
				out.Printf("jira: authenticated as %s\n", name)
			}
			if a.Config.Repo.Confluence != nil {
				tested++
				api, err := a.Confluence()
				if err != nil {
					return err
				}
				name, err := api.Myself(ctx)
				if err != nil {
					return fmt.Errorf("confluence: %w", err)
				}
				out.Printf("confluence: authenticated as %s\n", name)
			}

			if tested == 0 {
				return fmt.Errorf("nothing to test: no [jira] or [confluence] section in .gitdocs.toml")
			}
			return nil
		},
	}

	return cmd
}

func newAuthClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear <jira|confluence>",
		Short: "Remove a stored API token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			service, err := serviceArg(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Secrets.Delete(service); err != nil {
				return err
			}
			out.Printf("Token removed for %s\n", args[0])
			return nil
		},
	}

	return cmd
}
