package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gitdocs/gitdocs/internal/git"
	"github.com/gitdocs/gitdocs/internal/log"
	"github.com/gitdocs/gitdocs/internal/output"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	noCache bool
)

// Command group IDs for organizing help output
const (
	GroupTickets = "tickets"
	GroupDocs    = "docs"
	GroupSync    = "sync"
	GroupUtility = "utility"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gitdocs",
	Short: "Correlate git history with Jira tickets and Confluence docs",
	Long: `gitdocs links your git history to your issue tracker.

It extracts ticket keys from commit messages and branch names, keeps a
local record of which commits belong to which tickets, and pushes that
record to Jira as comments. Tracker responses are cached locally so
repeated lookups stay fast and offline-friendly.`,
	SilenceUsage:               true,
	SilenceErrors:              true,
	SuggestionsMinimumDistance: 2, // Enable typo suggestions
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip git check for completion and help commands
		if cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "help" {
			return nil
		}

		if verbose && quiet {
			return fmt.Errorf("--verbose and --quiet are mutually exclusive")
		}

		return git.CheckGit()
	},
	// Run is not set - shows help when no subcommand provided
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// A .env in the working directory can carry GITDOCS_*_TOKEN vars.
	_ = godotenv.Load()

	// Create context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create logger (stderr for diagnostics)
	logger := log.New(os.Stderr, verbose, quiet)
	ctx = log.WithLogger(ctx, logger)

	// Add output printer (stdout for primary data)
	ctx = output.WithPrinter(ctx, os.Stdout)

	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Run 'gitdocs -h' for help")
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show external commands being executed")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Bypass the response cache")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Version flag
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Add command groups for organized help output
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupTickets, Title: "Ticket Commands:"},
		&cobra.Group{ID: GroupDocs, Title: "Documentation Commands:"},
		&cobra.Group{ID: GroupSync, Title: "Sync Commands:"},
		&cobra.Group{ID: GroupUtility, Title: "Utility Commands:"},
	)

	rootCmd.AddCommand(newTicketsCmd())
	rootCmd.AddCommand(newDocsCmd())
	rootCmd.AddCommand(newSyncCmd())

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newServeCmd())
}
