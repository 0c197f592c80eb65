package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitdocs/gitdocs/internal/doctor"
	"github.com/gitdocs/gitdocs/internal/output"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "doctor",
		Short:   "Diagnose the gitdocs setup",
		GroupID: GroupUtility,
		Args:    cobra.NoArgs,
		Long: `Check that git, configuration, credentials, the cache and the mapping
record are all in working order. Exits non-zero when a check fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			checks := doctor.Run(ctx, a)
			for _, c := range checks {
				symbol := "✓"
				switch c.Status {
				case doctor.StatusWarn:
					symbol = "!"
				case doctor.StatusFail:
					symbol = "✗"
				}
				out.Printf("%s %-16s %s\n", symbol, c.Name, c.Detail)
			}

			if doctor.Failed(checks) {
				return fmt.Errorf("some checks failed")
			}
			return nil
		},
	}

	return cmd
}
