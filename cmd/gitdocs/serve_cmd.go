package main

import (
	"github.com/spf13/cobra"

	"github.com/gitdocs/gitdocs/internal/web"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the local JSON API",
		GroupID: GroupUtility,
		Args:    cobra.NoArgs,
		Long: `Run a local HTTP server exposing tickets, mappings and cache state as
JSON. Intended for editor plugins and scripts on this machine; the
server binds to localhost only.`,
		Example: `  gitdocs serve
  gitdocs serve --addr 127.0.0.1:9000
  curl http://127.0.0.1:7317/api/status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			return web.NewServer(a, addr).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", web.DefaultAddr, "Listen address")

	return cmd
}
