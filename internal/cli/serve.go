package cli

import (
	"github.com/spf13/cobra"

	"github.com/phylocite/phylocite/pkg/api"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		maxRecords int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pipeline runs over HTTP",
		Long: `Serve the run API until interrupted:

  POST /v1/runs            run the pipeline on a JSON options body
  GET  /v1/runs/{id}       run summary
  GET  /v1/runs/{id}/dot   run diagram

Use --redis-url to share cached runs between instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx)
			if err != nil {
				return err
			}
			defer runner.Close()

			srv := api.New(runner, c.Logger, api.WithMaxRecords(maxRecords))
			printInfo("Listening on %s", StyleHighlight.Render(addr))
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().IntVar(&maxRecords, "max-records", api.DefaultMaxRecords, "largest num_records a request may ask for")
	return cmd
}
