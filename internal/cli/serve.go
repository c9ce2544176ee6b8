package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-sim/internal/server"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the report server",
		Long: `Start the absim report server.

The server provides:
  - Interactive report page with simulation sliders and file upload
  - JSON API for simulations, uploads and sample sizes
  - Health check and Prometheus metrics endpoints

Example:
  absim serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Report server running at http://localhost:%d\n", cfg.Server.Port)
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

			return server.New(cfg, logger).Start(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")

	return cmd
}
