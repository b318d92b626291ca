package cli

import (
	"github.com/spf13/cobra"

	"github.com/alexanderramin/commitguard/internal/app"
	"github.com/alexanderramin/commitguard/internal/config"
)

func newServeCmd(a *App) *cobra.Command {
	var addr, metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and event stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("metrics-addr") {
				a.cfg.Server.MetricsAddr = metricsAddr
			}
			if errs := a.cfg.Validate(); len(errs) > 0 {
				return config.ValidationErrors(errs)
			}
			return app.Serve(cmd.Context(), a.cfg, a.Version, a.logger, nil)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus listen address; empty disables")
	return cmd
}
