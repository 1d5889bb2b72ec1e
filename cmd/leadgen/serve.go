package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/sepa-leadgen/internal/web"
)

func createServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lead API and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				collectors.NewDBStatsCollector(s.DB().DB, settings.Database.Name),
			)

			cfg := web.ConfigFromSettings(settings.Web)
			if port > 0 {
				cfg.Server.Port = port
			}
			return web.NewServer(cfg, s, registry).Start(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Override WEB_PORT")
	return cmd
}
