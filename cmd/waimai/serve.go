package main

import (
	"waimai-crawler/lib/serviceutil"
	"waimai-crawler/lib/telemetry"
	"waimai-crawler/services/web"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the web front end.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			ttl, err := duration("web.cache_ttl", a.cfg.Web.CacheTTL)
			if err != nil {
				return err
			}
			telemetry.InstrumentPerfStats(cmd.Context())

			opts := web.Options{
				CacheTTL:    ttl,
				CacheSize:   a.cfg.Web.CacheSize,
				AccessToken: a.cfg.Web.AccessToken,
			}
			if a.archive != nil {
				opts.Archive = a.archive
			}
			server := web.NewServer(a.pipeline, opts, telemetry.SlogAPI{})
			return serviceutil.StartHttpServer(cmd.Context(), a.cfg.Web.Addr, server.Handler())
		})
	},
}
