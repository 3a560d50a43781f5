package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/wrwatch/internal/adapters/http/api"
	"github.com/okian/wrwatch/internal/adapters/http/swagger"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve records, stats and metrics over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, err := newService(cfg)
		if err != nil {
			return err
		}
		return api.NewServer(svc, svc).ListenAndServe(ctx, cfg.Addr, swagger.Register)
	},
}
