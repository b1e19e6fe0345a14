package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KCD1111/DMVREAL/internal/export"
	"github.com/KCD1111/DMVREAL/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.store.Close()

			exp := export.NewService(a.store, a.log)
			srv := server.New(server.Config{
				Addr:        a.cfg.Server.Addr,
				MaxUploadMB: a.cfg.Server.MaxUploadMB,
			}, a.processor, a.store, exp, a.log)

			return srv.ListenAndServe(ctx)
		},
	}
}
