package main

import (
	"github.com/spf13/cobra"

	"tablelinker/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.settings.Server
			if cmd.Flags().Changed("addr") {
				s.Addr = addr
			}
			srv := server.New(server.Config{
				Addr:            s.Addr,
				ReadTimeout:     s.ReadTimeout,
				WriteTimeout:    s.WriteTimeout,
				ShutdownTimeout: s.ShutdownTimeout,
				MaxUploadBytes:  s.MaxUploadBytes,
			}, a.runner)
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address (default SERVER_ADDR)")
	return cmd
}
