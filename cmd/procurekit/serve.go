package main

import (
	"github.com/spf13/cobra"

	"github.com/rushteam/procurekit/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return server.New(a.Facade, a.Loader, cfg.Server, lg).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
