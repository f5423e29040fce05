package cmd

import (
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/datask-cli/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload page and JSON API",
	Example: `  datask serve
  datask serve --addr 0.0.0.0:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		if cmd.Flags().Changed("addr") && serveAddr != "" {
			c.ServerAddr = serveAddr
		}
		if c.ServerAddr == "" {
			c.ServerAddr = "127.0.0.1:7860"
		}
		logger := newLogger(c)
		svc, _, err := newService(c, logger)
		if err != nil {
			return err
		}
		h := server.NewHandler(server.Dependencies{
			Logger:         logger,
			Service:        svc,
			MaxUploadBytes: int64(c.MaxUploadMB) << 20,
		})
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.ListenAndServe(ctx, c.ServerAddr, h, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config server_addr)")
}
