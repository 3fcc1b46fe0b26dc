package main

import (
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/maine/publishing_radio/internal/server"
)

var (
	flagAddr string
	flagDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the published episodes and index over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog()

		addr := cfg.Server.Addr
		if flagAddr != "" {
			addr = flagAddr
		}
		dir := cfg.Output.PublicDir
		if flagDir != "" {
			dir = flagDir
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		gin.SetMode(gin.ReleaseMode)
		return server.Serve(ctx, addr, server.NewRouter(dir))
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default from config, localhost:8000)")
	serveCmd.Flags().StringVar(&flagDir, "dir", "", "directory to serve (default output.public_dir)")
}
