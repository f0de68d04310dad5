package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danshapiro/murderparty/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr, staticDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (and the browser client when a static dir is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if staticDir != "" {
				cfg.Server.StaticDir = staticDir
			}
			eng, err := a.buildEngine(cfg)
			if err != nil {
				return err
			}
			a.logger.Info("generation settings",
				zap.String("provider", cfg.LLM.Provider),
				zap.Bool("mock", cfg.Generation.Mock),
				zap.Int("max_concurrent", cfg.Server.MaxConcurrent),
			)
			srv := server.New(server.Config{
				Addr:          cfg.Server.Addr,
				StaticDir:     cfg.Server.StaticDir,
				MaxConcurrent: cfg.Server.MaxConcurrent,
				RunRetention:  cfg.Server.RunRetention,
			}, eng, a.logger)
			return srv.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "directory holding index.html and static assets")
	return cmd
}
