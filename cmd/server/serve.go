package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"clockgate/internal/platform/httpserver"
	"clockgate/internal/platform/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the audit outbox relay",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.New(cfg.Log.Level, cfg.Log.Format)
		if cfg.UsingDevSigningKey() {
			log.Warn("auth.jwt_signing_key is the development default; set CLOCKGATE_AUTH_JWT_SIGNING_KEY")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := httpserver.New(cfg.Server.Addr, a.router, cfg.Server.ReadHeaderTimeout)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return httpserver.Serve(gctx, srv, log, cfg.Server.ShutdownTimeout)
		})
		if a.relay != nil {
			g.Go(func() error {
				return a.relay.Run(gctx)
			})
		}
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		log.Info("clockgate stopped")
		return nil
	},
}
