package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cleanchat/cleanchat/internal/session"
	"github.com/cleanchat/cleanchat/internal/web"
	"github.com/cleanchat/cleanchat/internal/ws"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web widget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("listen") {
				cfg.Server.ListenAddr = listen
			}

			classifier, closeClassifier, err := newClassifier(cfg, log.Logger)
			if err != nil {
				return err
			}
			defer closeClassifier()

			serverConfig := ws.DefaultServerConfig()
			serverConfig.ListenAddr = cfg.Server.ListenAddr
			serverConfig.MaxConnections = cfg.Server.MaxConnections
			serverConfig.ReadTimeout = cfg.Server.ReadTimeout
			serverConfig.WriteTimeout = cfg.Server.WriteTimeout
			serverConfig.Heartbeat = ws.HeartbeatConfig{
				Interval: cfg.Server.HeartbeatInterval,
				Timeout:  cfg.Server.HeartbeatTimeout,
			}
			serverConfig.TimeFormat = cfg.Widget.TimeFormat
			serverConfig.CallTimeout = cfg.Moderation.Timeout

			serverOpts := []ws.Option{ws.WithPage(web.Handler()), ws.WithLogger(log.Logger)}
			if cfg.Redis.Addr != "" {
				store, err := session.NewStore(cfg.Redis.Addr, cfg.Server.Name)
				if err != nil {
					return err
				}
				defer store.Close()
				serverOpts = append(serverOpts, ws.WithRegistry(store))
			}

			log.Info().
				Str("listen_addr", serverConfig.ListenAddr).
				Str("moderation", cfg.Moderation.Transport).
				Str("endpoint", cfg.Moderation.Endpoint).
				Dur("moderation_timeout", cfg.Moderation.Timeout).
				Str("redis_addr", cfg.Redis.Addr).
				Str("server_name", cfg.Server.Name).
				Msg("cleanchat server starting")

			server := ws.NewServer(serverConfig, classifier, serverOpts...)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(server.Start)
			g.Go(func() error {
				<-ctx.Done()
				log.Info().Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen_addr)")
	return cmd
}
