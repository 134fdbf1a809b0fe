// Command moderator is a development stand-in for the moderation service. It
// answers POST /api/check/ (and, optionally, NATS requests) with a keyword
// rule in the reference response shape, so the widget can run locally.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cleanchat/cleanchat/internal/logging"
	"github.com/cleanchat/cleanchat/internal/messaging"
	"github.com/cleanchat/cleanchat/internal/moderation"
)

type options struct {
	listen    string
	natsURL   string
	subject   string
	terms     []string
	logLevel  string
	logFormat string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("moderator failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "moderator",
		Short:         "Keyword moderation stand-in speaking the moderation wire contract",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := logging.Setup(opts.logLevel, opts.logFormat, os.Stderr)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.listen, "listen", "127.0.0.1:8000", "HTTP listen address")
	f.StringVar(&opts.natsURL, "nats-url", "", "also answer NATS requests on this server")
	f.StringVar(&opts.subject, "subject", moderation.DefaultSubject, "NATS subject to answer on")
	f.StringSliceVar(&opts.terms, "terms", nil, "replace the built-in keyword list")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level")
	f.StringVar(&opts.logFormat, "log-format", logging.FormatAuto, "log format (console, json, auto)")
	return cmd
}

func newMux(handler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/check/", handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

func run(ctx context.Context, opts *options) error {
	filter := moderation.NewFilter()
	if len(opts.terms) > 0 {
		filter = moderation.NewFilterWithTerms(opts.terms)
	}
	handler := moderation.NewHandler(filter, log.Logger.With().Str("component", "moderator").Logger())

	if opts.natsURL != "" {
		natsConfig := messaging.DefaultNATSConfig()
		natsConfig.URL = opts.natsURL
		natsConfig.Name = "cleanchat-moderator"

		natsClient, err := messaging.NewNATSClient(natsConfig, log.Logger)
		if err != nil {
			return err
		}
		defer natsClient.Close()

		if err := natsClient.Reply(opts.subject, handler.EvaluateJSON); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              opts.listen,
		Handler:           newMux(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("listen", opts.listen).
		Str("nats_url", opts.natsURL).
		Str("subject", opts.subject).
		Int("terms", filter.Terms()).
		Msg("moderation stand-in running")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "moderator: http server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
