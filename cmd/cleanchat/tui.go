package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cleanchat/cleanchat/internal/chat"
	"github.com/cleanchat/cleanchat/internal/tui"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the chat widget in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg

			classifier, closeClassifier, err := newClassifier(cfg, log.Logger)
			if err != nil {
				return err
			}
			defer closeClassifier()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := chat.NewSession(chat.WithTimeFormat(cfg.Widget.TimeFormat))
			m := tui.New(ctx, s, classifier,
				tui.WithLogger(log.Logger.With().Str("component", "tui").Logger()),
				tui.WithCallTimeout(cfg.Moderation.Timeout),
			)
			return tui.Run(ctx, m)
		},
	}

	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "append logs to this file (discarded by default)")
	return cmd
}
