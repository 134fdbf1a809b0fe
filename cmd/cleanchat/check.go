package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check TEXT...",
		Short: "Send one moderation call and print the verdict",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg

			classifier, closeClassifier, err := newClassifier(cfg, log.Logger)
			if err != nil {
				return err
			}
			defer closeClassifier()

			ctx := cmd.Context()
			if cfg.Moderation.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Moderation.Timeout)
				defer cancel()
			}

			text := strings.Join(args, " ")
			v, err := classifier.Check(ctx, text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "final_flagged: %t\n", v.Flagged)
			fmt.Fprintf(out, "model_flagged: %t\n", v.ModelFlagged)
			fmt.Fprintf(out, "cuss_word_flagged: %t\n", v.KeywordFlagged)
			for label, score := range v.Scores {
				fmt.Fprintf(out, "  %s: %.3f\n", label, score)
			}
			return nil
		},
	}
}
