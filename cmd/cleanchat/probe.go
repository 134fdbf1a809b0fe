package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleanchat/cleanchat/internal/chat"
	"github.com/cleanchat/cleanchat/internal/wsclient"
)

func newProbeCmd(opts *rootOptions) *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe TEXT...",
		Short: "Submit one message to a running server and print the settled view",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			c, err := wsclient.New(ctx, url)
			if err != nil {
				return err
			}
			defer c.Close()

			id, err := c.WaitForSession(ctx)
			if err != nil {
				return err
			}

			if err := c.SubmitText(strings.Join(args, " ")); err != nil {
				return err
			}
			v, err := c.WaitForView(ctx, func(v chat.View) bool {
				return len(v.Rows) > 0 && !v.Pending
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s (connected in %s)\n", id, c.GetMetrics().ConnectLatency.Round(time.Millisecond))
			for _, row := range v.Rows {
				if row.Hidden {
					fmt.Fprintf(out, "  %s\n", row.Text)
					continue
				}
				fmt.Fprintf(out, "  [%s] %s\n", row.SentAt, row.Text)
			}
			fmt.Fprintln(out, v.FooterText())
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "ws://127.0.0.1:8080/ws", "websocket URL of a running server")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall time limit")
	return cmd
}
