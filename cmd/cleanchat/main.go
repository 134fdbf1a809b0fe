// Command cleanchat runs the CleanChat widget: a web widget served over
// websockets, a terminal widget, and two small diagnostic commands.
package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cleanchat/cleanchat/internal/config"
	"github.com/cleanchat/cleanchat/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	logFile    string

	cfg    config.Config
	logOut *os.File
}

// logWriter returns the log destination for the named command. The tui owns
// the terminal, so its logs go to --log-file or nowhere.
func (o *rootOptions) logWriter(name string) (io.Writer, error) {
	if name != "tui" {
		return os.Stderr, nil
	}
	if o.logFile == "" {
		return io.Discard, nil
	}
	f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	o.logOut = f
	return f, nil
}

func (o *rootOptions) closeLog() error {
	if o.logOut == nil {
		return nil
	}
	err := o.logOut.Close()
	o.logOut = nil
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("cleanchat failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "cleanchat",
		Short:         "Chat widget that hides messages flagged by a moderation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = opts.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = opts.logFormat
			}
			opts.cfg = cfg

			w, err := opts.logWriter(cmd.Name())
			if err != nil {
				return err
			}
			_, err = logging.Setup(cfg.Log.Level, cfg.Log.Format, w)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.closeLog()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", logging.FormatAuto, "log format (console, json, auto)")

	root.AddCommand(
		newServeCmd(opts),
		newTUICmd(opts),
		newCheckCmd(opts),
		newProbeCmd(opts),
	)
	return root
}
