package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/internal/channel"
	"github.com/DoyleJ11/spelling-bee-backend/internal/config"
	"github.com/DoyleJ11/spelling-bee-backend/internal/display"
	"github.com/DoyleJ11/spelling-bee-backend/internal/logging"
	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
)

const releaseVersion = "0.1.0"

func main() {
	log.SetFlags(0)
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg := &config.Display{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Display) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bee-display",
		Short:         "Shows one spelling bee tournament on the audience screen.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	config.BindDisplay(cmd, cfg)
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("bee-display v{{.Version}}\n")
	return cmd
}

func run(parent context.Context, cfg *config.Display) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tpl, err := display.FetchTemplates(ctx, nil, cfg.TemplatesURL)
	if err != nil {
		logger.Warn("using default templates", zap.Error(err))
	}

	var src display.Source
	if cfg.DatabaseURL != "" {
		st, err := store.OpenPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		src = display.Slot{Channel: channel.New(st, cfg.Tournament, logger), Log: logger}
	} else {
		url, err := cfg.StreamURL()
		if err != nil {
			return err
		}
		src = display.WebSocket{URL: url, Log: logger}
	}

	r := display.NewRenderer(display.Options{
		Templates: tpl,
		Cues:      display.TerminalCues{Log: logger, Bell: cfg.Bell, Out: os.Stdout},
		Screen:    display.NewTerminal(os.Stdout, cfg.Width),
	}, logger)

	if err := r.Run(ctx, src.Stream(ctx)); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
