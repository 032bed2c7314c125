package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/neoclaw-ai/roombot/internal/channels"
	"github.com/neoclaw-ai/roombot/internal/config"
	"github.com/neoclaw-ai/roombot/internal/logging"
	"github.com/neoclaw-ai/roombot/internal/metrics"
	"github.com/neoclaw-ai/roombot/internal/runtime"
	"github.com/neoclaw-ai/roombot/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var telegramSourceFactory = func(token string, allowedUsers []int64) transport.Source {
	return channels.NewTelegram(token, allowedUsers)
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the bot on the configured chat channel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			report, err := config.ValidateStartup(cfg)
			if err != nil {
				return err
			}
			warnStartupConditions(cfg, report)

			telegram := cfg.TelegramChannel()
			if !telegram.Enabled {
				return errors.New("no chat channel enabled; set channels.telegram.enabled = true or use `roombot cli`")
			}

			if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
				return err
			}
			removePID, err := writePIDFile(cfg.PIDPath())
			if err != nil {
				return err
			}
			defer removePID()

			registry := prometheus.NewRegistry()
			m := metrics.New(registry)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logging.Logger().Info("starting bot", "channel", "telegram", "home_dir", cfg.HomeDir)

			g, gctx := errgroup.WithContext(runCtx)
			src := telegramSourceFactory(telegram.Token, telegram.AllowedUsers)
			g.Go(func() error {
				return runBot(gctx, cfg, src, runtime.WithObserver(m))
			})
			if cfg.Metrics.Listen != "" {
				g.Go(func() error {
					return m.Serve(gctx, cfg.Metrics.Listen)
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			logging.Logger().Info("bot stopped")
			return nil
		},
	}
}
