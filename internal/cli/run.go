package cli

import (
	"context"

	"github.com/neoclaw-ai/roombot/internal/bot"
	"github.com/neoclaw-ai/roombot/internal/commands"
	"github.com/neoclaw-ai/roombot/internal/config"
	"github.com/neoclaw-ai/roombot/internal/handler"
	"github.com/neoclaw-ai/roombot/internal/logging"
	"github.com/neoclaw-ai/roombot/internal/runtime"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

// DepConfig is the dependency key under which handlers find the loaded config.
const DepConfig = "config"

func botHandlers(cfg *config.Config) []handler.Descriptor {
	handlers := commands.Builtins()
	if cfg.Bot.JoinOnInvite {
		handlers = append(handlers, runtime.JoinOnInvite(runtime.RetryPolicy{
			Attempts: cfg.Bot.JoinAttempts,
			Delay:    cfg.Bot.JoinRetryDelay,
		}))
	}
	return handlers
}

// runBot registers handlers with src, listens until ctx is done or src
// stops, then waits for in-flight handlers up to the shutdown timeout.
func runBot(ctx context.Context, cfg *config.Config, src transport.Source, opts ...runtime.Option) error {
	deps := bot.NewDeps(map[string]any{DepConfig: cfg})
	d, err := runtime.Setup(src, botHandlers(cfg), deps, cfg.Bot.Prefix, opts...)
	if err != nil {
		return err
	}
	logging.Logger().Info("handlers registered", "listeners", d.Registered(), "prefix", cfg.Bot.Prefix)

	listenErr := src.Listen(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Bot.ShutdownTimeout)
	defer cancel()
	if err := d.Wait(shutdownCtx); err != nil {
		logging.Logger().Warn("handlers still running at shutdown", "err", err)
	}
	return listenErr
}
