package cli

import (
	"fmt"

	"github.com/neoclaw-ai/roombot/internal/channels"
	"github.com/neoclaw-ai/roombot/internal/config"
	"github.com/spf13/cobra"
)

func newCLICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cli",
		Short: "Run the bot against a local room simulation in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Bot.Validate(); err != nil {
				return fmt.Errorf("bot: %w", err)
			}
			src := channels.NewCLI(cmd.InOrStdin(), cmd.OutOrStdout())
			return runBot(cmd.Context(), cfg, src)
		},
	}
}
