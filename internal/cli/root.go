// Package cli wires Cobra subcommands to application dependencies; it is a thin controller with no business logic.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/neoclaw-ai/roombot/internal/bootstrap"
	"github.com/neoclaw-ai/roombot/internal/config"
	"github.com/neoclaw-ai/roombot/internal/logging"
	"github.com/neoclaw-ai/roombot/internal/store"
	"github.com/spf13/cobra"
)

// ErrFirstRunSetup is returned after the first run created the home
// directory. main treats it as a clean exit.
var ErrFirstRunSetup = errors.New("first run setup complete")

// NewRootCmd creates the root command and registers all subcommands.
func NewRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "roombot",
		Short: "Chat room bot with prefixed commands",
		// Let main handle fatal error rendering through structured logs.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// config and version only print and must not trigger first-run setup.
			switch cmd.Name() {
			case "config", "version":
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := configureLogging(cmd, cfg, verbose); err != nil {
				return err
			}

			firstRun := false
			if cfg.File == "" {
				firstRun = true
			}
			if err := bootstrap.Initialize(cfg); err != nil {
				return err
			}

			if firstRun {
				if _, err := fmt.Fprintf(
					cmd.ErrOrStderr(),
					"First run setup complete.\nEdit config file: %s\nRestart roombot.\n",
					cfg.ConfigPath(),
				); err != nil {
					return err
				}
				return ErrFirstRunSetup
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to `roombot start` when no subcommand is provided.
			startCmd, _, err := cmd.Find([]string{"start"})
			if err != nil {
				return err
			}
			startCmd.SetContext(cmd.Context())
			return startCmd.RunE(startCmd, args)
		},
	}

	root.AddCommand(newConfigCmd())
	root.AddCommand(newStartCmd())
	root.AddCommand(newCLICmd())
	root.AddCommand(newVersionCmd())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging (debug level)")

	return root
}

func configureLogging(cmd *cobra.Command, cfg *config.Config, verbose bool) error {
	if err := logging.Configure(cmd.ErrOrStderr(), cfg.Log.Format); err != nil {
		return err
	}
	if verbose {
		logging.SetLevel(slog.LevelDebug)
		return nil
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.SetLevel(level)
	return nil
}

func writePIDFile(path string) (func(), error) {
	if err := store.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return func() { os.Remove(path) }, nil
}
