// Package main is the entry point for the roombot binary.
// It delegates immediately to the CLI command tree.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/neoclaw-ai/roombot/internal/cli"
	"github.com/neoclaw-ai/roombot/internal/logging"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, cli.ErrFirstRunSetup) {
			os.Exit(0)
		}
		logging.Logger().Error("fatal error", "err", err)
		os.Exit(1)
	}
}
