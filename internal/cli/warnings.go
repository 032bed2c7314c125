package cli

import (
	"github.com/neoclaw-ai/roombot/internal/config"
	"github.com/neoclaw-ai/roombot/internal/logging"
)

// Emit startup warnings derived from non-fatal config conditions, then the
// settings that differ from defaults.
func warnStartupConditions(cfg *config.Config, report *config.ValidationReport) {
	if cfg == nil {
		return
	}
	if report != nil {
		for _, w := range report.Warnings {
			logging.Logger().Warn(w)
		}
	}
	if changed := cfg.ChangedFromDefaults(); len(changed) > 0 {
		logging.Logger().Info("config overrides", "file", cfg.File, "values", changed)
	}
}
