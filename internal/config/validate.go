package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/neoclaw-ai/roombot/internal/logging"
)

// Validatable is implemented by config sections that can self-validate.
type Validatable interface {
	Validate() error
}

// ValidationReport carries non-fatal findings.
type ValidationReport struct {
	Warnings []string
}

func (c BotConfig) Validate() error {
	if strings.IndexFunc(c.Prefix, unicode.IsSpace) >= 0 {
		return fmt.Errorf("prefix %q must not contain whitespace", c.Prefix)
	}
	if c.JoinAttempts < 1 {
		return errors.New("join_attempts must be >= 1")
	}
	if c.JoinRetryDelay < 0 {
		return errors.New("join_retry_delay must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be > 0")
	}
	return nil
}

func (c ChannelConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Token == "" {
		return errors.New("token is required when enabled=true")
	}
	return nil
}

func (c LogConfig) Validate() error {
	if _, err := logging.ParseLevel(c.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case logging.FormatText, logging.FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format %q (allowed: %q, %q)", c.Format, logging.FormatText, logging.FormatJSON)
	}
}

func (c MetricsConfig) Validate() error {
	return nil
}

// ValidateStartup validates configuration for the server and returns warnings.
func ValidateStartup(cfg *Config) (*ValidationReport, error) {
	var errs []error
	report := &ValidationReport{}

	if len(cfg.Channels) == 0 {
		errs = append(errs, errors.New("at least one channels.* entry is required"))
	}
	sections := []struct {
		name    string
		section Validatable
	}{
		{name: "bot", section: cfg.Bot},
		{name: "log", section: cfg.Log},
		{name: "metrics", section: cfg.Metrics},
	}
	for _, s := range sections {
		if err := s.section.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}

	for name, chCfg := range cfg.Channels {
		if err := chCfg.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("channels.%s: %w", name, err))
		}
		if name == defaultTelegramChannel && chCfg.Enabled && len(chCfg.AllowedUsers) == 0 {
			report.Warnings = append(report.Warnings, "channels.telegram.allowed_users is empty; every user can trigger handlers")
		}
	}
	if cfg.Bot.Prefix == "" {
		report.Warnings = append(report.Warnings, "bot.prefix is empty; prefixed commands only fire for handlers with their own prefix")
	}

	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}
	return report, nil
}
