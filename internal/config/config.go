// Package config loads roombot configuration from a TOML or JSON file, a .env
// file and environment variables, exposing typed structs for every section.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// HomeEnvVar overrides the roombot home directory.
	HomeEnvVar = "ROOMBOT_HOME"

	defaultTelegramChannel = "telegram"
)

// Config is the runtime configuration loaded from defaults, the config file, and env vars.
type Config struct {
	// HomeDir is runtime-resolved from ROOMBOT_HOME and not read from config.
	HomeDir string `mapstructure:"-"`
	// File is the config file that was read, empty when none existed.
	File     string                   `mapstructure:"-"`
	Bot      BotConfig                `mapstructure:"bot"`
	Channels map[string]ChannelConfig `mapstructure:"channels"`
	Log      LogConfig                `mapstructure:"log"`
	Metrics  MetricsConfig            `mapstructure:"metrics"`
}

// BotConfig configures dispatch behavior.
type BotConfig struct {
	// Prefix is the default command prefix. Empty disables prefixed commands
	// unless a handler sets its own.
	Prefix          string        `mapstructure:"prefix"`
	JoinOnInvite    bool          `mapstructure:"join_on_invite"`
	JoinAttempts    int           `mapstructure:"join_attempts"`
	JoinRetryDelay  time.Duration `mapstructure:"join_retry_delay"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ChannelConfig configures one chat transport.
type ChannelConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Token        string  `mapstructure:"token"`
	AllowedUsers []int64 `mapstructure:"allowed_users"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

var defaultConfig = Config{
	Bot: BotConfig{
		Prefix:          "!",
		JoinOnInvite:    true,
		JoinAttempts:    3,
		JoinRetryDelay:  2 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	},
	Channels: map[string]ChannelConfig{
		defaultTelegramChannel: {
			Enabled: true,
			Token:   "",
		},
	},
	Log: LogConfig{
		Level:  "info",
		Format: "text",
	},
	Metrics: MetricsConfig{
		Listen: "",
	},
}

// HomeDir returns the roombot home directory.
// Uses ROOMBOT_HOME if set, otherwise defaults to ~/.roombot.
func HomeDir() (string, error) {
	if dir := os.Getenv(HomeEnvVar); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return defaultHomePath(home), nil
}

// Load merges hardcoded defaults and config file values in that order.
// A .env file in the home directory is loaded into the environment first so
// "$VAR" references in string values can point at it.
func Load() (*Config, error) {
	home, err := HomeDir()
	if err != nil {
		return nil, err
	}
	if err := loadDotEnv(home); err != nil {
		return nil, err
	}

	v, file, err := readConfig(home)
	if err != nil {
		return nil, err
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		expandEnvStringHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = decodeHook
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.HomeDir = home
	cfg.File = file

	return &cfg, nil
}

// Write writes the merged configuration (defaults overlaid by user config)
// to w in TOML format.
func Write(w io.Writer) error {
	if w == nil {
		return errors.New("writer is required")
	}

	home, err := HomeDir()
	if err != nil {
		return err
	}
	v, _, err := readConfig(home)
	if err != nil {
		return err
	}

	// Keep duration fields human-readable in generated TOML.
	v.Set("bot.join_retry_delay", v.GetDuration("bot.join_retry_delay").String())
	v.Set("bot.shutdown_timeout", v.GetDuration("bot.shutdown_timeout").String())

	v.SetConfigType("toml")
	if err := v.WriteConfigTo(w); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultUserConfigTOML renders the bootstrap config written on first run.
func DefaultUserConfigTOML() (string, error) {
	v := viper.New()
	v.SetConfigType("toml")

	v.Set("bot.prefix", defaultConfig.Bot.Prefix)
	v.Set("bot.join_on_invite", defaultConfig.Bot.JoinOnInvite)
	v.Set("channels.telegram.enabled", true)
	v.Set("channels.telegram.token", "$TELEGRAM_BOT_TOKEN")
	v.Set("log.level", defaultConfig.Log.Level)

	var out bytes.Buffer
	if err := v.WriteConfigTo(&out); err != nil {
		return "", fmt.Errorf("write default user config: %w", err)
	}
	return out.String(), nil
}

// ChangedFromDefaults lists "key=value" pairs that differ from the built-in
// defaults, sorted by key. Tokens are never included verbatim.
func (c *Config) ChangedFromDefaults() []string {
	current := c.flatten()
	defaults := defaultConfig.flatten()

	var changed []string
	for key, value := range current {
		if defaults[key] == value {
			continue
		}
		changed = append(changed, key+"="+value)
	}
	sort.Strings(changed)
	return changed
}

func (c *Config) flatten() map[string]string {
	out := map[string]string{
		"bot.prefix":           c.Bot.Prefix,
		"bot.join_on_invite":   fmt.Sprint(c.Bot.JoinOnInvite),
		"bot.join_attempts":    fmt.Sprint(c.Bot.JoinAttempts),
		"bot.join_retry_delay": c.Bot.JoinRetryDelay.String(),
		"bot.shutdown_timeout": c.Bot.ShutdownTimeout.String(),
		"log.level":            c.Log.Level,
		"log.format":           c.Log.Format,
		"metrics.listen":       c.Metrics.Listen,
	}
	for name, ch := range c.Channels {
		out["channels."+name+".enabled"] = fmt.Sprint(ch.Enabled)
		out["channels."+name+".token"] = redact(ch.Token)
		out["channels."+name+".allowed_users"] = fmt.Sprint(ch.AllowedUsers)
	}
	return out
}

func redact(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 10 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-3:]
}

// TelegramChannel returns Telegram channel config with fallback defaults.
func (c *Config) TelegramChannel() ChannelConfig {
	if ch, ok := c.Channels[defaultTelegramChannel]; ok {
		return ch
	}
	return defaultConfig.Channels[defaultTelegramChannel]
}

func readConfig(home string) (*viper.Viper, string, error) {
	v := viper.New()
	setDefaults(v)

	path, format := findConfigFile(home)
	v.SetConfigFile(path)
	v.SetConfigType(format)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("read config file: %w", err)
		}
		return v, "", nil
	}
	return v, path, nil
}

// findConfigFile prefers config.toml and falls back to config.json.
func findConfigFile(home string) (string, string) {
	tomlPath := homeConfigPath(home)
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, "toml"
	}
	jsonPath := filepath.Join(home, ConfigJSONFilePath)
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, "json"
	}
	return tomlPath, "toml"
}

func loadDotEnv(home string) error {
	path := filepath.Join(home, DotEnvFilePath)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.prefix", defaultConfig.Bot.Prefix)
	v.SetDefault("bot.join_on_invite", defaultConfig.Bot.JoinOnInvite)
	v.SetDefault("bot.join_attempts", defaultConfig.Bot.JoinAttempts)
	v.SetDefault("bot.join_retry_delay", defaultConfig.Bot.JoinRetryDelay)
	v.SetDefault("bot.shutdown_timeout", defaultConfig.Bot.ShutdownTimeout)

	v.SetDefault("channels.telegram.enabled", defaultConfig.Channels[defaultTelegramChannel].Enabled)
	v.SetDefault("channels.telegram.token", defaultConfig.Channels[defaultTelegramChannel].Token)

	v.SetDefault("log.level", defaultConfig.Log.Level)
	v.SetDefault("log.format", defaultConfig.Log.Format)

	v.SetDefault("metrics.listen", defaultConfig.Metrics.Listen)
}

func expandEnvStringHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.String {
			return data, nil
		}
		value, ok := data.(string)
		if !ok {
			return data, nil
		}
		return os.ExpandEnv(value), nil
	}
}
