package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/neoclaw-ai/roombot/internal/config"
	"github.com/neoclaw-ai/roombot/internal/store"
)

const dotEnvTemplate = "# Values here are available as $NAME in config.toml.\n# TELEGRAM_BOT_TOKEN=\n"

// Initialize creates the roombot home tree if missing. Existing files are
// never overwritten, and a config.json suppresses the default config.toml.
func Initialize(cfg *config.Config) error {
	dirs := []string{
		cfg.HomeDir,
		cfg.DataDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	if !exists(filepath.Join(cfg.HomeDir, config.ConfigJSONFilePath)) {
		body, err := config.DefaultUserConfigTOML()
		if err != nil {
			return err
		}
		if err := writeFileIfMissing(cfg.ConfigPath(), body, 0o644); err != nil {
			return err
		}
	}

	// .env usually holds tokens.
	return writeFileIfMissing(filepath.Join(cfg.HomeDir, config.DotEnvFilePath), dotEnvTemplate, 0o600)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeFileIfMissing(path, content string, perm os.FileMode) error {
	_, err := store.CreateFile(path, []byte(content), perm)
	return err
}
