package config

import "path/filepath"

const (
	// Layout under ROOMBOT_HOME.
	ConfigFilePath     = "config.toml"
	ConfigJSONFilePath = "config.json"
	DotEnvFilePath     = ".env"
	DataDirPath        = "data"
	PIDFilePath        = "roombot.pid"
)

func homeConfigPath(home string) string {
	return filepath.Join(home, ConfigFilePath)
}

func defaultHomePath(home string) string {
	return filepath.Join(home, ".roombot")
}

func (c *Config) ConfigPath() string {
	return homeConfigPath(c.HomeDir)
}

func (c *Config) DataDir() string {
	return filepath.Join(c.HomeDir, DataDirPath)
}

func (c *Config) PIDPath() string {
	return filepath.Join(c.DataDir(), PIDFilePath)
}
