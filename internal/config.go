package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds the runtime knobs that are not part of the import
// semantics. The media allowlist is fixed on purpose: what counts as a
// recognized file must not vary between machines sharing a library.
type Config struct {
	Workers     int    `mapstructure:"workers"`
	LogLevel    string `mapstructure:"log_level"`
	UseExifTool bool   `mapstructure:"use_exiftool"`
}

// LoadConfig reads curator.toml from the user config directory. A missing
// file is fine; defaults apply.
func LoadConfig() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to find user config dir: %w", err)
	}

	viper.SetConfigName("curator")
	viper.SetConfigType("toml")
	viper.AddConfigPath(filepath.Join(configDir, "curator"))

	viper.SetDefault("workers", runtime.NumCPU())
	viper.SetDefault("log_level", "info")
	viper.SetDefault("use_exiftool", true)

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found; that's OK, just use defaults
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
