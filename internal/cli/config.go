package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Record sources selectable with --source.
const (
	SourceLocal = "local"
	SourceAPI   = "api"
)

// DefaultConfigDir holds the CLI config file and the local database.
const DefaultConfigDir = "~/.config/intensity"

// Config is the CLI configuration read from config.yaml and overridden by flags.
type Config struct {
	APIURL  string `mapstructure:"api_url"`
	UserID  string `mapstructure:"user_id"`
	LocalDB string `mapstructure:"local_db"`
	Source  string `mapstructure:"source"`
	NoColor bool   `mapstructure:"no_color"`
}

// LoadConfig reads configuration from cfgFile, or from the default location when empty. A
// missing file is not an error.
func LoadConfig(cfgFile string) (Config, error) {
	v := viper.New()
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("user_id", "")
	v.SetDefault("local_db", filepath.Join(DefaultConfigDir, "records.db"))
	v.SetDefault("source", SourceLocal)
	v.SetDefault("no_color", false)
	v.SetEnvPrefix("INTENSITY")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(expandPath(DefaultConfigDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LocalDB = expandPath(cfg.LocalDB)
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	return cfg, cfg.Validate()
}

// Validate checks the source selection.
func (c Config) Validate() error {
	switch c.Source {
	case SourceLocal, SourceAPI:
		return nil
	default:
		return fmt.Errorf("unknown source %q (local, api)", c.Source)
	}
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
