// Package config loads CLI settings from quire.yaml, QUIRE_* environment
// variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. QUIRE_VAULT.
const EnvPrefix = "QUIRE"

// Adapters known to the CLI.
const (
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
	AdapterRemote = "remote"
)

// Config holds the CLI settings.
type Config struct {
	// Vault is a directory (fs), a database file (sqlite) or a ws:// URL (remote).
	Vault      string        `mapstructure:"vault"`
	Adapter    string        `mapstructure:"adapter"`
	Format     string        `mapstructure:"format"`
	Versioning bool          `mapstructure:"versioning"`
	ReadOnly   bool          `mapstructure:"read_only"`
	SystemDir  string        `mapstructure:"system_dir"`
	ImagesDir  string        `mapstructure:"images_dir"`
	ImagesURL  string        `mapstructure:"images_url"`
	Addr       string        `mapstructure:"addr"`
	SyncDelay  time.Duration `mapstructure:"sync_delay"`
	Columns    int           `mapstructure:"columns"`
}

// New returns a viper instance with defaults and environment binding set.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("vault", ".")
	v.SetDefault("adapter", AdapterFS)
	v.SetDefault("format", ".md")
	v.SetDefault("versioning", false)
	v.SetDefault("read_only", false)
	v.SetDefault("system_dir", ".quire")
	v.SetDefault("images_dir", "")
	v.SetDefault("images_url", "")
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("sync_delay", 300*time.Millisecond)
	v.SetDefault("columns", 80)
	return v
}

// Load reads .env (when present), then cfgFile, or quire.yaml from the
// working directory or the user config directory. Environment variables
// win over the file.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("quire")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "quire"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Adapter {
	case AdapterFS, AdapterSQLite, AdapterRemote:
	default:
		return fmt.Errorf("unknown adapter %q", c.Adapter)
	}
	switch c.Format {
	case ".md", ".json", ".yaml", ".yml":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if c.Vault == "" {
		return errors.New("vault is required")
	}
	if c.SyncDelay <= 0 {
		return fmt.Errorf("sync_delay must be positive, got %s", c.SyncDelay)
	}
	if c.Columns <= 0 {
		return fmt.Errorf("columns must be positive, got %d", c.Columns)
	}
	return nil
}

// Images returns the image directory, defaulting to <vault>/<system_dir>/images
// for the fs adapter and <dir of vault>/images otherwise.
func (c *Config) Images() string {
	if c.ImagesDir != "" {
		return c.ImagesDir
	}
	if c.Adapter == AdapterFS {
		return filepath.Join(c.Vault, c.SystemDir, "images")
	}
	if c.Adapter == AdapterSQLite {
		return filepath.Join(filepath.Dir(c.Vault), "images")
	}
	return ""
}
