// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const FileName = "config.yaml"

type Config struct {
	Log struct {
		Level    string `mapstructure:"level"`    // debug, info, warn, error
		Encoding string `mapstructure:"encoding"` // console, json
	} `mapstructure:"log"`

	Graph struct {
		LabelLength int `mapstructure:"label_length"`
	} `mapstructure:"graph"`

	Cache struct {
		Size int `mapstructure:"size"` // fingerprint cache entries
	} `mapstructure:"cache"`

	Journal struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"journal"`

	// Ignore holds glob patterns matched against each path component of the
	// working tree. The metadata directory is always ignored.
	Ignore []string `mapstructure:"ignore"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("graph.label_length", 12)
	v.SetDefault("cache.size", 4096)
	v.SetDefault("journal.enabled", true)
	v.SetDefault("ignore", []string{})
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("WIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the configuration used when no repository is available yet.
func Default() *Config {
	var cfg Config
	// Unmarshalling defaults alone cannot fail.
	_ = newViper().Unmarshal(&cfg)
	return &cfg
}

// Load reads metaDir/config.yaml if present and applies WIT_* overrides.
func Load(metaDir string) (*Config, error) {
	v := newViper()

	path := filepath.Join(metaDir, FileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("checking %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Graph.LabelLength <= 0 {
		return nil, fmt.Errorf("graph.label_length must be positive, got %d", cfg.Graph.LabelLength)
	}
	if cfg.Cache.Size <= 0 {
		return nil, fmt.Errorf("cache.size must be positive, got %d", cfg.Cache.Size)
	}

	return &cfg, nil
}
