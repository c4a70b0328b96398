// Package config loads the on-disk YAML configuration for a graphdb
// database instance using viper, the way the rest of this codebase
// reaches for viper over hand-rolled flag parsing whenever config has
// more than a couple of knobs.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the tunables for opening a Database.
type Config struct {
	Storage struct {
		// Path is the backing database file. Empty means in-memory
		// (OpenMemDiskManager), a fresh temp file that is unlinked as
		// soon as it is created and whose space is reclaimed on close.
		Path string `mapstructure:"path"`
		// WALPath is the write-ahead log file. Defaults to Path+".wal"
		// when Path is set and WALPath is empty.
		WALPath string `mapstructure:"wal_path"`
		// PoolCapacity is the number of resident buffer-pool frames.
		PoolCapacity int `mapstructure:"pool_capacity"`
	} `mapstructure:"storage"`

	Server struct {
		Debug bool `mapstructure:"debug"`
	} `mapstructure:"server"`
}

// Default returns the configuration an in-memory, debug-off database
// opens with when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Storage.PoolCapacity = 256
	return cfg
}

// Load reads and unmarshals the YAML config file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return cfg, nil
}
