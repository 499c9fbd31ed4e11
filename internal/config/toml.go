// Package config reads the user's heartweek.toml and resolves XDG paths.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Paths PathsConfig `toml:"paths"`
	Run   RunConfig   `toml:"run"`
}

// PathsConfig points at data files. Unset keys leave the CLI defaults alone.
type PathsConfig struct {
	DB       *string `toml:"db"`
	Tuning   *string `toml:"tuning"`
	Commands *string `toml:"commands"`
	Calendar *string `toml:"calendar"`
}

// RunConfig maps simulation run settings.
type RunConfig struct {
	Seed     *uint64   `toml:"seed"`
	Interval *Duration `toml:"interval"`
	Verbose  *bool     `toml:"verbose"`
}

// Duration decodes TOML strings such as "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config keys: %v", undecoded)
	}
	return cfg, nil
}
