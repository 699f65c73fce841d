// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Cloud    CloudConfig    `toml:"cloud"`
	Timeline TimelineConfig `toml:"timeline"`
	Practice PracticeConfig `toml:"practice"`
	Log      LogConfig      `toml:"log"`
}

// CloudConfig maps cloud-related settings.
type CloudConfig struct {
	User        *string  `toml:"user"`
	Taxonomy    *string  `toml:"taxonomy"`
	Rank        *string  `toml:"rank"`
	Range       *string  `toml:"range"`
	MaxItems    *int     `toml:"max-items"`
	PoolSize    *int     `toml:"pool-size"`
	MinSize     *float64 `toml:"min-size"`
	MaxSize     *float64 `toml:"max-size"`
	Theme       *string  `toml:"theme"`
	Cluster     *bool    `toml:"cluster"`
	SlowAfterMs *int     `toml:"slow-after-ms"`
}

// TimelineConfig maps replay settings.
type TimelineConfig struct {
	WindowDays *int `toml:"window-days"`
	Step       *int `toml:"step"`
	IntervalMs *int `toml:"interval-ms"`
}

// PracticeConfig maps practice plan settings.
type PracticeConfig struct {
	Mix        *string `toml:"mix"`
	DrillWords *int    `toml:"drill-words"`
	Wordlist   *string `toml:"wordlist"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
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
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
