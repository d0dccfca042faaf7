// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Simulate SimulateConfig `toml:"simulate"`
	Oracle   OracleConfig   `toml:"oracle"`
}

// SimulateConfig maps simulation settings.
type SimulateConfig struct {
	Lang          *string `toml:"lang"`
	Dict          *string `toml:"dict"`
	Fallback      *string `toml:"fallback"`
	PhrasesFile   *string `toml:"phrases-file"`
	SentenceCount *int    `toml:"sentence-count"`
	SentenceKeep  *int    `toml:"sentence-keep"`
	WordCount     *int    `toml:"word-count"`
	Workers       *int    `toml:"workers"`
	Store         *bool   `toml:"store"`
}

// OracleConfig maps suggestion oracle settings.
type OracleConfig struct {
	Backend       *string   `toml:"backend"`
	Endpoint      *string   `toml:"endpoint"`
	SentenceMacro *string   `toml:"sentence-macro"`
	WordMacro     *string   `toml:"word-macro"`
	Model         *string   `toml:"model"`
	Temperature   *float64  `toml:"temperature"`
	Timeout       *Duration `toml:"timeout"`
	Retries       *int      `toml:"retries"`
	Script        *string   `toml:"script"`
	Cache         *bool     `toml:"cache"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
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
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
