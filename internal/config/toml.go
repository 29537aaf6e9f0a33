// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Generate GenerateConfig `toml:"generate"`
	Audit    AuditConfig    `toml:"audit"`
	Policy   PolicyConfig   `toml:"policy"`
	Server   ServerConfig   `toml:"server"`
}

// GenerateConfig maps generation settings.
type GenerateConfig struct {
	Charset *string `toml:"charset"`
	Length  *int    `toml:"length"`
	Count   *int    `toml:"count"`
}

// AuditConfig maps audit settings.
type AuditConfig struct {
	BatchSize *int  `toml:"batch-size"`
	Save      *bool `toml:"save"`
}

// PolicyConfig maps generator policy limits and the custom framework file.
type PolicyConfig struct {
	MaxAttempts *int    `toml:"max-attempts"`
	MaxMulti    *int    `toml:"max-multi"`
	PolicyFile  *string `toml:"policy-file"`
}

// ServerConfig maps HTTP server settings.
type ServerConfig struct {
	Addr *string `toml:"addr"`
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
