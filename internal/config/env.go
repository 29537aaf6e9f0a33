package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds environment overrides. Zero values mean unset.
type EnvConfig struct {
	Charset   string `env:"PARANOID_CHARSET"`
	Length    int    `env:"PARANOID_LENGTH"`
	BatchSize int    `env:"PARANOID_BATCH_SIZE"`
	Addr      string `env:"PARANOID_ADDR"`
	DBPath    string `env:"PARANOID_DB"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv reads the PARANOID_* variables.
func LoadEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := ParseEnv(&cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// Overlay returns the file config with non-zero environment values applied
// on top, so callers only need to merge flags afterwards.
func Overlay(file FileConfig, e EnvConfig) FileConfig {
	if e.Charset != "" {
		file.Generate.Charset = &e.Charset
	}
	if e.Length != 0 {
		file.Generate.Length = &e.Length
	}
	if e.BatchSize != 0 {
		file.Audit.BatchSize = &e.BatchSize
	}
	if e.Addr != "" {
		file.Server.Addr = &e.Addr
	}
	return file
}

// DBPathOr returns PARANOID_DB when set, otherwise fallback.
func (e EnvConfig) DBPathOr(fallback string) string {
	if e.DBPath != "" {
		return e.DBPath
	}
	return fallback
}
