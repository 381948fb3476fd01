package config

import "github.com/dmitrijs2005/finkeeper/internal/configx"

// parseEnv overlays cfg with FINKEEPER_* environment variables.
func parseEnv(cfg *Config) error {
	return configx.ParseEnv(cfg)
}
