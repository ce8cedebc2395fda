package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays configuration from environment variables using the env
// tags declared on Config. Variables that are unset leave the current values
// in place.
func parseEnv(config *Config) error {
	return env.Parse(config)
}
