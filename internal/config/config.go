// Package config loads application configuration from environment variables.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the server needs to start. envconfig fills it from
// the environment; unset variables fall back to the struct tags' defaults.
type Config struct {
	Port   int    `envconfig:"PORT" default:"8080"`
	DBPath string `envconfig:"DB_PATH" default:"data/mindgarden.db"`
	// LogLevel: debug|info|warn|error
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// OTPTTL is how long an issued sign-up code stays valid.
	OTPTTL time.Duration `envconfig:"OTP_TTL" default:"10m"`
	// OTPSweepInterval drives the expired-code cleanup job. Zero disables it;
	// correctness never depends on the sweep running.
	OTPSweepInterval time.Duration `envconfig:"OTP_SWEEP_INTERVAL" default:"1h"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
