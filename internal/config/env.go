package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment override (WHATSIT_LOG_LEVEL, ...).
const EnvPrefix = "whatsit"

// Env holds process-level overrides read from the environment.
type Env struct {
	ConfigDir  string `envconfig:"CONFIG_DIR"`
	CacheDir   string `envconfig:"CACHE_DIR"`
	RuntimeDir string `envconfig:"RUNTIME_DIR"`
	LogLevel   string `envconfig:"LOG_LEVEL"`
	LogDev     bool   `envconfig:"LOG_DEV" default:"false"`
	ChromeBin  string `envconfig:"CHROME_BIN"`
}

// LoadEnv reads the WHATSIT_* environment overrides.
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Env{}, fmt.Errorf("failed to load environment: %w", err)
	}
	return env, nil
}
