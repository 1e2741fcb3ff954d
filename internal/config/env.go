package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvListen         = "FAILSIGHT_LISTEN"
	EnvAPIURL         = "FAILSIGHT_API_URL"
	EnvAPITimeout     = "FAILSIGHT_API_TIMEOUT"
	EnvDBDriver       = "FAILSIGHT_DB_DRIVER"
	EnvDBDir          = "FAILSIGHT_DB_DIR"
	EnvDatabaseURL    = "FAILSIGHT_DATABASE_URL"
	EnvSessionSecret  = "FAILSIGHT_SESSION_SECRET"
	EnvSecureCookies  = "FAILSIGHT_SECURE_COOKIES"
	EnvRequireLogin   = "FAILSIGHT_REQUIRE_LOGIN"
	EnvBatchSize      = "FAILSIGHT_BATCH_SIZE"
	DefaultDotEnvFile = ".env"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{DefaultDotEnvFile}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with FAILSIGHT_* variables read through getenv.
// Pass os.Getenv in production and a map lookup in tests.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString(EnvListen, &cfg.ListenAddress)
	setString(EnvAPIURL, &cfg.PredictionAPIURL)
	setString(EnvDBDriver, &cfg.DBDriver)
	setString(EnvDBDir, &cfg.DBDir)
	setString(EnvDatabaseURL, &cfg.DatabaseURL)
	setString(EnvSessionSecret, &cfg.SessionSecret)

	if v := getenv(EnvAPITimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAPITimeout, err)
		}
		cfg.Timeout = d
	}

	for key, dst := range map[string]*bool{
		EnvSecureCookies: &cfg.SecureCookies,
		EnvRequireLogin:  &cfg.RequireLogin,
	} {
		v := getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}

	if v := getenv(EnvBatchSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBatchSize, err)
		}
		cfg.BatchSize = n
	}
	return nil
}
