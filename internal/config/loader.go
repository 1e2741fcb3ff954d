package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".failsight"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the YAML configuration file.
// Every field is optional; unset fields leave the current value untouched.
type File struct {
	Server        ServerSection        `yaml:"server"`
	PredictionAPI PredictionAPISection `yaml:"prediction_api"`
	Database      DatabaseSection      `yaml:"database"`
	Log           LogSection           `yaml:"log"`
	Batch         BatchSection         `yaml:"batch"`
}

// ServerSection configures the web front-end.
type ServerSection struct {
	Listen        string `yaml:"listen"`
	SessionSecret string `yaml:"session_secret"`
	// SessionMaxAge is a Go duration string such as "12h".
	SessionMaxAge string `yaml:"session_max_age"`
	SecureCookies *bool  `yaml:"secure_cookies"`
	RequireLogin  *bool  `yaml:"require_login"`
}

// PredictionAPISection configures the prediction API client.
type PredictionAPISection struct {
	URL         string `yaml:"url"`
	Timeout     string `yaml:"timeout"`
	UserAgent   string `yaml:"user_agent"`
	MaxBodySize int64  `yaml:"max_body_size"`
}

// DatabaseSection configures the credential and session store.
type DatabaseSection struct {
	Driver string `yaml:"driver"`
	Dir    string `yaml:"dir"`
	URL    string `yaml:"url"`
}

// LogSection configures logging.
type LogSection struct {
	JSON    *bool `yaml:"json"`
	Verbose *bool `yaml:"verbose"`
}

// BatchSection configures batch predictions.
type BatchSection struct {
	Concurrency int `yaml:"concurrency"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cf, nil
}

// Apply copies every value set in the file onto cfg.
func (f *File) Apply(cfg *Config) error {
	if f.Server.Listen != "" {
		cfg.ListenAddress = f.Server.Listen
	}
	if f.Server.SessionSecret != "" {
		cfg.SessionSecret = f.Server.SessionSecret
	}
	if f.Server.SessionMaxAge != "" {
		d, err := time.ParseDuration(f.Server.SessionMaxAge)
		if err != nil {
			return fmt.Errorf("server.session_max_age: %w", err)
		}
		cfg.SessionMaxAge = d
	}
	if f.Server.SecureCookies != nil {
		cfg.SecureCookies = *f.Server.SecureCookies
	}
	if f.Server.RequireLogin != nil {
		cfg.RequireLogin = *f.Server.RequireLogin
	}

	if f.PredictionAPI.URL != "" {
		cfg.PredictionAPIURL = f.PredictionAPI.URL
	}
	if f.PredictionAPI.Timeout != "" {
		d, err := time.ParseDuration(f.PredictionAPI.Timeout)
		if err != nil {
			return fmt.Errorf("prediction_api.timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if f.PredictionAPI.UserAgent != "" {
		cfg.UserAgent = f.PredictionAPI.UserAgent
	}
	if f.PredictionAPI.MaxBodySize != 0 {
		cfg.MaxBodySize = f.PredictionAPI.MaxBodySize
	}

	if f.Database.Driver != "" {
		cfg.DBDriver = f.Database.Driver
	}
	if f.Database.Dir != "" {
		cfg.DBDir = f.Database.Dir
	}
	if f.Database.URL != "" {
		cfg.DatabaseURL = f.Database.URL
	}

	if f.Log.JSON != nil {
		cfg.JSONLog = *f.Log.JSON
	}
	if f.Log.Verbose != nil {
		cfg.Verbose = *f.Log.Verbose
	}

	if f.Batch.Concurrency != 0 {
		cfg.BatchSize = f.Batch.Concurrency
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .failsight in the current directory
// 3. Look for .failsight in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
