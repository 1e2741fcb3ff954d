package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with the documented defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default ListenAddress is :8080", func(t *testing.T) {
		t.Parallel()
		if cfg.ListenAddress != ":8080" {
			t.Errorf("expected ListenAddress to be ':8080', got '%s'", cfg.ListenAddress)
		}
	})

	t.Run("default Timeout is 120 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 120*time.Second {
			t.Errorf("expected Timeout to be 120s, got %v", cfg.Timeout)
		}
	})

	t.Run("default DBDriver is sqlite", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDriver != DBDriverSQLite {
			t.Errorf("expected DBDriver to be sqlite, got %s", cfg.DBDriver)
		}
	})

	t.Run("default DBDir is the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %s, got %s", XDGDataDir(), cfg.DBDir)
		}
	})

	t.Run("login is not required by default", func(t *testing.T) {
		t.Parallel()
		if cfg.RequireLogin {
			t.Error("expected RequireLogin to be false")
		}
	})

	t.Run("defaults validate", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected default config to be valid, got %v", err)
		}
	})
}

// TestConfigValidate tests each validation rule in isolation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr error
	}{
		{name: "valid", modify: func(*Config) {}, wantErr: nil},
		{name: "empty listen address", modify: func(c *Config) { c.ListenAddress = "" }, wantErr: ErrInvalidListenAddress},
		{name: "listen address without port", modify: func(c *Config) { c.ListenAddress = "localhost" }, wantErr: ErrInvalidListenAddress},
		{name: "relative API URL", modify: func(c *Config) { c.PredictionAPIURL = "/api" }, wantErr: ErrInvalidAPIURL},
		{name: "ftp API URL", modify: func(c *Config) { c.PredictionAPIURL = "ftp://example.com" }, wantErr: ErrInvalidAPIURL},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "zero batch size", modify: func(c *Config) { c.BatchSize = 0 }, wantErr: ErrInvalidBatchSize},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "zero session age", modify: func(c *Config) { c.SessionMaxAge = 0 }, wantErr: ErrInvalidSessionMaxAge},
		{name: "unknown driver", modify: func(c *Config) { c.DBDriver = "mysql" }, wantErr: ErrUnknownDBDriver},
		{name: "postgres without URL", modify: func(c *Config) { c.DBDriver = DBDriverPostgres }, wantErr: ErrMissingDatabaseURL},
		{
			name: "postgres with URL",
			modify: func(c *Config) {
				c.DBDriver = DBDriverPostgres
				c.DatabaseURL = "postgres://u:p@localhost/failsight"
			},
			wantErr: nil,
		},
		{name: "short secret", modify: func(c *Config) { c.SessionSecret = "short" }, wantErr: ErrShortSessionSecret},
		{
			name: "both report formats",
			modify: func(c *Config) {
				c.JSONReport = true
				c.MarkdownReport = true
			},
			wantErr: ErrConflictingReportFormats,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEffectiveMaxBodySize(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.MaxBodySize = 0
	if got := cfg.EffectiveMaxBodySize(); got != DefaultMaxBodySize {
		t.Errorf("expected default %d, got %d", DefaultMaxBodySize, got)
	}
	cfg.MaxBodySize = 1024
	if got := cfg.EffectiveMaxBodySize(); got != 1024 {
		t.Errorf("expected 1024, got %d", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("values are applied", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `server:
  listen: "127.0.0.1:9090"
  session_max_age: "2h"
  require_login: true
prediction_api:
  url: "http://api.internal:8000"
  timeout: "30s"
database:
  driver: postgres
  url: "postgres://localhost/failsight"
batch:
  concurrency: 8
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg := NewConfig()
		if err := f.Apply(cfg); err != nil {
			t.Fatalf("unexpected apply error: %v", err)
		}

		if cfg.ListenAddress != "127.0.0.1:9090" {
			t.Errorf("expected listen 127.0.0.1:9090, got %s", cfg.ListenAddress)
		}
		if cfg.SessionMaxAge != 2*time.Hour {
			t.Errorf("expected session age 2h, got %v", cfg.SessionMaxAge)
		}
		if !cfg.RequireLogin {
			t.Error("expected RequireLogin to be true")
		}
		if cfg.PredictionAPIURL != "http://api.internal:8000" {
			t.Errorf("unexpected API URL %s", cfg.PredictionAPIURL)
		}
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", cfg.Timeout)
		}
		if cfg.DBDriver != DBDriverPostgres || cfg.DatabaseURL == "" {
			t.Errorf("expected postgres with URL, got %s %q", cfg.DBDriver, cfg.DatabaseURL)
		}
		if cfg.BatchSize != 8 {
			t.Errorf("expected batch size 8, got %d", cfg.BatchSize)
		}
		if cfg.SecureCookies {
			t.Error("expected unset secure_cookies to keep the default")
		}
	})

	t.Run("bad duration is reported", func(t *testing.T) {
		t.Parallel()
		f := &File{PredictionAPI: PredictionAPISection{Timeout: "soon"}}
		if err := f.Apply(NewConfig()); err == nil {
			t.Error("expected error for invalid duration")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("server: [unterminated"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path that exists", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
	})

	t.Run("explicit path that does not exist", func(t *testing.T) {
		t.Parallel()
		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing")); got != "" {
			t.Errorf("expected empty path, got %s", got)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvListen:        ":9999",
		EnvAPIURL:        "https://predict.example.com",
		EnvAPITimeout:    "45s",
		EnvRequireLogin:  "true",
		EnvSecureCookies: "1",
		EnvBatchSize:     "2",
	}
	cfg := NewConfig()
	if err := ApplyEnv(cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ListenAddress != ":9999" {
		t.Errorf("expected :9999, got %s", cfg.ListenAddress)
	}
	if cfg.PredictionAPIURL != "https://predict.example.com" {
		t.Errorf("unexpected API URL %s", cfg.PredictionAPIURL)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("expected 45s, got %v", cfg.Timeout)
	}
	if !cfg.RequireLogin || !cfg.SecureCookies {
		t.Error("expected boolean overrides to be applied")
	}
	if cfg.BatchSize != 2 {
		t.Errorf("expected batch size 2, got %d", cfg.BatchSize)
	}

	t.Run("invalid bool", func(t *testing.T) {
		t.Parallel()
		err := ApplyEnv(NewConfig(), func(k string) string {
			if k == EnvRequireLogin {
				return "maybe"
			}
			return ""
		})
		if err == nil {
			t.Error("expected error for invalid boolean")
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	t.Parallel()

	t.Run("missing file is ignored", func(t *testing.T) {
		t.Parallel()
		if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("expected nil for missing .env, got %v", err)
		}
	})
}
