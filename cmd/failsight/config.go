package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/failsight/internal/config"
	"github.com/nao1215/failsight/internal/database"
	"github.com/nao1215/failsight/internal/log"
	"github.com/nao1215/failsight/internal/predict"
	"github.com/spf13/cobra"
)

// loadConfig builds the configuration for cmd.
// Precedence: defaults < config file < .env / environment < flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly named a config file, it must exist.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := file.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies every flag the user set on the command line onto cfg.
// Flags a command does not define are skipped.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	var err error
	set := func(name string, fn func() error) {
		if err == nil && changed(name) {
			err = fn()
		}
	}

	set("verbose", func() (e error) { cfg.Verbose, e = flags.GetBool("verbose"); return })
	set("json-log", func() (e error) { cfg.JSONLog, e = flags.GetBool("json-log"); return })
	set("listen", func() (e error) { cfg.ListenAddress, e = flags.GetString("listen"); return })
	set("api-url", func() (e error) { cfg.PredictionAPIURL, e = flags.GetString("api-url"); return })
	set("timeout", func() (e error) { cfg.Timeout, e = flags.GetDuration("timeout"); return })
	set("db-driver", func() (e error) { cfg.DBDriver, e = flags.GetString("db-driver"); return })
	set("db-dir", func() (e error) { cfg.DBDir, e = flags.GetString("db-dir"); return })
	set("database-url", func() (e error) { cfg.DatabaseURL, e = flags.GetString("database-url"); return })
	set("require-login", func() (e error) { cfg.RequireLogin, e = flags.GetBool("require-login"); return })
	set("secure-cookies", func() (e error) { cfg.SecureCookies, e = flags.GetBool("secure-cookies"); return })
	set("concurrency", func() (e error) { cfg.BatchSize, e = flags.GetInt("concurrency"); return })
	set("json", func() (e error) { cfg.JSONReport, e = flags.GetBool("json"); return })
	set("markdown", func() (e error) { cfg.MarkdownReport, e = flags.GetBool("markdown"); return })
	set("output", func() (e error) { cfg.ReportFile, e = flags.GetString("output"); return })
	set("plot-dir", func() (e error) { cfg.PlotDir, e = flags.GetString("plot-dir"); return })
	return err
}

// setup loads and validates the configuration and installs the logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}

	logger := log.New(cmd.ErrOrStderr(), cfg.Verbose, cfg.JSONLog)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openDatabase opens the credential and session store selected by cfg.
func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	switch cfg.DBDriver {
	case config.DBDriverPostgres:
		return database.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return database.Open(cfg.DBDir, database.DefaultOptions())
	}
}

// newPredictClient creates the prediction API client for cfg.
func newPredictClient(cfg *config.Config, logger *slog.Logger) (*predict.Client, error) {
	return predict.NewClient(cfg.PredictionAPIURL,
		predict.WithTimeout(cfg.Timeout),
		predict.WithUserAgent(cfg.UserAgent),
		predict.WithMaxBodySize(cfg.EffectiveMaxBodySize()),
		predict.WithLogger(logger),
	)
}
