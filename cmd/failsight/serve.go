package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/failsight/internal/config"
	"github.com/nao1215/failsight/internal/predict"
	"github.com/nao1215/failsight/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web front-end",
		Long: `Serve runs the web front-end: the sensor reading form, the results and
comparison pages, the /auth login endpoint and a /health check.

Users are stored in the credential database; create them with
"failsight user add". Sessions live in the same database.

Examples:
  # Listen on the default address with the default API
  failsight serve

  # Point at a remote prediction API and require login
  failsight serve --api-url http://models.internal:8000 --require-login

  # Use Postgres for users and sessions
  failsight serve --db-driver postgres --database-url postgres://...`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().BoolP("require-login", "r", false,
		"Only logged-in users may make predictions")
	cmd.Flags().Bool("secure-cookies", false,
		"Mark session cookies Secure (use behind HTTPS)")
	addAPIFlags(cmd)
	addDatabaseFlags(cmd.Flags())

	return cmd
}

// addAPIFlags registers the prediction API flags.
func addAPIFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("api-url", "a", config.DefaultPredictionAPIURL,
		"Base URL of the prediction API")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each prediction API request")
}

// addDatabaseFlags registers the credential store flags on fs.
func addDatabaseFlags(fs *pflag.FlagSet) {
	fs.String("db-driver", config.DefaultDBDriver,
		"Credential store backend: sqlite or postgres")
	fs.String("db-dir", "",
		"Directory of the SQLite database (default: XDG data directory)")
	fs.String("database-url", "",
		"Postgres connection URL")
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", "driver", string(db.Driver()), "path", db.Path())

	client, err := newPredictClient(cfg, logger)
	if err != nil {
		return err
	}
	if status, _ := client.Health(ctx); status != predict.StatusOK {
		// The API may come up later; pages report the failure per request.
		logger.Warn("prediction API is not ready", "url", cfg.PredictionAPIURL, "status", status.String())
	}

	srv, err := server.New(cfg, db, client, server.WithLogger(logger))
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "failsight listening on %s (prediction API: %s)\n",
		cfg.ListenAddress, cfg.PredictionAPIURL)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal, stopping server...")
	}

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return <-errCh
}
