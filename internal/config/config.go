package config

import (
	"net"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "failsight"

	// DefaultListenAddress is where `failsight serve` accepts connections.
	DefaultListenAddress = ":8080"

	// DefaultPredictionAPIURL points at a prediction service running on the
	// same host, which is how the demo is usually deployed.
	DefaultPredictionAPIURL = "http://127.0.0.1:8000"

	// DefaultTimeout bounds a single call to the prediction API.
	// Rendering SHAP plots on the API side takes several seconds, so this is generous.
	DefaultTimeout = 120 * time.Second

	// DefaultBatchSize is the number of concurrent predictions in `failsight batch`.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies failsight in requests to the prediction API.
	DefaultUserAgent = "failsight/1.0 (+https://github.com/nao1215/failsight)"

	// DefaultMaxBodySize limits the prediction API response body.
	// Base64 SHAP plots are large; 32MB leaves room for a comparison with two plots.
	DefaultMaxBodySize = 32 * 1024 * 1024

	// DefaultSessionMaxAge is the lifetime of auth and result sessions.
	DefaultSessionMaxAge = 24 * time.Hour

	// DefaultSessionCleanupInterval is how often `serve` removes expired session rows.
	DefaultSessionCleanupInterval = 10 * time.Minute

	// DefaultDBDriver is the embedded SQLite driver.
	DefaultDBDriver = DBDriverSQLite

	// MinSessionSecretLength is the minimum length of a configured session secret.
	MinSessionSecretLength = 32
)

// Supported database drivers.
const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

// Config holds all configuration options for failsight.
// It is populated from defaults, the config file, the environment and CLI
// flags, then passed explicitly to the components that need it.
type Config struct {
	// ListenAddress is the host:port the web server binds to.
	ListenAddress string

	// PredictionAPIURL is the base URL of the external prediction service.
	// Request paths such as /api/predict/ are appended to it.
	PredictionAPIURL string

	// Timeout is the per-request timeout for prediction API calls.
	Timeout time.Duration

	// UserAgent is sent with every prediction API request.
	UserAgent string

	// MaxBodySize is the maximum prediction API response size in bytes.
	// Set to 0 to use the default.
	MaxBodySize int64

	// DBDriver selects the credential/session backend: sqlite or postgres.
	DBDriver string

	// DBDir is the directory holding the SQLite database file.
	// Defaults to the XDG data directory (~/.local/share/failsight on Linux).
	DBDir string

	// DatabaseURL is the Postgres connection URL. Only used with the postgres driver.
	DatabaseURL string

	// SessionSecret signs session cookies. When empty, a random key is
	// generated at startup and sessions do not survive a restart.
	SessionSecret string

	// SessionMaxAge is the lifetime of a browser session.
	SessionMaxAge time.Duration

	// SessionCleanupInterval is the period of the expired-session sweep.
	SessionCleanupInterval time.Duration

	// SecureCookies marks session cookies Secure. Enable behind HTTPS.
	SecureCookies bool

	// RequireLogin restricts the prediction pages to logged-in users.
	RequireLogin bool

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches the log output to JSON lines.
	JSONLog bool

	// BatchSize is the concurrency of batch predictions.
	BatchSize int

	// ConfigFilePath is the explicit configuration file path.
	// If empty, .failsight is searched in the current directory, then in $HOME.
	ConfigFilePath string

	// JSONReport selects JSON output for CLI predictions.
	JSONReport bool

	// MarkdownReport selects Markdown output for CLI predictions.
	MarkdownReport bool

	// ReportFile writes CLI output to this file instead of stdout.
	ReportFile string

	// PlotDir, when set, receives decoded SHAP plot PNGs from CLI predictions.
	PlotDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		ListenAddress:          DefaultListenAddress,
		PredictionAPIURL:       DefaultPredictionAPIURL,
		Timeout:                DefaultTimeout,
		UserAgent:              DefaultUserAgent,
		MaxBodySize:            DefaultMaxBodySize,
		DBDriver:               DefaultDBDriver,
		DBDir:                  XDGDataDir(),
		SessionMaxAge:          DefaultSessionMaxAge,
		SessionCleanupInterval: DefaultSessionCleanupInterval,
		BatchSize:              DefaultBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for failsight.
// On Linux: ~/.local/share/failsight
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for failsight.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGStateDir returns the XDG state directory for failsight.
// The CLI keeps its login cookie here.
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found as one of the sentinel errors in errors.go.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return ErrInvalidListenAddress
	}
	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		return ErrInvalidListenAddress
	}

	u, err := url.Parse(c.PredictionAPIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidAPIURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.SessionMaxAge <= 0 {
		return ErrInvalidSessionMaxAge
	}

	switch c.DBDriver {
	case DBDriverSQLite:
	case DBDriverPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return ErrUnknownDBDriver
	}

	if c.SessionSecret != "" && len(c.SessionSecret) < MinSessionSecretLength {
		return ErrShortSessionSecret
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

// EffectiveMaxBodySize returns MaxBodySize, or the default when it is unset.
func (c *Config) EffectiveMaxBodySize() int64 {
	if c.MaxBodySize <= 0 {
		return DefaultMaxBodySize
	}
	return c.MaxBodySize
}
