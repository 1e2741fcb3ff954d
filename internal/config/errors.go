package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while still printing a human-readable message.
var (
	// ErrInvalidListenAddress is returned when the listen address is empty
	// or cannot be split into host and port.
	ErrInvalidListenAddress = errors.New("invalid listen address: expected host:port")

	// ErrInvalidAPIURL is returned when the prediction API URL is empty,
	// unparsable, or not http/https.
	ErrInvalidAPIURL = errors.New("invalid prediction API URL: expected an absolute http or https URL")

	// ErrInvalidTimeout is returned when the API timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch concurrency is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to select the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidSessionMaxAge is returned when the session lifetime is not positive.
	ErrInvalidSessionMaxAge = errors.New("invalid session max age: must be positive")

	// ErrUnknownDBDriver is returned for a database driver other than sqlite or postgres.
	ErrUnknownDBDriver = errors.New("unknown database driver: must be sqlite or postgres")

	// ErrMissingDatabaseURL is returned when the postgres driver is selected
	// without a connection URL.
	ErrMissingDatabaseURL = errors.New("database URL is required for the postgres driver")

	// ErrShortSessionSecret is returned when a configured session secret is
	// shorter than MinSessionSecretLength bytes.
	ErrShortSessionSecret = errors.New("session secret too short: need at least 32 bytes")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
