// Package log provides slog loggers that mask sensitive information.
//
// SecureHandler wraps any slog.Handler and rewrites attributes before they
// are written:
//   - keys such as password, cookie, session and database_url are masked
//   - bcrypt hashes and URLs with embedded passwords are masked by value
//   - very long strings (base64 plots) are truncated
//
// # Usage
//
//	logger := log.New(os.Stderr, verbose, jsonOutput)
//	logger.Warn("login failed", "username", name, "password", pw) // password is masked
//	slog.SetDefault(logger)
package log
