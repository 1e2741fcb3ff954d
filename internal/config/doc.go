// Package config provides configuration structures and utilities for failsight.
// It defines the options for the web front-end, the prediction API client,
// the credential and session database, and CLI report output.
//
// Values are resolved in this order, later sources winning:
// built-in defaults, the YAML configuration file, FAILSIGHT_* environment
// variables (optionally loaded from a .env file), and CLI flags.
package config
