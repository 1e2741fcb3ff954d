// Package main provides the entry point for the failsight CLI.
//
// failsight is the web front-end of a machine failure prediction service.
// It serves the sensor reading form and results pages, manages the user
// accounts that may log in, and can query the prediction API directly from
// the command line.
//
// Usage:
//
//	failsight serve
//	failsight predict --torque 42.8 --rpm 1551 ...
//	failsight batch readings.csv
//
// See --help for all available options.
package main

func main() {
	Execute()
}
