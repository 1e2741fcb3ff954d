package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for failsight.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failsight",
		Short: "Web front-end for machine failure prediction",
		Long: `failsight serves a sensor reading form that sends machine readings to a
prediction API and renders the predicted outcome, the class probabilities
and the SHAP explanation plot returned by the models.

Configuration is read from defaults, the .failsight file, .env and
FAILSIGHT_* environment variables, then command-line flags, each
overriding the previous one.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .failsight in current or home directory)")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON lines")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewPredictCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewUserCmd())
	cmd.AddCommand(NewAuthCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
