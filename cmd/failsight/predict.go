package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/failsight/internal/batch"
	"github.com/nao1215/failsight/internal/config"
	"github.com/nao1215/failsight/internal/model"
	"github.com/nao1215/failsight/internal/predict"
	"github.com/nao1215/failsight/internal/report"
	"github.com/spf13/cobra"
)

// featureFlags maps command-line flags to feature names.
var featureFlags = []struct {
	flag, feature, usage string
}{
	{"air-temp", model.FeatureAirTemperature, "Air temperature [K]"},
	{"process-temp", model.FeatureProcessTemperature, "Process temperature [K]"},
	{"rpm", model.FeatureRotationalSpeed, "Rotational speed [rpm]"},
	{"torque", model.FeatureTorque, "Torque [Nm]"},
	{"tool-wear", model.FeatureToolWear, "Tool wear [min]"},
}

// NewPredictCmd creates the predict command.
func NewPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict machine failure for one set of sensor readings",
		Long: `Predict sends one set of sensor readings to the prediction API and prints
the predicted outcome and class probabilities.

Readings that are omitted or not numbers are sent as null, exactly like an
empty field on the web form.

Examples:
  # Predict with XGBoost
  failsight predict --type M --air-temp 298.1 --process-temp 308.6 \
    --rpm 1551 --torque 42.8 --tool-wear 0

  # Use logistic regression and save the SHAP plot
  failsight predict -m logistic_regression --plot-dir plots ...

  # Check that the prediction API has its models loaded
  failsight predict --check`,
		Args: cobra.NoArgs,
		RunE: runPredictCmd,
	}

	cmd.Flags().StringP("model", "m", string(model.ModelXGBoost),
		"Model to use: xgboost or logistic_regression")
	cmd.Flags().Bool("check", false,
		"Only check the prediction API and its models")
	addFeatureFlags(cmd)
	addAPIFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare both models on one set of sensor readings",
		Long: `Compare sends one set of sensor readings to both models and prints their
predictions side by side together with the key differences reported by
the API.

Examples:
  failsight compare --type L --air-temp 300 --process-temp 310 \
    --rpm 1400 --torque 60 --tool-wear 200

  # Markdown report with a probability chart per model
  failsight compare --markdown -o report.md ...`,
		Args: cobra.NoArgs,
		RunE: runCompareCmd,
	}
	addFeatureFlags(cmd)
	addAPIFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file.csv>",
		Short: "Predict machine failure for every row of a CSV file",
		Long: `Batch reads sensor readings from a CSV file in the AI4I 2020 dataset
layout and predicts every row concurrently. Use "-" to read standard input.

Required columns: Type, Air temperature [K], Process temperature [K],
Rotational speed [rpm], Torque [Nm], Tool wear [min]. Rows are labelled by
"Product ID" or "UDI" when present.

Examples:
  failsight batch ai4i2020.csv
  failsight batch -m logistic_regression -n 8 --json -o results.json readings.csv`,
		Args: cobra.ExactArgs(1),
		RunE: runBatchCmd,
	}
	cmd.Flags().StringP("model", "m", string(model.ModelXGBoost),
		"Model to use: xgboost or logistic_regression")
	cmd.Flags().IntP("concurrency", "n", config.DefaultBatchSize,
		"Number of concurrent predictions")
	addAPIFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

func addFeatureFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", string(model.EquipmentTypeLow), "Equipment type: L, M or H")
	for _, f := range featureFlags {
		cmd.Flags().String(f.flag, "", f.usage)
	}
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().Bool("markdown", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("plot-dir", "",
		"Save SHAP plots as PNG files in this directory")
}

// readFeatures builds the feature vector from the feature flags, the same
// way the web form is read.
func readFeatures(cmd *cobra.Command) (model.FeatureVector, error) {
	form := url.Values{}
	equipment, err := cmd.Flags().GetString("type")
	if err != nil {
		return model.FeatureVector{}, err
	}
	equipment = strings.ToUpper(strings.TrimSpace(equipment))
	if !model.EquipmentType(equipment).IsValid() {
		return model.FeatureVector{}, fmt.Errorf("invalid equipment type %q: must be L, M or H", equipment)
	}
	form.Set(model.FieldEquipmentType, equipment)

	for _, f := range featureFlags {
		v, err := cmd.Flags().GetString(f.flag)
		if err != nil {
			return model.FeatureVector{}, err
		}
		form.Set(f.feature, v)
	}
	return model.BuildFeatureVector(form), nil
}

// readModel parses the --model flag.
func readModel(cmd *cobra.Command) (model.ModelName, error) {
	s, err := cmd.Flags().GetString("model")
	if err != nil {
		return "", err
	}
	name := model.ParseModelName(s)
	if !name.IsValid() {
		return "", fmt.Errorf("%w: %q", predict.ErrInvalidModel, s)
	}
	return name, nil
}

func runPredictCmd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	client, err := newPredictClient(cfg, logger)
	if err != nil {
		return err
	}

	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}
	if check {
		return runHealthCheck(cmd.Context(), cmd.OutOrStdout(), client)
	}

	name, err := readModel(cmd)
	if err != nil {
		return err
	}
	features, err := readFeatures(cmd)
	if err != nil {
		return err
	}
	if missing := features.Missing(); len(missing) > 0 {
		logger.Warn("sending readings without a value as null", "missing", missing)
	}

	resp, err := client.SubmitSingle(cmd.Context(), name, features)
	if err != nil {
		logger.Debug("prediction failed", "error", err)
		return errors.New(predict.UserMessage(predict.OperationPrediction, err))
	}

	if cfg.PlotDir != "" && resp.Result.HasShapPlot() {
		path, err := report.SavePredictionPlot(cfg.PlotDir, plotPrefix(), name, resp.Result)
		if err != nil {
			logger.Warn("failed to save SHAP plot", "error", err)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "SHAP plot saved to %s\n", path)
		}
	}

	return withReportWriter(cfg, cmd.OutOrStdout(), func(w report.Writer) error {
		_, err := w.WritePrediction(&report.Prediction{
			Model:     name,
			Features:  features,
			Result:    resp.Result,
			Generated: time.Now(),
		})
		return err
	})
}

func runCompareCmd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	client, err := newPredictClient(cfg, logger)
	if err != nil {
		return err
	}
	features, err := readFeatures(cmd)
	if err != nil {
		return err
	}

	resp, err := client.SubmitComparison(cmd.Context(), features)
	if err != nil {
		logger.Debug("comparison failed", "error", err)
		return errors.New(predict.UserMessage(predict.OperationComparison, err))
	}

	if cfg.PlotDir != "" {
		paths, err := report.SaveComparisonPlots(cfg.PlotDir, plotPrefix(), resp.Result)
		if err != nil {
			logger.Warn("failed to save SHAP plots", "error", err)
		}
		for _, p := range paths {
			fmt.Fprintf(cmd.ErrOrStderr(), "SHAP plot saved to %s\n", p)
		}
	}

	return withReportWriter(cfg, cmd.OutOrStdout(), func(w report.Writer) error {
		_, err := w.WriteComparison(&report.Comparison{
			Features:  features,
			Result:    resp.Result,
			Generated: time.Now(),
		})
		return err
	})
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	name, err := readModel(cmd)
	if err != nil {
		return err
	}
	readings, err := loadReadings(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	client, err := newPredictClient(cfg, logger)
	if err != nil {
		return err
	}

	processor := batch.NewProcessor(client, name,
		batch.WithConcurrency(cfg.BatchSize),
		batch.WithLogger(logger),
	)

	fmt.Fprintf(cmd.ErrOrStderr(), "Predicting %d readings with %s (concurrency: %d)...\n",
		len(readings), name.DisplayName(), cfg.BatchSize)
	startTime := time.Now()

	var mu sync.Mutex
	entries := make([]report.BatchEntry, len(readings))
	done := 0
	err = processor.ProcessWithCallback(cmd.Context(), readings, func(entry report.BatchEntry, index int) {
		mu.Lock()
		defer mu.Unlock()
		entries[index] = entry
		done++
		if cfg.Verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", done, len(readings), entry.Label)
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Batch completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))

	if cfg.PlotDir != "" {
		for _, e := range entries {
			if e.Failed() || !e.Result.HasShapPlot() {
				continue
			}
			if _, err := report.SavePredictionPlot(cfg.PlotDir, e.Label, name, e.Result); err != nil {
				logger.Warn("failed to save SHAP plot", "label", e.Label, "error", err)
			}
		}
	}

	if err := withReportWriter(cfg, cmd.OutOrStdout(), func(w report.Writer) error {
		_, err := w.WriteBatch(entries)
		return err
	}); err != nil {
		return err
	}

	if s := report.Summarize(entries); s.Errors > 0 {
		return fmt.Errorf("%d of %d predictions failed", s.Errors, s.Total)
	}
	return nil
}

// loadReadings reads the CSV at path, or standard input for "-".
func loadReadings(stdin io.Reader, path string) ([]batch.Reading, error) {
	if path == "-" {
		return batch.ReadReadings(stdin)
	}
	f, err := os.Open(path) //nolint:gosec // user-provided input file
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	readings, err := batch.ReadReadings(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return readings, nil
}

// runHealthCheck prints the prediction API status and the loaded models.
func runHealthCheck(ctx context.Context, out io.Writer, client *predict.Client) error {
	status, models := client.Health(ctx)
	fmt.Fprintf(out, "Prediction API: %s (%s)\n", client.BaseURL(), status)
	if models != nil {
		fmt.Fprintf(out, "  XGBoost:             %s\n", loaded(models.ModelsLoaded.XGBModel))
		fmt.Fprintf(out, "  Logistic Regression: %s\n", loaded(models.ModelsLoaded.LRModel))
		fmt.Fprintf(out, "  Scaler:              %s\n", loaded(models.ModelsLoaded.Scaler))
		fmt.Fprintf(out, "  Features:            %d\n", models.FeatureCount)
		if models.Error != "" {
			fmt.Fprintf(out, "  Error:               %s\n", models.Error)
		}
	}
	if status != predict.StatusOK {
		return fmt.Errorf("prediction API is not ready: %s", status)
	}
	return nil
}

func loaded(ok bool) string {
	if ok {
		return "loaded"
	}
	return "missing"
}

// plotPrefix names plot files after the time of the prediction.
func plotPrefix() string {
	return time.Now().Format("20060102-150405")
}

// withReportWriter runs fn with the writer selected by cfg. When a report
// file is set, the chosen format goes to the file and a short text summary
// to out.
func withReportWriter(cfg *config.Config, out io.Writer, fn func(report.Writer) error) error {
	if cfg.ReportFile == "" {
		return fn(newReportWriter(cfg, out))
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := report.NewMultiWriter(
		newReportWriter(cfg, f),
		report.NewSimpleWriter(out, report.WithFeatures(false)),
	)
	if err := fn(w); err != nil {
		return err
	}
	slog.Debug("report written", "path", cfg.ReportFile)
	return nil
}

// newReportWriter returns the writer for the configured format.
func newReportWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out)
	}
}
