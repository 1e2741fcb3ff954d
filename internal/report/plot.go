package report

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nao1215/failsight/internal/model"
)

// ErrInvalidPlot is returned when a SHAP plot is not valid base64.
var ErrInvalidPlot = errors.New("invalid SHAP plot data")

// unsafeFileChars matches characters replaced in plot file names.
var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SavePlots writes the SHAP plot of each named result to dir as
// "{prefix}-{name}.png" and returns the written paths.
// Results without a plot are skipped.
func SavePlots(dir, prefix string, results map[model.ModelName]*model.PredictionResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}

	// Deterministic order for callers that print the paths.
	var paths []string
	for _, name := range []model.ModelName{model.ModelXGBoost, model.ModelLogisticRegression} {
		r, ok := results[name]
		if !ok || r == nil || !r.HasShapPlot() {
			continue
		}
		path, err := savePlot(dir, prefix+"-"+name.String(), r.ShapPlot)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SavePredictionPlot writes the plot of a single prediction.
// It returns "" when the result carries no plot.
func SavePredictionPlot(dir, prefix string, name model.ModelName, r *model.PredictionResult) (string, error) {
	paths, err := SavePlots(dir, prefix, map[model.ModelName]*model.PredictionResult{name: r})
	if err != nil || len(paths) == 0 {
		return "", err
	}
	return paths[0], nil
}

// SaveComparisonPlots writes the plots of both models of a comparison.
func SaveComparisonPlots(dir, prefix string, c *model.ComparisonResult) ([]string, error) {
	return SavePlots(dir, prefix, map[model.ModelName]*model.PredictionResult{
		model.ModelXGBoost:            c.XGBoost,
		model.ModelLogisticRegression: c.LogisticRegression,
	})
}

func savePlot(dir, base, b64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPlot, err)
	}

	name := strings.Trim(unsafeFileChars.ReplaceAllString(base, "_"), "_")
	if name == "" {
		name = "plot"
	}
	path := filepath.Join(dir, name+".png")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write plot: %w", err)
	}
	return path, nil
}
