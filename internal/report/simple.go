package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/nao1215/failsight/internal/model"
	"github.com/nao1215/failsight/internal/render"
)

// SimpleWriter outputs human-readable text.
type SimpleWriter struct {
	baseWriter

	// showFeatures prints the submitted feature values.
	showFeatures bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithFeatures prints the input features above the result.
func WithFeatures(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showFeatures = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter:   newBaseWriter(output),
		showFeatures: true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WritePrediction outputs a single prediction.
func (w *SimpleWriter) WritePrediction(p *Prediction) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, "FAILSIGHT PREDICTION")
	sb.WriteString(fmt.Sprintf("Model:          %s\n", modelLabel(p.Model, p.Result)))
	if !p.Generated.IsZero() {
		sb.WriteString(fmt.Sprintf("Date:           %s\n", p.Generated.Format("2006-01-02 15:04:05 MST")))
	}
	sb.WriteString("\n")

	if w.showFeatures {
		w.writeFeatures(&sb, p.Features)
	}

	sb.WriteString(fmt.Sprintf("Result:         %s\n", singleLabel(p.Result)))
	sb.WriteString(fmt.Sprintf("Normal:         %s\n", render.FormatPercent(p.Result.NormalProbability(), 1)))
	sb.WriteString(fmt.Sprintf("Failure:        %s\n", render.FormatPercent(p.Result.FailureProbability(), 1)))
	sb.WriteString(fmt.Sprintf("SHAP plot:      %s\n", plotStatus(p.Result)))

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteComparison outputs both model results and the comparison notes.
func (w *SimpleWriter) WriteComparison(c *Comparison) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, "FAILSIGHT MODEL COMPARISON")
	if !c.Generated.IsZero() {
		sb.WriteString(fmt.Sprintf("Date:           %s\n\n", c.Generated.Format("2006-01-02 15:04:05 MST")))
	}

	if w.showFeatures {
		w.writeFeatures(&sb, c.Features)
	}

	sb.WriteString(fmt.Sprintf("%-22s %-20s %-12s %-12s\n", "Model", "Result", "Normal", "Failure"))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	for _, m := range comparisonModels(c.Result) {
		sb.WriteString(fmt.Sprintf("%-22s %-20s %-12s %-12s\n",
			m.name.DisplayName(),
			comparisonLabel(m.result),
			render.FormatPercent(m.result.NormalProbability(), 3),
			render.FormatPercent(m.result.FailureProbability(), 3)))
	}
	sb.WriteString("\n")

	if c.Result.Agree() {
		sb.WriteString("Both models agree on the outcome.\n")
	} else {
		sb.WriteString("The models disagree on the outcome.\n")
	}

	if len(c.Result.ComparisonPoints) > 0 {
		sb.WriteString("\nKey differences:\n")
		for _, point := range c.Result.ComparisonPoints {
			sb.WriteString(fmt.Sprintf("  - %s\n", render.PlainText(point)))
		}
	}

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteBatch outputs one line per entry followed by a summary.
func (w *SimpleWriter) WriteBatch(entries []BatchEntry) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, "FAILSIGHT BATCH PREDICTION")
	sb.WriteString(fmt.Sprintf("%-16s %-24s %-10s\n", "Label", "Result", "Failure"))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	for _, e := range entries {
		if e.Failed() {
			sb.WriteString(fmt.Sprintf("%-16s ERROR: %s\n", e.Label, e.Err))
			continue
		}
		sb.WriteString(fmt.Sprintf("%-16s %-24s %-10s\n",
			e.Label,
			singleLabel(e.Result),
			render.FormatPercent(e.Result.FailureProbability(), 1)))
	}

	s := Summarize(entries)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Total: %d  Failures: %d  Normal: %d  Errors: %d\n",
		s.Total, s.Failures, s.Normal, s.Errors))

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	pad := (70 - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeFeatures(sb *strings.Builder, fv model.FeatureVector) {
	sb.WriteString("Sensor readings:\n")
	for _, name := range model.NumericFeatures {
		v, _ := fv.Get(name)
		sb.WriteString(fmt.Sprintf("  %-26s %s\n", name, formatFeature(v)))
	}
	sb.WriteString(fmt.Sprintf("  %-26s %s\n", "Equipment type", fv.EquipmentType()))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

type namedResult struct {
	name   model.ModelName
	result *model.PredictionResult
}

func comparisonModels(c *model.ComparisonResult) []namedResult {
	return []namedResult{
		{model.ModelXGBoost, c.XGBoost},
		{model.ModelLogisticRegression, c.LogisticRegression},
	}
}

func singleLabel(r *model.PredictionResult) string {
	if r.IsFailure() {
		return render.LabelFailureLikely
	}
	return render.LabelNormal
}

func comparisonLabel(r *model.PredictionResult) string {
	if r.IsFailure() {
		return render.LabelFailureImminent
	}
	return render.LabelNormal
}

// modelLabel prefers the name reported by the API.
func modelLabel(name model.ModelName, r *model.PredictionResult) string {
	if r != nil && r.ModelName != "" {
		return r.ModelName
	}
	return name.DisplayName()
}

func plotStatus(r *model.PredictionResult) string {
	if !r.HasShapPlot() {
		return "unavailable"
	}
	return fmt.Sprintf("attached (%d bytes base64)", len(r.ShapPlot))
}

func formatFeature(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "missing"
	}
	return fmt.Sprintf("%g", v)
}
