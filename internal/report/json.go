package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/failsight/internal/model"
)

// JSONWriter outputs results in JSON format for tool integration.
// SHAP plots are omitted unless WithPlotData is set, since a single
// base64 image dwarfs the rest of the document.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// plotData keeps the base64 SHAP plots in the output.
	plotData bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithPlotData includes base64 SHAP plots in the output.
func WithPlotData(include bool) JSONWriterOption {
	return func(w *JSONWriter) {
		w.plotData = include
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONResult is the JSON shape of one model result.
type JSONResult struct {
	Model              string    `json:"model"`
	Prediction         int       `json:"prediction"`
	Label              string    `json:"label"`
	NormalProbability  float64   `json:"normal_probability"`
	FailureProbability float64   `json:"failure_probability"`
	Probability        []float64 `json:"prediction_probability"`
	HasShapPlot        bool      `json:"has_shap_plot"`
	ShapPlot           string    `json:"shap_plot,omitempty"`
}

// JSONPrediction is the JSON document for a single prediction.
type JSONPrediction struct {
	Generated *time.Time          `json:"generated,omitempty"`
	Features  model.FeatureVector `json:"features"`
	Result    JSONResult          `json:"result"`
}

// JSONComparison is the JSON document for a comparison.
type JSONComparison struct {
	Generated          *time.Time          `json:"generated,omitempty"`
	Features           model.FeatureVector `json:"features"`
	XGBoost            JSONResult          `json:"xgboost"`
	LogisticRegression JSONResult          `json:"logistic_regression"`
	Agree              bool                `json:"agree"`
	ComparisonPoints   []string            `json:"comparison_points"`
}

// JSONBatchEntry is one row of a batch run.
type JSONBatchEntry struct {
	Label  string      `json:"label"`
	Result *JSONResult `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// JSONBatch is the JSON document for a batch run.
type JSONBatch struct {
	Summary BatchSummary     `json:"summary"`
	Entries []JSONBatchEntry `json:"entries"`
}

// WritePrediction outputs a single prediction.
func (w *JSONWriter) WritePrediction(p *Prediction) (int, error) {
	return w.writeJSON(JSONPrediction{
		Generated: timePtr(p.Generated),
		Features:  p.Features,
		Result:    w.result(modelLabel(p.Model, p.Result), p.Result, singleLabel(p.Result)),
	})
}

// WriteComparison outputs a comparison.
func (w *JSONWriter) WriteComparison(c *Comparison) (int, error) {
	points := c.Result.ComparisonPoints
	if points == nil {
		points = []string{}
	}
	return w.writeJSON(JSONComparison{
		Generated: timePtr(c.Generated),
		Features:  c.Features,
		XGBoost: w.result(model.ModelXGBoost.DisplayName(),
			c.Result.XGBoost, comparisonLabel(c.Result.XGBoost)),
		LogisticRegression: w.result(model.ModelLogisticRegression.DisplayName(),
			c.Result.LogisticRegression, comparisonLabel(c.Result.LogisticRegression)),
		Agree:            c.Result.Agree(),
		ComparisonPoints: points,
	})
}

// WriteBatch outputs a batch run with its summary.
func (w *JSONWriter) WriteBatch(entries []BatchEntry) (int, error) {
	doc := JSONBatch{
		Summary: Summarize(entries),
		Entries: make([]JSONBatchEntry, 0, len(entries)),
	}
	for _, e := range entries {
		entry := JSONBatchEntry{Label: e.Label}
		if e.Failed() {
			entry.Error = e.Err.Error()
		} else {
			r := w.result(e.Result.ModelName, e.Result, singleLabel(e.Result))
			entry.Result = &r
		}
		doc.Entries = append(doc.Entries, entry)
	}
	return w.writeJSON(doc)
}

func (w *JSONWriter) result(name string, r *model.PredictionResult, label string) JSONResult {
	out := JSONResult{
		Model:              name,
		Prediction:         r.Prediction,
		Label:              label,
		NormalProbability:  r.NormalProbability(),
		FailureProbability: r.FailureProbability(),
		Probability:        r.Probability,
		HasShapPlot:        r.HasShapPlot(),
	}
	if w.plotData {
		out.ShapPlot = r.ShapPlot
	}
	return out
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
