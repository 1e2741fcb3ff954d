package report

import (
	"io"
	"time"

	"github.com/nao1215/failsight/internal/model"
)

// Writer defines the interface for CLI result output.
type Writer interface {
	// WritePrediction outputs a single-model prediction.
	// Returns the number of bytes written and any error encountered.
	WritePrediction(p *Prediction) (int, error)

	// WriteComparison outputs a two-model comparison.
	WriteComparison(c *Comparison) (int, error)

	// WriteBatch outputs the results of a batch run in input order.
	WriteBatch(entries []BatchEntry) (int, error)
}

// Prediction is a single-model result together with its inputs.
type Prediction struct {
	Model     model.ModelName
	Features  model.FeatureVector
	Result    *model.PredictionResult
	Generated time.Time
}

// Comparison is a comparison result together with its inputs.
type Comparison struct {
	Features  model.FeatureVector
	Result    *model.ComparisonResult
	Generated time.Time
}

// BatchEntry is one row of a batch run. Exactly one of Result and Err is set.
type BatchEntry struct {
	Label  string
	Result *model.PredictionResult
	Err    error
}

// Failed reports whether the entry carries an error.
func (e BatchEntry) Failed() bool {
	return e.Err != nil
}

// BatchSummary counts the outcomes of a batch run.
type BatchSummary struct {
	Total    int `json:"total"`
	Failures int `json:"predicted_failures"`
	Normal   int `json:"predicted_normal"`
	Errors   int `json:"errors"`
}

// Summarize counts entries by outcome.
func Summarize(entries []BatchEntry) BatchSummary {
	s := BatchSummary{Total: len(entries)}
	for _, e := range entries {
		switch {
		case e.Failed():
			s.Errors++
		case e.Result.IsFailure():
			s.Failures++
		default:
			s.Normal++
		}
	}
	return s
}

// MultiWriter writes to multiple Writers in order.
// Stops on the first error encountered.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WritePrediction outputs the prediction to all configured Writers.
func (m *MultiWriter) WritePrediction(p *Prediction) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WritePrediction(p) })
}

// WriteComparison outputs the comparison to all configured Writers.
func (m *MultiWriter) WriteComparison(c *Comparison) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteComparison(c) })
}

// WriteBatch outputs the batch results to all configured Writers.
func (m *MultiWriter) WriteBatch(entries []BatchEntry) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteBatch(entries) })
}

func (m *MultiWriter) each(fn func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := fn(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
