package report

import (
	"io"
	"math"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/failsight/internal/model"
	"github.com/nao1215/failsight/internal/render"
)

// MarkdownWriter outputs results in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WritePrediction outputs a single prediction.
func (w *MarkdownWriter) WritePrediction(p *Prediction) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Machine Failure Prediction")
	md.PlainText("")

	rows := [][]string{
		{"Model", modelLabel(p.Model, p.Result)},
		{"Result", singleLabel(p.Result)},
		{"Normal", render.FormatPercent(p.Result.NormalProbability(), 1)},
		{"Failure", render.FormatPercent(p.Result.FailureProbability(), 1)},
		{"SHAP plot", plotStatus(p.Result)},
	}
	if !p.Generated.IsZero() {
		rows = append(rows, []string{"Date", p.Generated.Format("2006-01-02 15:04:05 MST")})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeAlert(md, p.Result.IsFailure())
	w.writePieChart(md, p.Result)
	w.writeFeatures(md, p.Features)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteComparison outputs a comparison.
func (w *MarkdownWriter) WriteComparison(c *Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Model Comparison")
	md.PlainText("")

	models := comparisonModels(c.Result)
	rows := make([][]string, 0, len(models))
	for _, m := range models {
		rows = append(rows, []string{
			m.name.DisplayName(),
			comparisonLabel(m.result),
			render.FormatPercent(m.result.NormalProbability(), 3),
			render.FormatPercent(m.result.FailureProbability(), 3),
			plotStatus(m.result),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Model", "Result", "Normal", "Failure", "SHAP plot"},
		Rows:   rows,
	})
	md.PlainText("")

	if c.Result.Agree() {
		md.Note("Both models agree on the outcome.")
	} else {
		md.Important("The models disagree on the outcome.")
	}
	md.PlainText("")

	md.H2("Key Differences")
	md.PlainText("")
	if len(c.Result.ComparisonPoints) == 0 {
		md.PlainText("No comparison notes were returned.")
	} else {
		points := make([]string, 0, len(c.Result.ComparisonPoints))
		for _, p := range c.Result.ComparisonPoints {
			points = append(points, render.PlainText(p))
		}
		md.BulletList(points...)
	}
	md.PlainText("")

	w.writeFeatures(md, c.Features)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch outputs a table of batch results with a summary.
func (w *MarkdownWriter) WriteBatch(entries []BatchEntry) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Batch Prediction")
	md.PlainText("")

	s := Summarize(entries)
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"🔴 Failure", strconv.Itoa(s.Failures)},
			{"🟢 Normal", strconv.Itoa(s.Normal)},
			{"⚠️ Error", strconv.Itoa(s.Errors)},
			{"**Total**", "**" + strconv.Itoa(s.Total) + "**"},
		},
	})
	md.PlainText("")

	switch {
	case s.Failures > 0:
		md.Warningf("%d of %d machine(s) are predicted to fail.", s.Failures, s.Total)
	case s.Errors > 0:
		md.Cautionf("%d prediction(s) could not be completed.", s.Errors)
	default:
		md.Tip("All machines are predicted to operate normally.")
	}
	md.PlainText("")

	md.H2("Results")
	md.PlainText("")
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		if e.Failed() {
			rows = append(rows, []string{e.Label, "Error", "-", truncateString(e.Err.Error(), 60)})
			continue
		}
		rows = append(rows, []string{
			e.Label,
			singleLabel(e.Result),
			render.FormatPercent(e.Result.FailureProbability(), 1),
			"-",
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Label", "Result", "Failure", "Error"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, failure bool) {
	if failure {
		md.Caution("Machine failure is likely. Schedule maintenance before the next run.")
	} else {
		md.Tip("The machine is predicted to operate normally.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the probability pair.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, r *model.PredictionResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Prediction Probability (%)"),
		piechart.WithShowData(true),
	)
	chart.LabelAndIntValue("Normal", percentInt(r.NormalProbability()))
	chart.LabelAndIntValue("Failure", percentInt(r.FailureProbability()))

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFeatures(md *markdown.Markdown, fv model.FeatureVector) {
	md.H2("Sensor Readings")
	md.PlainText("")

	rows := make([][]string, 0, len(model.NumericFeatures)+1)
	for _, name := range model.NumericFeatures {
		v, _ := fv.Get(name)
		rows = append(rows, []string{name, formatFeature(v)})
	}
	rows = append(rows, []string{"Equipment type", string(fv.EquipmentType())})
	md.Table(markdown.TableSet{
		Header: []string{"Feature", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [failsight](https://github.com/nao1215/failsight)*")
}

// percentInt returns p as a whole percentage in [0, 100].
func percentInt(p float64) uint64 {
	v := math.Round(p * 100)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return uint64(v)
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
