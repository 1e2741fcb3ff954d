package render

import (
	"encoding/base64"
	"html/template"
	"math"
	"strconv"

	"github.com/nao1215/failsight/internal/model"
)

// Labels shown in result views.
const (
	LabelFailureLikely   = "Machine Failure Likely"
	LabelFailureImminent = "Failure Imminent"
	LabelNormal          = "Normal Operation"
	PlotUnavailableAlt   = "SHAP plot unavailable"
)

// Bar is one probability bar.
type Bar struct {
	Style template.CSS
	Title string
}

// SingleView is the data behind the single-prediction results page.
type SingleView struct {
	IsFailure bool
	BoxClass  string
	Label     string
	ModelName string
	Normal    Bar
	Failure   Bar
	Plot      template.URL
	HasPlot   bool
}

// ModelView is one column of the comparison page.
type ModelView struct {
	Name        string
	IsFailure   bool
	Class       string
	Label       string
	NormalText  string
	FailureText string
	Plot        template.URL
	HasPlot     bool
	PlotAlt     string
}

// ComparisonView is the data behind the comparison page.
type ComparisonView struct {
	XGBoost            ModelView
	LogisticRegression ModelView
	Agree              bool
	Points             []template.HTML
}

// NewSingleView builds the view for a validated prediction result.
func NewSingleView(r *model.PredictionResult) SingleView {
	v := SingleView{
		IsFailure: r.IsFailure(),
		BoxClass:  "prediction-normal",
		Label:     LabelNormal,
		ModelName: r.ModelName,
		Normal:    newBar("Normal", r.NormalProbability()),
		Failure:   newBar("Failure", r.FailureProbability()),
	}
	if v.IsFailure {
		v.BoxClass = "prediction-fail"
		v.Label = LabelFailureLikely
	}
	v.Plot, v.HasPlot = plotURL(r.ShapPlot)
	return v
}

// NewComparisonView builds the view for a validated comparison result.
func NewComparisonView(c *model.ComparisonResult) ComparisonView {
	v := ComparisonView{
		XGBoost:            newModelView(model.ModelXGBoost, c.XGBoost),
		LogisticRegression: newModelView(model.ModelLogisticRegression, c.LogisticRegression),
		Agree:              c.Agree(),
		Points:             make([]template.HTML, 0, len(c.ComparisonPoints)),
	}
	for _, p := range c.ComparisonPoints {
		v.Points = append(v.Points, SanitizeInlineHTML(p))
	}
	return v
}

func newModelView(name model.ModelName, r *model.PredictionResult) ModelView {
	v := ModelView{
		Name:        name.DisplayName(),
		IsFailure:   r.IsFailure(),
		Class:       "normal",
		Label:       LabelNormal,
		NormalText:  "Normal: " + FormatPercent(r.NormalProbability(), 3),
		FailureText: "Failure: " + FormatPercent(r.FailureProbability(), 3),
	}
	if v.IsFailure {
		v.Class = "fail"
		v.Label = LabelFailureImminent
	}
	v.Plot, v.HasPlot = plotURL(r.ShapPlot)
	if !v.HasPlot {
		v.PlotAlt = PlotUnavailableAlt
	}
	return v
}

func newBar(name string, p float64) Bar {
	return Bar{
		Style: template.CSS("width: " + BarWidth(p) + "%;"), //nolint:gosec // numeric only
		Title: name + ": " + FormatPercent(p, 1),
	}
}

// BarWidth returns p*100 clamped to [0, 100], formatted without trailing zeros.
// Non-finite probabilities give "0".
func BarWidth(p float64) string {
	w := p * 100
	switch {
	case math.IsNaN(w), w < 0:
		w = 0
	case w > 100:
		w = 100
	}
	w = math.Round(w*1000) / 1000
	return strconv.FormatFloat(w, 'f', -1, 64)
}

// FormatPercent formats p as a percentage with the given decimals, e.g. "80.0%".
func FormatPercent(p float64, decimals int) string {
	return strconv.FormatFloat(p*100, 'f', decimals, 64) + "%"
}

// plotURL turns a base64 PNG into a data URI. Empty or undecodable
// payloads report false.
func plotURL(b64 string) (template.URL, bool) {
	if b64 == "" {
		return "", false
	}
	if _, err := base64.StdEncoding.DecodeString(b64); err != nil {
		return "", false
	}
	return template.URL("data:image/png;base64," + b64), true //nolint:gosec // validated base64
}
