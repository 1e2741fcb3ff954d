package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Prediction class values returned by the API.
const (
	PredictionNormal  = 0
	PredictionFailure = 1
)

// Probability indexes into a probability pair.
const (
	ProbabilityNormal  = 0
	ProbabilityFailure = 1
)

// ErrMalformedProbability is returned when a probability pair does not have two entries.
var ErrMalformedProbability = errors.New("probability must contain exactly two values")

// PredictionResult is the response of a single-model prediction.
type PredictionResult struct {
	// Prediction is 1 when a failure is predicted, 0 otherwise.
	Prediction int `json:"prediction"`
	// Probability holds [p_normal, p_failure].
	Probability []float64 `json:"prediction_probability"`
	// ShapPlot is an optional base64 PNG explaining the prediction.
	ShapPlot string `json:"shap_plot,omitempty"`
	// ModelName is the display name reported by the API, if any.
	ModelName string `json:"model_name,omitempty"`
}

// UnmarshalJSON accepts the probability pair under either
// "prediction_probability" or "probability". Comparison responses use the latter.
func (r *PredictionResult) UnmarshalJSON(data []byte) error {
	var aux struct {
		Prediction            int       `json:"prediction"`
		PredictionProbability []float64 `json:"prediction_probability"`
		Probability           []float64 `json:"probability"`
		ShapPlot              *string   `json:"shap_plot"`
		ModelName             string    `json:"model_name"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Prediction = aux.Prediction
	r.Probability = aux.PredictionProbability
	if r.Probability == nil {
		r.Probability = aux.Probability
	}
	r.ShapPlot = ""
	if aux.ShapPlot != nil {
		r.ShapPlot = *aux.ShapPlot
	}
	r.ModelName = aux.ModelName
	return nil
}

// IsFailure reports whether a failure is predicted.
func (r *PredictionResult) IsFailure() bool {
	return r.Prediction == PredictionFailure
}

// Validate checks that the probability pair is usable.
func (r *PredictionResult) Validate() error {
	if len(r.Probability) != 2 {
		return fmt.Errorf("%w: got %d", ErrMalformedProbability, len(r.Probability))
	}
	return nil
}

// NormalProbability returns p_normal, or 0 when the pair is malformed.
func (r *PredictionResult) NormalProbability() float64 {
	if len(r.Probability) != 2 {
		return 0
	}
	return r.Probability[ProbabilityNormal]
}

// FailureProbability returns p_failure, or 0 when the pair is malformed.
func (r *PredictionResult) FailureProbability() float64 {
	if len(r.Probability) != 2 {
		return 0
	}
	return r.Probability[ProbabilityFailure]
}

// HasShapPlot reports whether an explanation image is attached.
func (r *PredictionResult) HasShapPlot() bool {
	return r.ShapPlot != ""
}

// ErrMissingModelResult is returned when a comparison lacks one of the model entries.
var ErrMissingModelResult = errors.New("comparison is missing a model result")

// ComparisonResult is the response of a two-model comparison.
type ComparisonResult struct {
	XGBoost            *PredictionResult `json:"xgboost"`
	LogisticRegression *PredictionResult `json:"logistic_regression"`
	// ComparisonPoints are short HTML snippets contrasting the two models.
	ComparisonPoints []string `json:"comparison_points"`
}

// Validate checks that both model entries are present and well formed.
func (c *ComparisonResult) Validate() error {
	if c.XGBoost == nil {
		return fmt.Errorf("%w: %s", ErrMissingModelResult, ModelXGBoost)
	}
	if c.LogisticRegression == nil {
		return fmt.Errorf("%w: %s", ErrMissingModelResult, ModelLogisticRegression)
	}
	if err := c.XGBoost.Validate(); err != nil {
		return fmt.Errorf("%s: %w", ModelXGBoost, err)
	}
	if err := c.LogisticRegression.Validate(); err != nil {
		return fmt.Errorf("%s: %w", ModelLogisticRegression, err)
	}
	return nil
}

// Agree reports whether both models predict the same class.
func (c *ComparisonResult) Agree() bool {
	if c.XGBoost == nil || c.LogisticRegression == nil {
		return false
	}
	return c.XGBoost.Prediction == c.LogisticRegression.Prediction
}

// ParsePredictionResult decodes and validates a single prediction payload.
func ParsePredictionResult(data []byte) (*PredictionResult, error) {
	var r PredictionResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode prediction result: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// ParseComparisonResult decodes and validates a comparison payload.
func ParseComparisonResult(data []byte) (*ComparisonResult, error) {
	var c ComparisonResult
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode comparison result: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
