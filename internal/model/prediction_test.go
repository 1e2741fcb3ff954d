package model

import (
	"errors"
	"testing"
)

func TestParsePredictionResult(t *testing.T) {
	t.Parallel()

	t.Run("single model payload", func(t *testing.T) {
		t.Parallel()
		r, err := ParsePredictionResult([]byte(`{"prediction":1,"prediction_probability":[0.2,0.8],"shap_plot":"iVBORw0KGgo=","model_name":"XGBoost"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !r.IsFailure() {
			t.Error("expected failure prediction")
		}
		if r.NormalProbability() != 0.2 || r.FailureProbability() != 0.8 {
			t.Errorf("unexpected probabilities %v", r.Probability)
		}
		if !r.HasShapPlot() || r.ModelName != "XGBoost" {
			t.Errorf("unexpected result %+v", r)
		}
	})

	t.Run("probability key alias", func(t *testing.T) {
		t.Parallel()
		r, err := ParsePredictionResult([]byte(`{"prediction":0,"probability":[0.9,0.1]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.IsFailure() || r.FailureProbability() != 0.1 {
			t.Errorf("unexpected result %+v", r)
		}
	})

	t.Run("null plot", func(t *testing.T) {
		t.Parallel()
		r, err := ParsePredictionResult([]byte(`{"prediction":0,"prediction_probability":[1,0],"shap_plot":null}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.HasShapPlot() {
			t.Error("expected no plot")
		}
	})

	t.Run("malformed probability", func(t *testing.T) {
		t.Parallel()
		_, err := ParsePredictionResult([]byte(`{"prediction":0,"prediction_probability":[1]}`))
		if !errors.Is(err, ErrMalformedProbability) {
			t.Errorf("expected ErrMalformedProbability, got %v", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		if _, err := ParsePredictionResult([]byte(`{`)); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestParseComparisonResult(t *testing.T) {
	t.Parallel()

	t.Run("valid comparison", func(t *testing.T) {
		t.Parallel()
		c, err := ParseComparisonResult([]byte(`{
			"xgboost":{"prediction":1,"probability":[0.3,0.7],"shap_plot":"aGVsbG8="},
			"logistic_regression":{"prediction":0,"probability":[0.6,0.4]},
			"comparison_points":["<b>Agreement</b>: models differ","second"]
		}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Agree() {
			t.Error("expected models to disagree")
		}
		if c.XGBoost.FailureProbability() != 0.7 || c.LogisticRegression.NormalProbability() != 0.6 {
			t.Error("unexpected probabilities")
		}
		if len(c.ComparisonPoints) != 2 {
			t.Errorf("expected 2 points, got %d", len(c.ComparisonPoints))
		}
	})

	t.Run("missing model", func(t *testing.T) {
		t.Parallel()
		_, err := ParseComparisonResult([]byte(`{"xgboost":{"prediction":1,"probability":[0.3,0.7]},"comparison_points":[]}`))
		if !errors.Is(err, ErrMissingModelResult) {
			t.Errorf("expected ErrMissingModelResult, got %v", err)
		}
	})

	t.Run("malformed nested probability", func(t *testing.T) {
		t.Parallel()
		_, err := ParseComparisonResult([]byte(`{"xgboost":{"prediction":1,"probability":[]},"logistic_regression":{"prediction":0,"probability":[0.6,0.4]}}`))
		if !errors.Is(err, ErrMalformedProbability) {
			t.Errorf("expected ErrMalformedProbability, got %v", err)
		}
	})
}

func TestModelName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input       string
		want        ModelName
		valid       bool
		displayName string
	}{
		{input: "", want: ModelXGBoost, valid: true, displayName: "XGBoost"},
		{input: "xgb", want: ModelXGBoost, valid: true, displayName: "XGBoost"},
		{input: "LR", want: ModelLogisticRegression, valid: true, displayName: "Logistic Regression"},
		{input: "logistic_regression", want: ModelLogisticRegression, valid: true, displayName: "Logistic Regression"},
		{input: "random_forest", want: ModelName("random_forest"), valid: false, displayName: "Random Forest"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got := ParseModelName(tt.input)
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if got.IsValid() != tt.valid {
				t.Errorf("expected IsValid %v", tt.valid)
			}
			if got.DisplayName() != tt.displayName {
				t.Errorf("expected display name %q, got %q", tt.displayName, got.DisplayName())
			}
		})
	}
}
