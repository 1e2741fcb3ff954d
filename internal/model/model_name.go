package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ModelName identifies a prediction model on the API.
type ModelName string

// Model name constants.
const (
	// ModelXGBoost is the gradient boosted tree model.
	ModelXGBoost ModelName = "xgboost"
	// ModelLogisticRegression is the linear baseline model.
	ModelLogisticRegression ModelName = "logistic_regression"
)

// FieldModelName is the form field selecting the model.
const FieldModelName = "model_name"

// DefaultModel is used when no model is selected.
const DefaultModel = ModelXGBoost

// String returns the wire value.
func (m ModelName) String() string {
	return string(m)
}

// IsValid returns true for the models the API serves.
func (m ModelName) IsValid() bool {
	switch m {
	case ModelXGBoost, ModelLogisticRegression:
		return true
	default:
		return false
	}
}

// DisplayName returns the human-readable model name.
// Unknown names are title-cased with underscores turned into spaces.
func (m ModelName) DisplayName() string {
	switch m {
	case ModelXGBoost:
		return "XGBoost"
	case ModelLogisticRegression:
		return "Logistic Regression"
	default:
		return cases.Title(language.English).String(strings.ReplaceAll(string(m), "_", " "))
	}
}

// ParseModelName converts user input to a ModelName.
// Empty input selects DefaultModel; aliases such as "lr" and "xgb" are accepted.
// Unrecognised names are returned unchanged and fail IsValid.
func ParseModelName(s string) ModelName {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultModel
	case "xgboost", "xgb":
		return ModelXGBoost
	case "logistic_regression", "logistic-regression", "lr", "logreg":
		return ModelLogisticRegression
	default:
		return ModelName(s)
	}
}
