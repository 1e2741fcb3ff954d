// Package model defines the data exchanged with the prediction API.
//
// This package contains:
//   - FeatureVector: the seven model inputs built from a submitted form
//   - PredictionResult: a single model's class, probabilities and SHAP plot
//   - ComparisonResult: both models side by side with comparison notes
//   - ModelName and EquipmentType: typed names with validation
//
// The types are shared by the API client, the result renderer, the batch
// runner and the CLI report writers.
package model
