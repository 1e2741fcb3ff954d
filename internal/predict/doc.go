// Package predict is the client for the external machine-failure prediction API.
//
// The API exposes three endpoints:
//   - POST /api/predict/ with {model_name, features} for one model
//   - POST /api/compare/ with {features} for both models side by side
//   - GET /api/debug reporting which model artifacts are loaded
//
// Successful responses are returned both decoded and as the raw body, so
// callers can hand the exact JSON to the results page. Non-2xx responses
// become *APIError carrying the API's "detail" string or a fixed fallback.
package predict
